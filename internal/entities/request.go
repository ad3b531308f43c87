package entities

import "time"

// Request is a dealership purchase/search request. The engine consumes it as
// a snapshot for channel publishing and deep-linked cards; the dashboard owns
// its CRUD lifecycle.
type Request struct {
	ID        int       `json:"id"`
	Title     string    `json:"title"`
	Budget    string    `json:"budget"`
	City      string    `json:"city"`
	Year      string    `json:"year"`
	Contact   string    `json:"contact"`
	Status    string    `json:"status"` // open / in_progress / closed
	CreatedAt time.Time `json:"created_at"`
}

// Lead is a captured contact produced by scenario ACTION nodes.
type Lead struct {
	ID         int       `json:"id"`
	Name       string    `json:"name"`
	Phone      string    `json:"phone"`
	Source     string    `json:"source"` // "telegram" / "whatsapp"
	BotID      int       `json:"bot_id"`
	ChatID     string    `json:"chat_id"`
	ScenarioID int       `json:"scenario_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// Car is one inventory record queried by SEARCH_CARS / SHOW_CARS nodes.
type Car struct {
	ID       int    `json:"id"`
	Brand    string `json:"brand"`
	Model    string `json:"model"`
	Year     int    `json:"year"`
	Price    int    `json:"price"`
	Currency string `json:"currency"`
	City     string `json:"city"`
	Status   string `json:"status"` // in_stock / in_transit / sold
	Mileage  int    `json:"mileage"`
}
