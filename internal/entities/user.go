package entities

type User struct {
	ID           int    `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
	Role         string `json:"role"`
	CompanyID    int    `json:"company_id"` // Dealership the account belongs to
	IsActive     bool   `json:"is_active"`
}
