package usecases

import (
	"fmt"
	"strings"

	"dealerhub/internal/entities"
)

// RenderTemplate renders a request snapshot into channel text. Pure and
// deterministic: the same snapshot and template always yield byte-identical
// output. RAW is the verbatim card; IN_STOCK and IN_TRANSIT prefix a status
// banner built from the card fields.
func RenderTemplate(req *entities.Request, tpl entities.PostTemplate) string {
	card := renderCard(req)

	switch tpl {
	case entities.TemplateInStock:
		return fmt.Sprintf("✅ <b>IN STOCK</b> · %s\n\n%s", bannerLine(req), card)
	case entities.TemplateInTransit:
		return fmt.Sprintf("🚢 <b>IN TRANSIT</b> · %s\n\n%s", bannerLine(req), card)
	default:
		return card
	}
}

func renderCard(req *entities.Request) string {
	var sb strings.Builder
	sb.WriteString("<b>" + req.Title + "</b>\n")
	if req.Budget != "" {
		sb.WriteString("💰 Budget: " + req.Budget + "\n")
	}
	if req.Year != "" {
		sb.WriteString("📅 Year: " + req.Year + "\n")
	}
	if req.City != "" {
		sb.WriteString("📍 " + req.City + "\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// bannerLine compacts title/budget/city/year into one status banner line.
func bannerLine(req *entities.Request) string {
	parts := []string{req.Title}
	if req.Budget != "" {
		parts = append(parts, req.Budget)
	}
	if req.City != "" {
		parts = append(parts, req.City)
	}
	if req.Year != "" {
		parts = append(parts, req.Year)
	}
	return strings.Join(parts, " · ")
}

// ClosedBanner is appended to a post's payload when it is closed.
const ClosedBanner = "\n\n🔒 <b>Request closed</b>"
