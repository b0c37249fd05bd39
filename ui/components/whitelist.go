package components

import (
	"fmt"
	"strings"

	"github.com/Rorical/whitelist-dapp/internal/models"
	"github.com/Rorical/whitelist-dapp/ui/styles"
)

func RenderHeader(width int) string {
	var b strings.Builder
	b.WriteString(styles.TitleStyle(width).Render("Welcome to the Whitelist dApp"))
	b.WriteString("\n")
	b.WriteString(styles.DescriptionStyle().Render("Join the whitelist for early access to the collection."))
	b.WriteString("\n")
	return b.String()
}

// RenderSummary shows the cached count and, once connected, who and where.
func RenderSummary(s models.Snapshot) string {
	var b strings.Builder

	joined := fmt.Sprintf("%d have already joined", s.Count)
	if s.Max > 0 {
		joined += fmt.Sprintf(" (%d spots)", s.Max)
	}
	b.WriteString(styles.DescriptionStyle().Render(joined))
	b.WriteString("\n")

	detail := styles.DetailStyle()
	if s.Connected {
		b.WriteString(detail.Render("Account:  " + s.Account))
		b.WriteString("\n")
		b.WriteString(detail.Render("Network:  " + s.Network))
		b.WriteString("\n")
	}
	if s.Contract != "" {
		b.WriteString(detail.Render("Contract: " + s.Contract))
		b.WriteString("\n")
	} else {
		b.WriteString(detail.Render("Profile " + s.Profile + " is not configured"))
		b.WriteString("\n")
	}
	return b.String()
}

// RenderAction renders the one thing the user can do in the current phase.
func RenderAction(phase models.Phase, loading bool, loadingDots int) string {
	switch phase {
	case models.Joined:
		return styles.ThanksStyle().Render("Thanks for joining the whitelist") + "\n"
	case models.Pending:
		return styles.ButtonStyle(false).Render("Loading"+strings.Repeat(".", loadingDots)) + "\n"
	case models.NotJoined:
		return styles.ButtonStyle(!loading).Render("Join the Whitelist [enter]") + "\n"
	default:
		return styles.ButtonStyle(!loading).Render("Connect your wallet [c]") + "\n"
	}
}

func RenderConfirmation(req *models.ConfirmationRequest, width int) string {
	if req == nil {
		return ""
	}
	content := fmt.Sprintf("%s?\n%s\n[y] approve  [n] reject", req.Operation, req.Detail)
	return styles.ConfirmStyle(width).Render(content) + "\n"
}
