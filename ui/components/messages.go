package components

import (
	"strings"

	"github.com/Rorical/whitelist-dapp/internal/models"
	"github.com/Rorical/whitelist-dapp/ui/styles"
)

// RenderMessages renders the last limit activity entries; limit <= 0 means all.
func RenderMessages(messages []models.Message, limit int) string {
	if limit > 0 && len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}

	var b strings.Builder

	programStyle := styles.ProgramStyle()
	infoStyle := styles.InfoStyle()
	errorStyle := styles.ErrorStyle()
	txStyle := styles.TxStyle()

	for _, msg := range messages {
		switch msg.Type {
		case models.Program:
			b.WriteString(programStyle.Render(msg.Content) + "\n")
		case models.Info:
			b.WriteString(infoStyle.Render(msg.Content) + "\n")
		case models.Error:
			b.WriteString(errorStyle.Render(msg.Content) + "\n")
		case models.Tx:
			content := msg.Content
			if msg.TxHash != "" {
				content += "\n" + msg.TxHash
			}
			b.WriteString(txStyle.Render(content) + "\n")
		}
	}

	return b.String()
}
