package app

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Rorical/whitelist-dapp/internal/update"
	"github.com/Rorical/whitelist-dapp/ui/components"
)

// Lines taken by everything but the activity log.
const chromeHeight = 14

func (m *AppModel) Init() tea.Cmd {
	return tea.Batch(
		update.TickCmd(),
		m.dispatcher.ListenForUIEvents(),
	)
}

func (m *AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// Handle core events and continue listening
	if coreEvent, ok := msg.(update.CoreEventMsg); ok {
		cmd := update.HandleCoreEvent(&m.appModel, coreEvent)
		return m, tea.Batch(cmd, m.dispatcher.ListenForUIEvents())
	}

	// Handle other events through the event bus
	eventBus := m.dispatcher.GetEventBus()
	cmd := update.HandleUpdateWithEventBus(&m.appModel, msg, eventBus)

	return m, cmd
}

func (m *AppModel) View() string {
	var b strings.Builder
	am := m.appModel

	b.WriteString(components.RenderHeader(am.Width))
	b.WriteString("\n")
	b.WriteString(components.RenderSummary(am.Snapshot))
	b.WriteString("\n")
	b.WriteString(components.RenderAction(am.Phase(), am.Loading, am.LoadingDots))
	b.WriteString(components.RenderConfirmation(am.PendingConfirmation, am.Width))
	b.WriteString("\n")

	limit := 0
	if am.Height > 0 {
		limit = am.Height - chromeHeight
		if limit < 1 {
			limit = 1
		}
	}
	b.WriteString(components.RenderMessages(am.Activity, limit))
	b.WriteString(components.RenderStatus(am.Status, am.Loading, am.LoadingDots, am.Width))

	return b.String()
}
