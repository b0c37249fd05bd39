package update

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Rorical/whitelist-dapp/internal/eventbus"
	"github.com/Rorical/whitelist-dapp/internal/models"
)

// maxActivity bounds the activity log kept by the UI.
const maxActivity = 200

// HandleKeyMsgWithEventBus handles keyboard input using event bus
func HandleKeyMsgWithEventBus(appModel *models.AppModel, keyMsg tea.KeyMsg, eb *eventbus.EventBus) tea.Cmd {
	if appModel.PendingConfirmation != nil {
		return handleConfirmationKey(appModel, keyMsg, eb)
	}

	switch keyMsg.String() {
	case "ctrl+c", "q":
		return tea.Quit
	case "c":
		if appModel.Phase() != models.Disconnected || appModel.Loading {
			return nil
		}
		send(appModel, eb, eventbus.ConnectEvent{}, "Connecting")
	case "enter", "j":
		// Join is only offered from the not-joined state, and never twice.
		if appModel.Phase() != models.NotJoined || appModel.Loading {
			return nil
		}
		send(appModel, eb, eventbus.JoinEvent{}, "Joining")
	case "r":
		if appModel.Phase() == models.Disconnected || appModel.Loading {
			return nil
		}
		send(appModel, eb, eventbus.RefreshEvent{}, "Refreshing")
	}
	return nil
}

// send marks the model loading until the core answers with a snapshot.
func send(appModel *models.AppModel, eb *eventbus.EventBus, event eventbus.UIEvent, status string) {
	if err := eb.SendToCore(event); err != nil {
		appModel.Status = "Error sending event: " + err.Error()
		return
	}
	appModel.Loading = true
	appModel.Status = status
}

func handleConfirmationKey(appModel *models.AppModel, keyMsg tea.KeyMsg, eb *eventbus.EventBus) tea.Cmd {
	var approved bool
	switch keyMsg.String() {
	case "ctrl+c":
		return tea.Quit
	case "y", "Y", "enter":
		approved = true
	case "n", "N", "esc":
		approved = false
	default:
		return nil
	}

	req := appModel.PendingConfirmation
	appModel.PendingConfirmation = nil
	if err := eb.SendToCore(eventbus.ConfirmationResponseEvent{ID: req.ID, Approved: approved}); err != nil {
		appModel.Status = "Error sending confirmation: " + err.Error()
		return nil
	}
	if approved {
		appModel.Status = req.Operation + ": approved"
	} else {
		appModel.Status = req.Operation + ": rejected"
	}
	return nil
}

// CoreEventMsg wraps core events for Bubble Tea
type CoreEventMsg struct {
	Event eventbus.CoreEvent
}

// HandleCoreEvent processes events from the core
func HandleCoreEvent(appModel *models.AppModel, coreEventMsg CoreEventMsg) tea.Cmd {
	switch event := coreEventMsg.Event.(type) {
	case eventbus.StateUpdateEvent:
		appModel.Snapshot = event.Snapshot
		appModel.Activity = append(appModel.Activity, event.Messages...)
		if n := len(appModel.Activity); n > maxActivity {
			appModel.Activity = appModel.Activity[n-maxActivity:]
		}
		appModel.Loading = event.Snapshot.Pending || event.Snapshot.Busy

		switch {
		case event.Error != nil:
			appModel.Status = "Error: " + event.Error.Error()
		case event.Snapshot.Pending:
			appModel.Status = "Waiting for the transaction to be mined"
		case event.Snapshot.Busy:
			appModel.Status = "Reading whitelist"
		default:
			appModel.Status = "Ready"
		}
	case eventbus.ConfirmationRequestEvent:
		appModel.PendingConfirmation = &models.ConfirmationRequest{
			ID:        event.ID,
			Operation: event.Operation,
			Detail:    event.Detail,
		}
		appModel.Status = "Approve " + event.Operation + "? [y/n]"
	case eventbus.ConfirmationCancelEvent:
		req := appModel.PendingConfirmation
		if req == nil || req.ID != event.ID {
			return nil
		}
		appModel.PendingConfirmation = nil
		appModel.Status = req.Operation + ": timed out"
	}

	return nil
}

type TickMsg time.Time

func TickCmd() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func HandleWindowSizeMsg(appModel *models.AppModel, sizeMsg tea.WindowSizeMsg) {
	appModel.Width = sizeMsg.Width
	appModel.Height = sizeMsg.Height
}

func HandleTickMsg(appModel *models.AppModel) tea.Cmd {
	// Only handle UI animations - loading dots
	if appModel.Loading {
		appModel.LoadingDots = (appModel.LoadingDots + 1) % 4
	}
	return TickCmd()
}
