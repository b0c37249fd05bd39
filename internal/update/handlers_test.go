package update

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rorical/whitelist-dapp/internal/eventbus"
	"github.com/Rorical/whitelist-dapp/internal/models"
)

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func drain(eb *eventbus.EventBus) []eventbus.UIEvent {
	var events []eventbus.UIEvent
	for {
		select {
		case ev := <-eb.UIToCore():
			events = append(events, ev)
		default:
			return events
		}
	}
}

func notJoined() models.AppModel {
	return models.AppModel{Snapshot: models.Snapshot{Connected: true, Count: 3}}
}

func TestConnectOnlyWhenDisconnected(t *testing.T) {
	eb := eventbus.NewEventBus()
	m := models.AppModel{}

	HandleKeyMsgWithEventBus(&m, key("c"), eb)
	assert.Equal(t, []eventbus.UIEvent{eventbus.ConnectEvent{}}, drain(eb))
	assert.True(t, m.Loading)

	m = notJoined()
	HandleKeyMsgWithEventBus(&m, key("c"), eb)
	assert.Empty(t, drain(eb))
}

func TestJoinIgnoredWhileLoading(t *testing.T) {
	eb := eventbus.NewEventBus()
	m := notJoined()

	HandleKeyMsgWithEventBus(&m, key("enter"), eb)
	HandleKeyMsgWithEventBus(&m, key("enter"), eb)
	HandleKeyMsgWithEventBus(&m, key("j"), eb)

	assert.Equal(t, []eventbus.UIEvent{eventbus.JoinEvent{}}, drain(eb))
	assert.Equal(t, "Joining", m.Status)
}

func TestJoinIgnoredUnlessNotJoined(t *testing.T) {
	eb := eventbus.NewEventBus()
	for _, snap := range []models.Snapshot{
		{},
		{Connected: true, Pending: true},
		{Connected: true, Joined: true},
	} {
		m := models.AppModel{Snapshot: snap}
		HandleKeyMsgWithEventBus(&m, key("enter"), eb)
	}
	assert.Empty(t, drain(eb))
}

func TestRefreshRequiresConnection(t *testing.T) {
	eb := eventbus.NewEventBus()
	m := models.AppModel{}
	HandleKeyMsgWithEventBus(&m, key("r"), eb)
	assert.Empty(t, drain(eb))

	m = notJoined()
	HandleKeyMsgWithEventBus(&m, key("r"), eb)
	assert.Equal(t, []eventbus.UIEvent{eventbus.RefreshEvent{}}, drain(eb))
}

func TestConfirmationKeys(t *testing.T) {
	eb := eventbus.NewEventBus()
	m := models.AppModel{}

	HandleCoreEvent(&m, CoreEventMsg{Event: eventbus.ConfirmationRequestEvent{ID: "a", Operation: "Connect wallet"}})
	require.NotNil(t, m.PendingConfirmation)
	assert.Equal(t, "Approve Connect wallet? [y/n]", m.Status)

	// Unrelated keys do not answer the prompt.
	HandleKeyMsgWithEventBus(&m, key("c"), eb)
	assert.NotNil(t, m.PendingConfirmation)
	assert.Empty(t, drain(eb))

	HandleKeyMsgWithEventBus(&m, key("y"), eb)
	assert.Nil(t, m.PendingConfirmation)
	assert.Equal(t, []eventbus.UIEvent{eventbus.ConfirmationResponseEvent{ID: "a", Approved: true}}, drain(eb))

	HandleCoreEvent(&m, CoreEventMsg{Event: eventbus.ConfirmationRequestEvent{ID: "b", Operation: "Sign transaction"}})
	HandleKeyMsgWithEventBus(&m, key("esc"), eb)
	assert.Equal(t, []eventbus.UIEvent{eventbus.ConfirmationResponseEvent{ID: "b", Approved: false}}, drain(eb))
	assert.Equal(t, "Sign transaction: rejected", m.Status)
}

func TestExpiredConfirmationIsWithdrawn(t *testing.T) {
	eb := eventbus.NewEventBus()
	m := models.AppModel{}

	HandleCoreEvent(&m, CoreEventMsg{Event: eventbus.ConfirmationRequestEvent{ID: "a", Operation: "Connect wallet"}})
	HandleCoreEvent(&m, CoreEventMsg{Event: eventbus.ConfirmationCancelEvent{ID: "other"}})
	require.NotNil(t, m.PendingConfirmation)

	HandleCoreEvent(&m, CoreEventMsg{Event: eventbus.ConfirmationCancelEvent{ID: "a"}})
	assert.Nil(t, m.PendingConfirmation)
	assert.Equal(t, "Connect wallet: timed out", m.Status)

	// With the prompt gone, y is an ordinary key again.
	HandleKeyMsgWithEventBus(&m, key("y"), eb)
	assert.Empty(t, drain(eb))
}

func TestQuit(t *testing.T) {
	eb := eventbus.NewEventBus()
	m := models.AppModel{}
	cmd := HandleKeyMsgWithEventBus(&m, key("q"), eb)
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestStateUpdate(t *testing.T) {
	m := models.AppModel{}

	HandleCoreEvent(&m, CoreEventMsg{Event: eventbus.StateUpdateEvent{
		Snapshot: models.Snapshot{Connected: true, Pending: true, Count: 3},
		Messages: []models.Message{{Content: "Transaction sent", Type: models.Tx}},
	}})
	assert.True(t, m.Loading)
	assert.Equal(t, models.Pending, m.Phase())
	assert.Equal(t, "Waiting for the transaction to be mined", m.Status)
	assert.Len(t, m.Activity, 1)

	HandleCoreEvent(&m, CoreEventMsg{Event: eventbus.StateUpdateEvent{
		Snapshot: models.Snapshot{Connected: true, Count: 3},
		Messages: []models.Message{{Content: "reverted", Type: models.Error}},
		Error:    errors.New("transaction reverted"),
	}})
	assert.False(t, m.Loading)
	assert.Equal(t, models.NotJoined, m.Phase())
	assert.Equal(t, "Error: transaction reverted", m.Status)
	assert.Len(t, m.Activity, 2)
}

func TestActivityIsBounded(t *testing.T) {
	m := models.AppModel{}
	msgs := make([]models.Message, maxActivity+10)
	HandleCoreEvent(&m, CoreEventMsg{Event: eventbus.StateUpdateEvent{Messages: msgs}})
	assert.Len(t, m.Activity, maxActivity)
}

func TestTickAnimatesOnlyWhileLoading(t *testing.T) {
	m := models.AppModel{}
	HandleTickMsg(&m)
	assert.Zero(t, m.LoadingDots)

	m.Loading = true
	HandleTickMsg(&m)
	assert.Equal(t, 1, m.LoadingDots)
}
