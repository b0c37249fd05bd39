package eventbus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendAndReceive(t *testing.T) {
	eb := NewEventBus()

	require.NoError(t, eb.SendToCore(JoinEvent{}))
	require.NoError(t, eb.SendToUI(ConfirmationRequestEvent{ID: "1", Operation: "Connect wallet"}))

	assert.Equal(t, JoinEvent{}, <-eb.UIToCore())
	req := (<-eb.CoreToUI()).(ConfirmationRequestEvent)
	assert.Equal(t, "Connect wallet", req.Operation)
}

func TestFullChannelOpensCircuit(t *testing.T) {
	eb := NewEventBusWithCapacity(1)
	var reported []EventBusError
	eb.SetErrorCallback(func(err EventBusError) { reported = append(reported, err) })

	require.NoError(t, eb.SendToUI(StateUpdateEvent{}))
	for i := 0; i < 5; i++ {
		assert.ErrorIs(t, eb.SendToUI(StateUpdateEvent{}), ErrChannelFull)
	}
	assert.Equal(t, CircuitOpen, eb.GetCircuitBreakerState())

	<-eb.CoreToUI()
	assert.ErrorIs(t, eb.SendToUI(StateUpdateEvent{}), ErrCircuitOpen)
	assert.Len(t, reported, 6)
	assert.Equal(t, "SendToUI: circuit breaker is open", reported[5].Error())
}

func TestCircuitBreakerHalfOpensAfterTimeout(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	cb := NewCircuitBreaker(2, time.Minute)
	cb.now = func() time.Time { return now }

	cb.RecordFailure()
	assert.False(t, cb.IsOpen())
	cb.RecordFailure()
	assert.True(t, cb.IsOpen())

	now = now.Add(2 * time.Minute)
	assert.False(t, cb.IsOpen())
	assert.Equal(t, CircuitHalfOpen, cb.State())
	assert.Equal(t, "half-open", cb.State().String())

	cb.RecordSuccess()
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestCloseIsIdempotent(t *testing.T) {
	eb := NewEventBus()
	eb.Close()
	eb.Close()

	_, ok := <-eb.UIToCore()
	assert.False(t, ok)
}
