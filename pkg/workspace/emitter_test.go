package workspace

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventEmitter_On(t *testing.T) {
	emitter := NewEventEmitter()

	var called bool
	emitter.On(EventFileWritten, func(payload interface{}) {
		called = true
	})

	emitter.Emit(EventFileWritten, nil)
	assert.True(t, called, "handlers run before Emit returns")
}

func TestEventEmitter_Order(t *testing.T) {
	emitter := NewEventEmitter()

	var order []int
	for i := 0; i < 3; i++ {
		i := i
		emitter.On(EventDestroyed, func(interface{}) { order = append(order, i) })
	}

	emitter.EmitDestroyed("/ws")
	assert.Equal(t, []int{0, 1, 2}, order)
}

func TestEventEmitter_OnlyMatchingEvent(t *testing.T) {
	emitter := NewEventEmitter()

	var calls int
	emitter.On(EventAgentCreated, func(interface{}) { calls++ })

	emitter.EmitDestroyed("/ws")
	emitter.EmitAgentsRegenerated("/ws", 0)
	assert.Equal(t, 0, calls)
}

func TestEventEmitter_EmitFileWritten(t *testing.T) {
	emitter := NewEventEmitter()

	var received FileEventPayload
	emitter.On(EventFileWritten, func(payload interface{}) {
		received = payload.(FileEventPayload)
	})

	emitter.EmitFileWritten("/ws", "AGENT_ops_HEARTBEAT.md")

	assert.Equal(t, "/ws", received.Root)
	assert.Equal(t, "AGENT_ops_HEARTBEAT.md", received.Name)
	assert.Equal(t, FileClassSub, received.Class)
	assert.False(t, received.Timestamp.IsZero())
}

func TestEventEmitter_EmitSnapshotFailed(t *testing.T) {
	emitter := NewEventEmitter()

	var received SnapshotFailedPayload
	emitter.On(EventSnapshotFailed, func(payload interface{}) {
		received = payload.(SnapshotFailedPayload)
	})

	cause := errors.New("boom")
	emitter.EmitSnapshotFailed("/ws", "Update SOUL.md", []string{"SOUL.md"}, cause)

	assert.Equal(t, "Update SOUL.md", received.Message)
	assert.Equal(t, []string{"SOUL.md"}, received.Paths)
	assert.ErrorIs(t, received.Error, cause)
}

func TestEventEmitter_HandlerCanRegisterDuringEmit(t *testing.T) {
	emitter := NewEventEmitter()

	emitter.On(EventInitialized, func(interface{}) {
		emitter.On(EventInitialized, func(interface{}) {})
	})

	require.NotPanics(t, func() {
		emitter.EmitInitialized("/ws", nil)
	})
}

func TestEventEmitter_RemoveAllListeners(t *testing.T) {
	emitter := NewEventEmitter()

	var calls int
	emitter.On(EventDestroyed, func(interface{}) { calls++ })
	emitter.RemoveAllListeners()

	emitter.EmitDestroyed("/ws")
	assert.Equal(t, 0, calls)
}

func TestEventEmitter_NilIsSafe(t *testing.T) {
	var emitter *EventEmitter

	assert.NotPanics(t, func() {
		emitter.EmitDestroyed("/ws")
		emitter.EmitFileWritten("/ws", "SOUL.md")
	})
}
