package workspace

import (
	"sync"
	"time"
)

// EventHandler is a function that handles workspace events
type EventHandler func(payload interface{})

// EventEmitter broadcasts workspace events to subscribers. Handlers run
// synchronously, in registration order, on the emitting goroutine.
type EventEmitter struct {
	mu        sync.RWMutex
	listeners map[WorkspaceEvent][]EventHandler
}

// NewEventEmitter creates a new event emitter
func NewEventEmitter() *EventEmitter {
	return &EventEmitter{
		listeners: make(map[WorkspaceEvent][]EventHandler),
	}
}

// On registers an event handler for a specific event type
func (e *EventEmitter) On(event WorkspaceEvent, handler EventHandler) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.listeners[event] = append(e.listeners[event], handler)
}

// Emit calls every handler registered for event
func (e *EventEmitter) Emit(event WorkspaceEvent, payload interface{}) {
	if e == nil {
		return
	}

	e.mu.RLock()
	handlers := make([]EventHandler, len(e.listeners[event]))
	copy(handlers, e.listeners[event])
	e.mu.RUnlock()

	for _, handler := range handlers {
		handler(payload)
	}
}

func (e *EventEmitter) base(root string) EventPayload {
	return EventPayload{Timestamp: time.Now(), Root: root}
}

// EmitInitialized emits a workspace initialized event
func (e *EventEmitter) EmitInitialized(root string, seeded []string) {
	e.Emit(EventInitialized, InitializedPayload{
		EventPayload: e.base(root),
		Seeded:       seeded,
	})
}

// EmitFileWritten emits a file written event
func (e *EventEmitter) EmitFileWritten(root, name string) {
	e.Emit(EventFileWritten, FileEventPayload{
		EventPayload: e.base(root),
		Name:         name,
		Class:        ClassifyFile(name),
	})
}

// EmitAgentCreated emits an agent created event
func (e *EventEmitter) EmitAgentCreated(root, fileName, slug string, created []string) {
	e.Emit(EventAgentCreated, AgentCreatedPayload{
		EventPayload: e.base(root),
		FileName:     fileName,
		Slug:         slug,
		Created:      created,
	})
}

// EmitAgentsRegenerated emits an aggregate rebuilt event
func (e *EventEmitter) EmitAgentsRegenerated(root string, agentCount int) {
	e.Emit(EventAgentsRegenerated, RegeneratedPayload{
		EventPayload: e.base(root),
		AgentCount:   agentCount,
	})
}

// EmitSnapshotFailed emits a snapshot failure event
func (e *EventEmitter) EmitSnapshotFailed(root, message string, paths []string, err error) {
	e.Emit(EventSnapshotFailed, SnapshotFailedPayload{
		EventPayload: e.base(root),
		Message:      message,
		Paths:        paths,
		Error:        err,
	})
}

// EmitDestroyed emits a workspace destroyed event
func (e *EventEmitter) EmitDestroyed(root string) {
	e.Emit(EventDestroyed, e.base(root))
}

// RemoveAllListeners removes all event listeners
func (e *EventEmitter) RemoveAllListeners() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = make(map[WorkspaceEvent][]EventHandler)
}
