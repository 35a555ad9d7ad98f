package workspace

import (
	"time"

	"github.com/harun/clawspace/internal/metrics"
	"github.com/harun/clawspace/pkg/store"
)

// FileClass is the metrics label for a written file
type FileClass string

const (
	FileClassPrimary   FileClass = "primary"
	FileClassSub       FileClass = "sub"
	FileClassAggregate FileClass = "aggregate"
	FileClassOther     FileClass = "other"
)

// ClassifyFile maps a relative file name to its FileClass
func ClassifyFile(name string) FileClass {
	if name == AgentsFileName {
		return FileClassAggregate
	}
	switch kind := ParseAgentFileName(name).Kind; {
	case kind == KindPrimary:
		return FileClassPrimary
	case kind.IsSubFile():
		return FileClassSub
	default:
		return FileClassOther
	}
}

// Fixed subdirectories created with every workspace
var structureDirs = []string{"cron", "skills"}

// Config holds configuration for the workspace manager
type Config struct {
	Root        string      // Workspace directory
	WorkspaceID string      // Record to keep in sync with Root (optional)
	Store       store.Store // Where the record lives (optional)
	Snapshotter Snapshotter // Version history (default: NopSnapshotter)
	Emitter     *EventEmitter
	Metrics     *metrics.Metrics
}

// WorkspaceEvent represents event types emitted by the workspace manager
type WorkspaceEvent string

const (
	EventInitialized       WorkspaceEvent = "workspace.initialized"
	EventFileWritten       WorkspaceEvent = "workspace.file.written"
	EventAgentCreated      WorkspaceEvent = "workspace.agent.created"
	EventAgentsRegenerated WorkspaceEvent = "workspace.agents.regenerated"
	EventSnapshotFailed    WorkspaceEvent = "workspace.snapshot.failed"
	EventDestroyed         WorkspaceEvent = "workspace.destroyed"
)

// EventPayload represents the base event payload
type EventPayload struct {
	Timestamp time.Time
	Root      string
}

// InitializedPayload is emitted when CreateStructure completes
type InitializedPayload struct {
	EventPayload
	Seeded []string // Seed files written on this call
}

// FileEventPayload is emitted for every file write
type FileEventPayload struct {
	EventPayload
	Name  string
	Class FileClass
}

// AgentCreatedPayload is emitted when CreateAgentFile writes a new agent
type AgentCreatedPayload struct {
	EventPayload
	FileName string
	Slug     string
	Created  []string // Every file written, primary first
}

// RegeneratedPayload is emitted after AGENTS.md is rebuilt
type RegeneratedPayload struct {
	EventPayload
	AgentCount int
}

// SnapshotFailedPayload is emitted when a snapshot step fails
type SnapshotFailedPayload struct {
	EventPayload
	Message string
	Paths   []string
	Error   error
}
