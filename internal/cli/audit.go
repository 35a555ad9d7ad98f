package cli

import (
	"context"

	"github.com/harun/clawspace/internal/observability"
	"github.com/harun/clawspace/pkg/workspace"
)

// auditWorkspace subscribes the audit log to every workspace change event
func (a *app) auditWorkspace(ctx context.Context, workspaceID string, emitter *workspace.EventEmitter) {
	emitter.On(workspace.EventInitialized, func(payload interface{}) {
		if p, ok := payload.(workspace.InitializedPayload); ok {
			a.audit.RecordWorkspace(ctx, workspaceID, "initialized", map[string]interface{}{
				"root":   p.Root,
				"seeded": p.Seeded,
			})
		}
	})

	emitter.On(workspace.EventFileWritten, func(payload interface{}) {
		if p, ok := payload.(workspace.FileEventPayload); ok {
			a.audit.RecordWorkspace(ctx, workspaceID, "file_written", map[string]interface{}{
				"name":  p.Name,
				"class": string(p.Class),
			})
		}
	})

	emitter.On(workspace.EventAgentCreated, func(payload interface{}) {
		if p, ok := payload.(workspace.AgentCreatedPayload); ok {
			a.audit.RecordWorkspace(ctx, workspaceID, "agent_created", map[string]interface{}{
				"file":    p.FileName,
				"created": p.Created,
			})
		}
	})

	emitter.On(workspace.EventSnapshotFailed, func(payload interface{}) {
		if p, ok := payload.(workspace.SnapshotFailedPayload); ok {
			metadata := map[string]interface{}{
				"message": p.Message,
				"paths":   p.Paths,
			}
			if p.Error != nil {
				metadata["error"] = p.Error.Error()
			}
			a.audit.Record(ctx, observability.AuditEvent{
				Type:        observability.AuditTypeWorkspace,
				WorkspaceID: workspaceID,
				Action:      "snapshot",
				Status:      observability.AuditFailure,
				Metadata:    metadata,
			})
		}
	})

	emitter.On(workspace.EventDestroyed, func(payload interface{}) {
		if p, ok := payload.(workspace.EventPayload); ok {
			a.audit.RecordWorkspace(ctx, workspaceID, "destroyed", map[string]interface{}{
				"root": p.Root,
			})
		}
	})
}
