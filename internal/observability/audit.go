package observability

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/harun/clawspace/internal/tracing"
)

// Audit event types
const (
	AuditTypeWorkspace = "workspace"
	AuditTypeProcess   = "process"
)

// Audit statuses
const (
	AuditSuccess = "success"
	AuditFailure = "failure"
)

// AuditEvent represents a structured event for the audit log
type AuditEvent struct {
	Type        string                 `json:"event_type"`
	Timestamp   time.Time              `json:"timestamp"`
	WorkspaceID string                 `json:"workspace_id,omitempty"`
	Action      string                 `json:"action"` // e.g. "file_written", "start"
	Status      string                 `json:"status"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	TraceID     string                 `json:"trace_id,omitempty"`
}

// AuditLogger appends one JSON line per event. A nil *AuditLogger discards
// events.
type AuditLogger struct {
	logger zerolog.Logger
	mu     sync.Mutex
	file   *os.File
}

// NewAuditLogger opens path for appending
func NewAuditLogger(path string) (*AuditLogger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create audit directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}

	return &AuditLogger{
		logger: zerolog.New(file),
		file:   file,
	}, nil
}

// Record writes event. The trace id comes from the active span, or from the
// tracing context when no span is recording.
func (a *AuditLogger) Record(ctx context.Context, event AuditEvent) {
	if a == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.WorkspaceID == "" {
		event.WorkspaceID = tracing.GetWorkspaceID(ctx)
	}

	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		event.TraceID = span.SpanContext().TraceID().String()

		span.AddEvent(event.Action, trace.WithAttributes(
			attribute.String("audit.type", event.Type),
			attribute.String("audit.status", event.Status),
		))
	} else if id := tracing.GetTraceID(ctx); id != "" {
		event.TraceID = id
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	entry := a.logger.Log().
		Time("timestamp", event.Timestamp).
		Str("event_type", event.Type).
		Str("action", event.Action).
		Str("status", event.Status)

	if event.WorkspaceID != "" {
		entry.Str("workspace_id", event.WorkspaceID)
	}
	if event.TraceID != "" {
		entry.Str("trace_id", event.TraceID)
	}
	if event.Metadata != nil {
		entry.Interface("metadata", event.Metadata)
	}

	entry.Send()
}

// Close closes the audit log file
func (a *AuditLogger) Close() error {
	if a == nil {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.file != nil {
		err := a.file.Close()
		a.file = nil
		return err
	}
	return nil
}

// RecordWorkspace records a workspace file or structure change
func (a *AuditLogger) RecordWorkspace(ctx context.Context, workspaceID, action string, metadata map[string]interface{}) {
	a.Record(ctx, AuditEvent{
		Type:        AuditTypeWorkspace,
		WorkspaceID: workspaceID,
		Action:      action,
		Status:      AuditSuccess,
		Metadata:    metadata,
	})
}

// RecordProcess records a start, stop or restart outcome
func (a *AuditLogger) RecordProcess(ctx context.Context, workspaceID, action string, pid int, errMsg string) {
	status := AuditSuccess
	metadata := map[string]interface{}{}
	if pid > 0 {
		metadata["pid"] = pid
	}
	if errMsg != "" {
		status = AuditFailure
		metadata["error"] = errMsg
	}
	if len(metadata) == 0 {
		metadata = nil
	}

	a.Record(ctx, AuditEvent{
		Type:        AuditTypeProcess,
		WorkspaceID: workspaceID,
		Action:      action,
		Status:      status,
		Metadata:    metadata,
	})
}
