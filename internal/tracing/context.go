package tracing

import (
	"context"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// ContextKey is the type for context keys
type ContextKey string

const (
	// TraceIDKey is the context key for trace ID
	TraceIDKey ContextKey = "trace_id"
	// WorkspaceIDKey is the context key for the workspace record ID
	WorkspaceIDKey ContextKey = "workspace_id"
	// OperationIDKey is the context key for a single lifecycle operation
	OperationIDKey ContextKey = "operation_id"
)

// TraceContext holds tracing information
type TraceContext struct {
	TraceID     string
	WorkspaceID string
	OperationID string
}

// NewTraceID generates a new trace ID
func NewTraceID() string {
	return uuid.New().String()
}

// NewOperationID generates a short operation ID. It falls back to a UUID
// if the random source fails.
func NewOperationID() string {
	id, err := gonanoid.New()
	if err != nil {
		return uuid.New().String()
	}
	return id
}

// WithTraceID adds a trace ID to the context
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// WithWorkspaceID adds a workspace ID to the context
func WithWorkspaceID(ctx context.Context, workspaceID string) context.Context {
	return context.WithValue(ctx, WorkspaceIDKey, workspaceID)
}

// WithOperationID adds an operation ID to the context
func WithOperationID(ctx context.Context, operationID string) context.Context {
	return context.WithValue(ctx, OperationIDKey, operationID)
}

// GetTraceID retrieves the trace ID from the context
func GetTraceID(ctx context.Context) string {
	if traceID, ok := ctx.Value(TraceIDKey).(string); ok {
		return traceID
	}
	return ""
}

// GetWorkspaceID retrieves the workspace ID from the context
func GetWorkspaceID(ctx context.Context) string {
	if workspaceID, ok := ctx.Value(WorkspaceIDKey).(string); ok {
		return workspaceID
	}
	return ""
}

// GetOperationID retrieves the operation ID from the context
func GetOperationID(ctx context.Context) string {
	if operationID, ok := ctx.Value(OperationIDKey).(string); ok {
		return operationID
	}
	return ""
}

// FromContext extracts all tracing information from the context
func FromContext(ctx context.Context) *TraceContext {
	return &TraceContext{
		TraceID:     GetTraceID(ctx),
		WorkspaceID: GetWorkspaceID(ctx),
		OperationID: GetOperationID(ctx),
	}
}

// NewContext creates a new context with tracing information
func NewContext(ctx context.Context, tc *TraceContext) context.Context {
	if tc.TraceID != "" {
		ctx = WithTraceID(ctx, tc.TraceID)
	}
	if tc.WorkspaceID != "" {
		ctx = WithWorkspaceID(ctx, tc.WorkspaceID)
	}
	if tc.OperationID != "" {
		ctx = WithOperationID(ctx, tc.OperationID)
	}
	return ctx
}

// NewOperationContext tags ctx with the workspace and a fresh operation ID.
// An existing trace ID is kept; otherwise a new one is generated.
func NewOperationContext(ctx context.Context, workspaceID string) context.Context {
	if GetTraceID(ctx) == "" {
		ctx = WithTraceID(ctx, NewTraceID())
	}
	ctx = WithWorkspaceID(ctx, workspaceID)
	return WithOperationID(ctx, NewOperationID())
}
