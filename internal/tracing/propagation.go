package tracing

import (
	"context"

	"github.com/rs/zerolog"
)

// PropagateToLogger adds tracing context to a zerolog logger
func PropagateToLogger(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	tc := FromContext(ctx)

	if tc.TraceID == "" && tc.WorkspaceID == "" && tc.OperationID == "" {
		return logger
	}

	lc := logger.With()
	if tc.TraceID != "" {
		lc = lc.Str("trace_id", tc.TraceID)
	}
	if tc.WorkspaceID != "" {
		lc = lc.Str("workspace_id", tc.WorkspaceID)
	}
	if tc.OperationID != "" {
		lc = lc.Str("operation_id", tc.OperationID)
	}
	return lc.Logger()
}

// LoggerFromContext creates a logger with tracing context from the given context
func LoggerFromContext(ctx context.Context, baseLogger zerolog.Logger) zerolog.Logger {
	return PropagateToLogger(ctx, baseLogger)
}

// MergeContext copies tracing values from source into target where target has none
func MergeContext(target, source context.Context) context.Context {
	tc := FromContext(source)

	if tc.TraceID != "" && GetTraceID(target) == "" {
		target = WithTraceID(target, tc.TraceID)
	}
	if tc.WorkspaceID != "" && GetWorkspaceID(target) == "" {
		target = WithWorkspaceID(target, tc.WorkspaceID)
	}
	if tc.OperationID != "" && GetOperationID(target) == "" {
		target = WithOperationID(target, tc.OperationID)
	}

	return target
}

// Detach returns a background context carrying the same tracing values.
// Used for work that must outlive the caller's cancellation.
func Detach(ctx context.Context) context.Context {
	return NewContext(context.Background(), FromContext(ctx))
}
