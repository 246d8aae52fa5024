package common

import "context"

// Context keys for storing values in context
type contextKey string

const (
	ContextKeyRunID    contextKey = "run_id"
	ContextKeyFileName contextKey = "file_name"
)

// WithRunID adds a run ID to the context
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, ContextKeyRunID, runID)
}

// RunIDFromContext extracts the run ID from context
func RunIDFromContext(ctx context.Context) string {
	if runID, ok := ctx.Value(ContextKeyRunID).(string); ok {
		return runID
	}
	return ""
}

// WithFileName tags the context with the document currently being processed.
func WithFileName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, ContextKeyFileName, name)
}

// FileNameFromContext extracts the document name from context
func FileNameFromContext(ctx context.Context) string {
	if name, ok := ctx.Value(ContextKeyFileName).(string); ok {
		return name
	}
	return ""
}
