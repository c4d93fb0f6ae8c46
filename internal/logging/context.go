package logging

import (
	"context"
	"log/slog"

	"shuttle/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldItemHash is the standardized structured logging key for item identifiers.
	FieldItemHash = "item_hash"
	// FieldCorrelationID is the standardized structured logging key for per-invocation correlation identifiers.
	FieldCorrelationID = "correlation_id"
	// FieldState is the standardized structured logging key for relocation state names.
	FieldState = "state"
	// FieldPath is the standardized structured logging key for filesystem paths.
	FieldPath = "path"
	// FieldAttempt is the standardized structured logging key for retry attempt numbers.
	FieldAttempt = "attempt"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 2)
	if hash, ok := services.ItemHashFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldItemHash, hash))
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from
// the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
