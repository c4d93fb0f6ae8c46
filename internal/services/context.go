package services

import "context"

type contextKey string

const (
	itemHashKey  contextKey = "item_hash"
	requestIDKey contextKey = "request_id"
)

// WithItemHash annotates context with the item identifier being processed.
func WithItemHash(ctx context.Context, hash string) context.Context {
	if hash == "" {
		return ctx
	}
	return context.WithValue(ctx, itemHashKey, hash)
}

// ItemHashFromContext extracts the item identifier if present.
func ItemHashFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(itemHashKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithRequestID annotates context with a correlation identifier for one invocation.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
