package controller

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"shuttle/internal/logging"
	"shuttle/internal/services"
)

const (
	retryInitialBackoff = 500 * time.Millisecond
	retryMaxBackoff     = 5 * time.Second
)

// Retrying wraps a Client so that read operations run under a per-call
// deadline and are retried with backoff on controller-communication failures.
// A deadline overrun fails distinctly with services.ErrTimeout so callers can
// retry instead of proceeding on stale data. Commands pass through untouched.
type Retrying struct {
	inner    Client
	attempts int
	timeout  time.Duration
	logger   *slog.Logger
}

// NewRetrying builds the wrapper. attempts < 1 is treated as 1.
func NewRetrying(inner Client, attempts int, timeout time.Duration, logger *slog.Logger) *Retrying {
	if attempts < 1 {
		attempts = 1
	}
	return &Retrying{
		inner:    inner,
		attempts: attempts,
		timeout:  timeout,
		logger:   logging.NewComponentLogger(logger, "controller"),
	}
}

func (r *Retrying) read(ctx context.Context, operation string, fn func(context.Context) error) error {
	backoff := retryInitialBackoff
	var lastErr error
	for attempt := 1; attempt <= r.attempts; attempt++ {
		callCtx := ctx
		var cancel context.CancelFunc
		if r.timeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, r.timeout)
		}
		lastErr = fn(callCtx)
		if cancel != nil {
			cancel()
		}
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, context.DeadlineExceeded) && ctx.Err() == nil {
			lastErr = services.Wrap(services.ErrTimeout, "controller", operation, "deadline exceeded", nil)
		}
		// Not-found is definitive; retrying cannot change it.
		if errors.Is(lastErr, services.ErrNotFound) || ctx.Err() != nil || attempt == r.attempts {
			return lastErr
		}
		r.logger.Warn("controller read failed, retrying",
			logging.String("operation", operation),
			logging.Int(logging.FieldAttempt, attempt),
			logging.Duration("backoff", backoff),
			logging.Error(lastErr))
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := backoff * 2; next <= retryMaxBackoff {
			backoff = next
		}
	}
	return lastErr
}

func (r *Retrying) Item(ctx context.Context, id ID, fields ...Field) (*Item, error) {
	var item *Item
	err := r.read(ctx, "item", func(ctx context.Context) error {
		var innerErr error
		item, innerErr = r.inner.Item(ctx, id, fields...)
		return innerErr
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (r *Retrying) Items(ctx context.Context, fields ...Field) ([]Item, error) {
	var items []Item
	err := r.read(ctx, "items", func(ctx context.Context) error {
		var innerErr error
		items, innerErr = r.inner.Items(ctx, fields...)
		return innerErr
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *Retrying) IsActive(ctx context.Context, id ID) (bool, error) {
	var active bool
	err := r.read(ctx, "is_active", func(ctx context.Context) error {
		var innerErr error
		active, innerErr = r.inner.IsActive(ctx, id)
		return innerErr
	})
	if err != nil {
		return false, err
	}
	return active, nil
}

func (r *Retrying) Stop(ctx context.Context, id ID) error {
	return r.inner.Stop(ctx, id)
}

func (r *Retrying) Start(ctx context.Context, id ID) error {
	return r.inner.Start(ctx, id)
}

func (r *Retrying) SetDirectory(ctx context.Context, id ID, dir string) error {
	return r.inner.SetDirectory(ctx, id, dir)
}
