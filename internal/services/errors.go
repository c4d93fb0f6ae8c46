package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTransient marks copy or verify failures that were retried and still failed.
	ErrTransient = errors.New("transient failure")
	// ErrSafety marks path-containment violations. Never retried, never bypassed.
	ErrSafety = errors.New("safety violation")
	// ErrContention marks coordination outcomes (lock busy, worker limit) that are
	// expected and produce a skip or queue result rather than a failure.
	ErrContention = errors.New("coordination contention")
	// ErrTimeout marks a bounded operation that exceeded its deadline.
	ErrTimeout = errors.New("timeout")
	// ErrNotFound marks a controller item that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConfiguration marks unusable configuration detected at runtime.
	ErrConfiguration = errors.New("configuration error")
	// ErrController marks a controller communication failure.
	ErrController = errors.New("controller error")
)

// Wrap builds an error that carries component context while tagging it with the
// provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsSkippable reports whether an error represents expected contention that the
// caller should log and skip rather than surface as a failure.
func IsSkippable(err error) bool {
	return errors.Is(err, ErrContention)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
