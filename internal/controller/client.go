package controller

import "context"

// Client is the controller capability consumed by shuttle. Read operations
// (Item, Items, IsActive) may be wrapped with retry semantics; commands
// (Stop, Start, SetDirectory) surface failures immediately.
type Client interface {
	// Item fetches a single item with the requested fields populated.
	// Returns an error wrapping services.ErrNotFound when the id is unknown.
	Item(ctx context.Context, id ID, fields ...Field) (*Item, error)
	// Items enumerates every item the controller manages, with the requested
	// fields populated on each.
	Items(ctx context.Context, fields ...Field) ([]Item, error)
	// IsActive reports whether the item is currently started.
	IsActive(ctx context.Context, id ID) (bool, error)
	// Stop and Start are best-effort lifecycle commands with no guaranteed
	// synchronous completion.
	Stop(ctx context.Context, id ID) error
	Start(ctx context.Context, id ID) error
	// SetDirectory repoints the controller's stored location for the item
	// without moving any bytes.
	SetDirectory(ctx context.Context, id ID, dir string) error
}
