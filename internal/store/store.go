// Package store defines the persistence port for per-user calendar events
// and its two interchangeable adapters: a Postgres-backed store and a flat
// JSON file store. Services are agnostic to which adapter is active.
package store

import (
	"context"
	"errors"

	"github.com/noah-isme/calendar-ai-api/internal/models"
)

// ErrNotFound is returned when an event id does not resolve for the user.
var ErrNotFound = errors.New("event not found")

// EventStore persists one ordered event collection per user. Implementations
// must keep users fully isolated: an operation for one user can never observe
// or modify another user's events.
type EventStore interface {
	// List returns every event for the user sorted by (date, time).
	List(ctx context.Context, userID string) ([]models.Event, error)
	// Get returns the event with the given id or ErrNotFound.
	Get(ctx context.Context, userID string, id int) (*models.Event, error)
	// Insert stores a new event under the caller-assigned id.
	Insert(ctx context.Context, userID string, event models.Event) error
	// Update overwrites an existing event, ErrNotFound when absent.
	Update(ctx context.Context, userID string, event models.Event) error
	// Delete removes an event, ErrNotFound when absent.
	Delete(ctx context.Context, userID string, id int) error
	// Replace swaps the user's entire collection in one write.
	Replace(ctx context.Context, userID string, events []models.Event) error
	// Seeded reports whether the user's collection was ever seeded.
	Seeded(ctx context.Context, userID string) (bool, error)
	// MarkSeeded records that seeding happened so it is never repeated.
	MarkSeeded(ctx context.Context, userID string) error
}
