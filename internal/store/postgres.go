package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/calendar-ai-api/internal/models"
)

// PostgresEventStore persists calendar events in Postgres, partitioned by
// user id.
type PostgresEventStore struct {
	db *sqlx.DB
}

// NewPostgresEventStore constructs the Postgres adapter.
func NewPostgresEventStore(db *sqlx.DB) *PostgresEventStore {
	return &PostgresEventStore{db: db}
}

// EnsureSchema creates the backing tables when missing. Dates and times are
// TEXT on purpose: ordering is defined lexicographically over the strings.
func (s *PostgresEventStore) EnsureSchema(ctx context.Context) error {
	const eventsTable = `
CREATE TABLE IF NOT EXISTS calendar_events (
	user_id    TEXT NOT NULL,
	id         INTEGER NOT NULL,
	title      TEXT NOT NULL,
	event_date TEXT NOT NULL,
	event_time TEXT NOT NULL,
	event_type TEXT NOT NULL,
	PRIMARY KEY (user_id, id)
)`
	if _, err := s.db.ExecContext(ctx, eventsTable); err != nil {
		return fmt.Errorf("create calendar_events table: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_calendar_events_user_date ON calendar_events (user_id, event_date)`); err != nil {
		return fmt.Errorf("create calendar_events index: %w", err)
	}
	const seedsTable = `
CREATE TABLE IF NOT EXISTS calendar_seeds (
	user_id   TEXT PRIMARY KEY,
	seeded_at TIMESTAMPTZ DEFAULT NOW()
)`
	if _, err := s.db.ExecContext(ctx, seedsTable); err != nil {
		return fmt.Errorf("create calendar_seeds table: %w", err)
	}
	return nil
}

// List returns the user's events sorted by (date, time).
func (s *PostgresEventStore) List(ctx context.Context, userID string) ([]models.Event, error) {
	const query = `SELECT id, title, event_date, event_time, event_type FROM calendar_events WHERE user_id = $1 ORDER BY event_date, event_time, id`
	events := []models.Event{}
	if err := s.db.SelectContext(ctx, &events, query, userID); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// Get fetches one event by id.
func (s *PostgresEventStore) Get(ctx context.Context, userID string, id int) (*models.Event, error) {
	const query = `SELECT id, title, event_date, event_time, event_type FROM calendar_events WHERE user_id = $1 AND id = $2`
	var event models.Event
	if err := s.db.GetContext(ctx, &event, query, userID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return &event, nil
}

// Insert stores a new event under the caller-assigned id.
func (s *PostgresEventStore) Insert(ctx context.Context, userID string, event models.Event) error {
	const query = `INSERT INTO calendar_events (user_id, id, title, event_date, event_time, event_type) VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := s.db.ExecContext(ctx, query, userID, event.ID, event.Title, event.Date, event.Time, event.Type); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// Update overwrites an existing event.
func (s *PostgresEventStore) Update(ctx context.Context, userID string, event models.Event) error {
	const query = `UPDATE calendar_events SET title = $3, event_date = $4, event_time = $5, event_type = $6 WHERE user_id = $1 AND id = $2`
	res, err := s.db.ExecContext(ctx, query, userID, event.ID, event.Title, event.Date, event.Time, event.Type)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes an event by id.
func (s *PostgresEventStore) Delete(ctx context.Context, userID string, id int) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM calendar_events WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Replace swaps the user's full collection inside one transaction.
func (s *PostgresEventStore) Replace(ctx context.Context, userID string, events []models.Event) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM calendar_events WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("clear events: %w", err)
	}
	const insert = `INSERT INTO calendar_events (user_id, id, title, event_date, event_time, event_type) VALUES ($1, $2, $3, $4, $5, $6)`
	for _, event := range events {
		if _, err := tx.ExecContext(ctx, insert, userID, event.ID, event.Title, event.Date, event.Time, event.Type); err != nil {
			return fmt.Errorf("insert event %d: %w", event.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace: %w", err)
	}
	return nil
}

// Seeded reports whether the user was ever seeded.
func (s *PostgresEventStore) Seeded(ctx context.Context, userID string) (bool, error) {
	var seeded bool
	if err := s.db.GetContext(ctx, &seeded, `SELECT EXISTS (SELECT 1 FROM calendar_seeds WHERE user_id = $1)`, userID); err != nil {
		return false, fmt.Errorf("check seed mark: %w", err)
	}
	return seeded, nil
}

// MarkSeeded records the seed mark exactly once.
func (s *PostgresEventStore) MarkSeeded(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, `INSERT INTO calendar_seeds (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`, userID); err != nil {
		return fmt.Errorf("mark seeded: %w", err)
	}
	return nil
}
