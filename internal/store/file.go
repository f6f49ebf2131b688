package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/noah-isme/calendar-ai-api/internal/models"
)

// FileEventStore keeps each user's calendar in a flat JSON document under a
// data directory. The mutex serializes writes for file integrity; it is not
// a cross-request ordering guarantee.
type FileEventStore struct {
	dir string
	mu  sync.Mutex
}

type userDocument struct {
	Seeded bool           `json:"seeded"`
	Events []models.Event `json:"events"`
}

// NewFileEventStore ensures the data directory exists and returns the
// adapter.
func NewFileEventStore(dataDir string) (*FileEventStore, error) {
	dir := filepath.Join(dataDir, "events")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create events data directory: %w", err)
	}
	return &FileEventStore{dir: dir}, nil
}

// List returns the user's events sorted by (date, time).
func (s *FileEventStore) List(ctx context.Context, userID string) ([]models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.read(userID)
	if err != nil {
		return nil, err
	}
	models.SortEvents(doc.Events)
	return doc.Events, nil
}

// Get fetches one event by id.
func (s *FileEventStore) Get(ctx context.Context, userID string, id int) (*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.read(userID)
	if err != nil {
		return nil, err
	}
	for _, event := range doc.Events {
		if event.ID == id {
			found := event
			return &found, nil
		}
	}
	return nil, ErrNotFound
}

// Insert appends a new event.
func (s *FileEventStore) Insert(ctx context.Context, userID string, event models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.read(userID)
	if err != nil {
		return err
	}
	doc.Events = append(doc.Events, event)
	return s.write(userID, doc)
}

// Update overwrites an existing event.
func (s *FileEventStore) Update(ctx context.Context, userID string, event models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.read(userID)
	if err != nil {
		return err
	}
	for i := range doc.Events {
		if doc.Events[i].ID == event.ID {
			doc.Events[i] = event
			return s.write(userID, doc)
		}
	}
	return ErrNotFound
}

// Delete removes an event by id.
func (s *FileEventStore) Delete(ctx context.Context, userID string, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.read(userID)
	if err != nil {
		return err
	}
	for i := range doc.Events {
		if doc.Events[i].ID == id {
			doc.Events = append(doc.Events[:i], doc.Events[i+1:]...)
			return s.write(userID, doc)
		}
	}
	return ErrNotFound
}

// Replace swaps the user's full collection in one write.
func (s *FileEventStore) Replace(ctx context.Context, userID string, events []models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.read(userID)
	if err != nil {
		return err
	}
	doc.Events = events
	return s.write(userID, doc)
}

// Seeded reports whether the user's document carries the seed mark.
func (s *FileEventStore) Seeded(ctx context.Context, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.read(userID)
	if err != nil {
		return false, err
	}
	return doc.Seeded, nil
}

// MarkSeeded persists the seed mark.
func (s *FileEventStore) MarkSeeded(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.read(userID)
	if err != nil {
		return err
	}
	doc.Seeded = true
	return s.write(userID, doc)
}

func (s *FileEventStore) path(userID string) string {
	// User ids are UUIDs; the replacement guards against anything that could
	// escape the data directory.
	safe := strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(userID)
	return filepath.Join(s.dir, safe+".json")
}

func (s *FileEventStore) read(userID string) (*userDocument, error) {
	content, err := os.ReadFile(s.path(userID))
	if err != nil {
		if os.IsNotExist(err) {
			return &userDocument{Events: []models.Event{}}, nil
		}
		return nil, fmt.Errorf("read events for %s: %w", userID, err)
	}
	var doc userDocument
	if err := json.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("decode events for %s: %w", userID, err)
	}
	if doc.Events == nil {
		doc.Events = []models.Event{}
	}
	return &doc, nil
}

func (s *FileEventStore) write(userID string, doc *userDocument) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode events for %s: %w", userID, err)
	}
	if err := os.WriteFile(s.path(userID), append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write events for %s: %w", userID, err)
	}
	return nil
}
