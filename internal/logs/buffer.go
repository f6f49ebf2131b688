// Package logs implements the in-process diagnostic sink the AI pipeline
// writes to. It is a capped ring buffer: fire-and-forget on write, queryable
// by since-id for incremental tailing, and never consulted for control flow.
package logs

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// DefaultCapacity bounds the buffer when no capacity is configured.
const DefaultCapacity = 500

// Entry is one recorded diagnostic event.
type Entry struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	Detail    string    `json:"detail"`
}

// Buffer is a mutex-guarded ring buffer of entries. Once capacity is
// exceeded the oldest entry is dropped.
type Buffer struct {
	mu       sync.Mutex
	entries  []Entry
	nextID   int64
	capacity int
}

// NewBuffer constructs a buffer holding at most capacity entries.
func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{capacity: capacity, nextID: 1}
}

// Record appends an entry. Detail values that are not strings are JSON
// encoded; values that cannot be serialized degrade to an error note.
func (b *Buffer) Record(source, level, message string, detail interface{}) {
	if level == "" {
		level = "info"
	}
	entry := Entry{
		Timestamp: time.Now().UTC(),
		Source:    source,
		Level:     level,
		Message:   message,
		Detail:    stringifyDetail(detail),
	}

	b.mu.Lock()
	entry.ID = b.nextID
	b.nextID++
	b.entries = append(b.entries, entry)
	if len(b.entries) > b.capacity {
		b.entries = b.entries[1:]
	}
	b.mu.Unlock()
}

// Since returns every retained entry with an id greater than sinceID, oldest
// first.
func (b *Buffer) Since(sinceID int64) []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()

	result := make([]Entry, 0, len(b.entries))
	for _, entry := range b.entries {
		if entry.ID > sinceID {
			result = append(result, entry)
		}
	}
	return result
}

func stringifyDetail(detail interface{}) string {
	if detail == nil {
		return ""
	}
	if s, ok := detail.(string); ok {
		return s
	}
	data, err := json.MarshalIndent(detail, "", "  ")
	if err != nil {
		return fmt.Sprintf("Unserializable value: %v", err)
	}
	return string(data)
}
