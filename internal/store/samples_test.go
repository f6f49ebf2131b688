package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSampleEventsAreDeterministic(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	events := SampleEvents(now)
	require.Len(t, events, 10)

	for i, event := range events {
		assert.Equal(t, i+1, event.ID)
		assert.NotEmpty(t, event.Title)
		assert.NotEmpty(t, event.Type)
	}

	assert.Equal(t, "2026-08-30", events[0].Date)
	assert.Equal(t, "2026-09-25", events[9].Date)
	assert.Equal(t, events, SampleEvents(now))
}
