package store

import (
	"time"

	"github.com/noah-isme/calendar-ai-api/internal/models"
)

type sampleEvent struct {
	offsetDays int
	title      string
	time       string
	eventType  string
}

var sampleEvents = []sampleEvent{
	{2, "Design critique", "09:30", "meeting"},
	{4, "Engineering sync", "11:00", "meeting"},
	{6, "Launch prep", "15:00", "milestone"},
	{8, "Team offsite", "10:00", "social"},
	{10, "Sprint planning", "14:00", "planning"},
	{13, "Customer demo", "16:00", "demo"},
	{16, "Wellness hour", "12:30", "wellness"},
	{20, "Hackathon", "09:00", "social"},
	{24, "Roadmap review", "13:30", "planning"},
	{28, "Birthday celebration", "17:00", "social"},
}

// SampleEvents builds the fixed seed set with dates offset from now and
// deterministic ids 1..N in sample order.
func SampleEvents(now time.Time) []models.Event {
	events := make([]models.Event, len(sampleEvents))
	for i, sample := range sampleEvents {
		events[i] = models.Event{
			ID:    i + 1,
			Title: sample.title,
			Date:  now.AddDate(0, 0, sample.offsetDays).Format("2006-01-02"),
			Time:  sample.time,
			Type:  sample.eventType,
		}
	}
	return events
}
