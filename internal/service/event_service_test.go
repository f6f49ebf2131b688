package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/calendar-ai-api/internal/models"
	appErrors "github.com/noah-isme/calendar-ai-api/pkg/errors"
)

func newEventServiceForTest(st *memStore) *EventService {
	svc := NewEventService(st, nil, nil, nil)
	svc.now = func() time.Time {
		return time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	}
	return svc
}

func TestEventServiceSeedsFirstContactOnly(t *testing.T) {
	st := newMemStore()
	svc := newEventServiceForTest(st)
	ctx := context.Background()

	events, err := svc.List(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, events, 10)

	seeded, err := st.Seeded(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, seeded)

	// Emptying the calendar must not trigger a reseed.
	require.NoError(t, st.Replace(ctx, "u1", []models.Event{}))
	events, err = svc.List(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestEventServiceListByDate(t *testing.T) {
	st := seededStore(
		models.Event{ID: 1, Title: "Match", Date: "2026-09-01", Time: "09:00", Type: "meeting"},
		models.Event{ID: 2, Title: "Other day", Date: "2026-09-02", Time: "09:00", Type: "meeting"},
	)
	svc := newEventServiceForTest(st)

	events, err := svc.ListByDate(context.Background(), "u1", "2026-09-01")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Match", events[0].Title)
}

func TestEventServiceListUpcomingSkipsPastAndCapsLimit(t *testing.T) {
	st := seededStore(
		models.Event{ID: 1, Title: "Past", Date: "2026-08-01", Time: "09:00", Type: "meeting"},
		models.Event{ID: 2, Title: "Today", Date: "2026-08-28", Time: "09:00", Type: "meeting"},
		models.Event{ID: 3, Title: "Soon", Date: "2026-08-29", Time: "09:00", Type: "meeting"},
		models.Event{ID: 4, Title: "Later", Date: "2026-09-10", Time: "09:00", Type: "meeting"},
	)
	svc := newEventServiceForTest(st)

	events, err := svc.ListUpcoming(context.Background(), "u1", 2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "Today", events[0].Title)
	assert.Equal(t, "Soon", events[1].Title)

	// Zero limit falls back to the default.
	events, err = svc.ListUpcoming(context.Background(), "u1", 0)
	require.NoError(t, err)
	assert.Len(t, events, 3)
}

func TestEventServiceCreateAssignsIDAndDefaultType(t *testing.T) {
	st := seededStore(
		models.Event{ID: 7, Title: "Existing", Date: "2026-09-01", Time: "09:00", Type: "meeting"},
	)
	svc := newEventServiceForTest(st)

	event, err := svc.Create(context.Background(), "u1", models.CreateEventRequest{
		Title: "New",
		Date:  "2026-09-02",
		Time:  "10:00",
	})
	require.NoError(t, err)
	assert.Equal(t, 8, event.ID)
	assert.Equal(t, models.DefaultEventType, event.Type)
}

func TestEventServiceCreateRejectsBadPayload(t *testing.T) {
	svc := newEventServiceForTest(seededStore())

	_, err := svc.Create(context.Background(), "u1", models.CreateEventRequest{
		Title: "Bad",
		Date:  "September 1st",
		Time:  "10:00",
	})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestEventServiceUpdatePreservesUnmentionedFields(t *testing.T) {
	st := seededStore(
		models.Event{ID: 1, Title: "Dentist", Date: "2026-09-01", Time: "14:30", Type: "appointment"},
	)
	svc := newEventServiceForTest(st)

	newTime := "15:00"
	event, err := svc.Update(context.Background(), "u1", 1, models.UpdateEventRequest{Time: &newTime})
	require.NoError(t, err)
	assert.Equal(t, "Dentist", event.Title)
	assert.Equal(t, "appointment", event.Type)
	assert.Equal(t, "15:00", event.Time)
}

func TestEventServiceUpdateRequiresChanges(t *testing.T) {
	svc := newEventServiceForTest(seededStore(
		models.Event{ID: 1, Title: "X", Date: "2026-09-01", Time: "09:00", Type: "meeting"},
	))

	_, err := svc.Update(context.Background(), "u1", 1, models.UpdateEventRequest{})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestEventServiceNotFoundMapping(t *testing.T) {
	svc := newEventServiceForTest(seededStore())

	title := "Ghost"
	_, err := svc.Update(context.Background(), "u1", 42, models.UpdateEventRequest{Title: &title})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)

	err = svc.Delete(context.Background(), "u1", 42)
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
