package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/calendar-ai-api/internal/models"
	"github.com/noah-isme/calendar-ai-api/internal/store"
	appErrors "github.com/noah-isme/calendar-ai-api/pkg/errors"
)

// DefaultUpcomingLimit caps the upcoming view when the caller does not ask
// for a specific number of events.
const DefaultUpcomingLimit = 5

// EventService provides calendar CRUD on top of an EventStore. Every read
// seeds the user's calendar on first contact so a fresh account starts with
// sample data instead of an empty page.
type EventService struct {
	store     store.EventStore
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewEventService constructs an EventService instance.
func NewEventService(eventStore store.EventStore, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *EventService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &EventService{
		store:     eventStore,
		cache:     cache,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

func eventsCacheKey(userID string) string {
	return fmt.Sprintf("events:%s", userID)
}

// List returns all of the user's events sorted by (date, time).
func (s *EventService) List(ctx context.Context, userID string) ([]models.Event, error) {
	if err := s.ensureSeeded(ctx, userID); err != nil {
		return nil, err
	}

	key := eventsCacheKey(userID)
	if s.cache != nil && s.cache.Enabled() {
		var cached []models.Event
		if s.cache.Get(ctx, key, &cached) {
			return cached, nil
		}
	}

	events, err := s.store.List(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list events")
	}
	models.SortEvents(events)

	if s.cache != nil && s.cache.Enabled() {
		s.cache.Set(ctx, key, events)
	}
	return events, nil
}

// ListByDate returns the user's events on one calendar day.
func (s *EventService) ListByDate(ctx context.Context, userID, date string) ([]models.Event, error) {
	events, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	filtered := make([]models.Event, 0, len(events))
	for _, event := range events {
		if event.Date == date {
			filtered = append(filtered, event)
		}
	}
	return filtered, nil
}

// ListUpcoming returns up to limit events on or after today.
func (s *EventService) ListUpcoming(ctx context.Context, userID string, limit int) ([]models.Event, error) {
	if limit <= 0 {
		limit = DefaultUpcomingLimit
	}
	events, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}

	today := s.now().Format("2006-01-02")
	upcoming := make([]models.Event, 0, limit)
	for _, event := range events {
		if event.Date < today {
			continue
		}
		upcoming = append(upcoming, event)
		if len(upcoming) == limit {
			break
		}
	}
	return upcoming, nil
}

// Create adds a single event with the next free id.
func (s *EventService) Create(ctx context.Context, userID string, req models.CreateEventRequest) (*models.Event, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid event payload")
	}
	if err := s.ensureSeeded(ctx, userID); err != nil {
		return nil, err
	}

	events, err := s.store.List(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list events")
	}

	event := models.Event{
		ID:    models.MaxEventID(events) + 1,
		Title: req.Title,
		Date:  req.Date,
		Time:  req.Time,
		Type:  req.Type,
	}
	if event.Type == "" {
		event.Type = models.DefaultEventType
	}

	if err := s.store.Insert(ctx, userID, event); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create event")
	}
	s.invalidate(ctx, userID)

	s.logger.Info("event created",
		zap.String("user_id", userID),
		zap.Int("event_id", event.ID))
	return &event, nil
}

// Update patches an existing event, preserving fields the patch omits.
func (s *EventService) Update(ctx context.Context, userID string, id int, req models.UpdateEventRequest) (*models.Event, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid event payload")
	}
	if !req.HasChanges() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "update requires at least one field")
	}

	event, err := s.store.Get(ctx, userID, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}

	if req.Title != nil {
		event.Title = *req.Title
	}
	if req.Date != nil {
		event.Date = *req.Date
	}
	if req.Time != nil {
		event.Time = *req.Time
	}
	if req.Type != nil {
		event.Type = *req.Type
	}

	if err := s.store.Update(ctx, userID, *event); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update event")
	}
	s.invalidate(ctx, userID)
	return event, nil
}

// Delete removes an event by id.
func (s *EventService) Delete(ctx context.Context, userID string, id int) error {
	if err := s.store.Delete(ctx, userID, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete event")
	}
	s.invalidate(ctx, userID)
	return nil
}

// ensureSeeded populates a never-before-seen calendar with sample events.
// The seed mark is separate from the event rows so a user who deletes
// everything keeps an empty calendar.
func (s *EventService) ensureSeeded(ctx context.Context, userID string) error {
	seeded, err := s.store.Seeded(ctx, userID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check seed state")
	}
	if seeded {
		return nil
	}

	samples := store.SampleEvents(s.now())
	if err := s.store.Replace(ctx, userID, samples); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to seed events")
	}
	if err := s.store.MarkSeeded(ctx, userID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark seed")
	}

	s.logger.Info("seeded sample events",
		zap.String("user_id", userID),
		zap.Int("count", len(samples)))
	return nil
}

func (s *EventService) invalidate(ctx context.Context, userID string) {
	if s.cache != nil && s.cache.Enabled() {
		s.cache.Invalidate(ctx, eventsCacheKey(userID))
	}
}
