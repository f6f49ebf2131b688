package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/calendar-ai-api/internal/models"
	"github.com/noah-isme/calendar-ai-api/internal/plan"
	"github.com/noah-isme/calendar-ai-api/internal/store"
	appErrors "github.com/noah-isme/calendar-ai-api/pkg/errors"
)

// Skip reasons reported per operation. Operations that cannot be applied are
// skipped with one of these, never failing the batch.
const (
	SkipUnsupportedAction = "Unsupported action"
	SkipCreateMissing     = "Create requires title, date, and time"
	SkipMissingID         = "Update/delete operations require an id"
	SkipEventNotFound     = "Event not found"
)

// ApplyService applies a validated plan to a user's calendar. The whole batch
// runs against an in-memory working copy and is persisted in one Replace, so
// readers never observe a half-applied plan.
type ApplyService struct {
	store   store.EventStore
	cache   *CacheService
	metrics *MetricsService
	logger  *zap.Logger
}

// NewApplyService constructs an ApplyService instance.
func NewApplyService(eventStore store.EventStore, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *ApplyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ApplyService{store: eventStore, cache: cache, metrics: metrics, logger: logger}
}

// Apply executes the plan's operations in order against the user's events.
// Each operation is independently applied or skipped; results come back in
// input order and the final event list is sorted by (date, time).
func (s *ApplyService) Apply(ctx context.Context, userID string, p *plan.Plan) (*models.ApplyResult, error) {
	events, err := s.store.List(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load events")
	}

	// nextID only moves forward within the batch, so ids deleted earlier in
	// the same plan are never handed out again.
	nextID := models.MaxEventID(events)
	results := make([]models.OperationResult, 0, len(p.Operations))

	for i, op := range p.Operations {
		result := models.OperationResult{Index: i}

		switch op.Action {
		case plan.ActionCreate:
			if op.Title == nil || op.Date == nil || op.Time == nil {
				result.Status = models.OperationSkipped
				result.Reason = SkipCreateMissing
				break
			}
			nextID++
			event := models.Event{
				ID:    nextID,
				Title: *op.Title,
				Date:  *op.Date,
				Time:  *op.Time,
				Type:  models.DefaultEventType,
			}
			if op.Type != nil {
				event.Type = *op.Type
			}
			events = append(events, event)
			result.Status = models.OperationCreated
			result.Event = &event

		case plan.ActionUpdate:
			if op.ID <= 0 {
				result.Status = models.OperationSkipped
				result.Reason = SkipMissingID
				break
			}
			idx := indexOf(events, op.ID)
			if idx < 0 {
				result.Status = models.OperationSkipped
				result.Reason = SkipEventNotFound
				break
			}
			event := &events[idx]
			if op.Title != nil {
				event.Title = *op.Title
			}
			if op.Date != nil {
				event.Date = *op.Date
			}
			if op.Time != nil {
				event.Time = *op.Time
			}
			if op.Type != nil {
				event.Type = *op.Type
			}
			snapshot := *event
			result.Status = models.OperationUpdated
			result.Event = &snapshot

		case plan.ActionDelete:
			if op.ID <= 0 {
				result.Status = models.OperationSkipped
				result.Reason = SkipMissingID
				break
			}
			idx := indexOf(events, op.ID)
			if idx < 0 {
				result.Status = models.OperationSkipped
				result.Reason = SkipEventNotFound
				break
			}
			snapshot := events[idx]
			events = append(events[:idx], events[idx+1:]...)
			result.Status = models.OperationDeleted
			result.Event = &snapshot

		default:
			result.Status = models.OperationSkipped
			result.Reason = SkipUnsupportedAction
		}

		if s.metrics != nil {
			s.metrics.RecordOperationResult(result.Status)
		}
		results = append(results, result)
	}

	models.SortEvents(events)
	if err := s.store.Replace(ctx, userID, events); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist events")
	}
	if s.cache != nil && s.cache.Enabled() {
		s.cache.Invalidate(ctx, eventsCacheKey(userID))
	}

	s.logger.Info("plan applied",
		zap.String("user_id", userID),
		zap.Int("operations", len(p.Operations)),
		zap.Int("events", len(events)))
	return &models.ApplyResult{Events: events, Results: results}, nil
}

func indexOf(events []models.Event, id int) int {
	for i, event := range events {
		if event.ID == id {
			return i
		}
	}
	return -1
}
