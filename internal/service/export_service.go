package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/noah-isme/calendar-ai-api/internal/models"
	appErrors "github.com/noah-isme/calendar-ai-api/pkg/errors"
	"github.com/noah-isme/calendar-ai-api/pkg/export"
	"github.com/noah-isme/calendar-ai-api/pkg/jobs"
	"github.com/noah-isme/calendar-ai-api/pkg/storage"
)

// ExportFormat enumerates supported agenda export formats.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportStatus tracks an export job through its lifecycle.
type ExportStatus string

const (
	ExportStatusQueued     ExportStatus = "queued"
	ExportStatusProcessing ExportStatus = "processing"
	ExportStatusFinished   ExportStatus = "finished"
	ExportStatusFailed     ExportStatus = "failed"
)

// ExportJob is the in-memory record of one agenda export. Jobs are transient:
// a restart drops them, the files themselves age out via cleanup.
type ExportJob struct {
	ID          string       `json:"id"`
	UserID      string       `json:"-"`
	Format      ExportFormat `json:"format"`
	Status      ExportStatus `json:"status"`
	DownloadURL string       `json:"download_url,omitempty"`
	Error       string       `json:"error,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	FinishedAt  *time.Time   `json:"finished_at,omitempty"`

	relPath string
}

// ExportDownload aggregates resolved download data.
type ExportDownload struct {
	File      *os.File
	Filename  string
	Format    ExportFormat
	ExpiresAt time.Time
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

// ExportServiceConfig governs download token TTL and cleanup cadence.
type ExportServiceConfig struct {
	ResultTTL        time.Duration
	CleanupSchedule  string
	DownloadBasePath string
}

// ExportService renders a user's agenda to CSV or PDF in the background and
// hands out signed download URLs for the results.
type ExportService struct {
	events  *EventService
	queue   jobDispatcher
	storage *storage.LocalStorage
	signer  *storage.SignedURLSigner
	csv     *export.CSVExporter
	pdf     *export.PDFExporter
	logger  *zap.Logger
	cfg     ExportServiceConfig

	mu      sync.Mutex
	jobByID map[string]*ExportJob

	cron *cron.Cron
}

// NewExportService constructs an ExportService instance.
func NewExportService(events *EventService, queue jobDispatcher, store *storage.LocalStorage, signer *storage.SignedURLSigner, logger *zap.Logger, cfg ExportServiceConfig) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if cfg.DownloadBasePath == "" {
		cfg.DownloadBasePath = "/api/v1/exports/download"
	}
	return &ExportService{
		events:  events,
		queue:   queue,
		storage: store,
		signer:  signer,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
		logger:  logger,
		cfg:     cfg,
		jobByID: make(map[string]*ExportJob),
	}
}

// CreateJob registers an export job and enqueues rendering.
func (s *ExportService) CreateJob(ctx context.Context, userID string, format ExportFormat) (*ExportJob, error) {
	if format != ExportFormatCSV && format != ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}

	job := &ExportJob{
		ID:        uuid.NewString(),
		UserID:    userID,
		Format:    format,
		Status:    ExportStatusQueued,
		CreatedAt: time.Now().UTC(),
	}
	s.mu.Lock()
	s.jobByID[job.ID] = job
	s.mu.Unlock()

	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: "agenda-export"}); err != nil {
		s.fail(job.ID, "failed to enqueue export")
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue export job")
	}
	return s.snapshot(job.ID), nil
}

// GetStatus returns job metadata, enforcing ownership.
func (s *ExportService) GetStatus(id, userID string) (*ExportJob, error) {
	s.mu.Lock()
	job, ok := s.jobByID[id]
	var owner string
	if ok {
		owner = job.UserID
	}
	s.mu.Unlock()

	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
	}
	if owner != userID {
		return nil, appErrors.ErrForbidden
	}
	return s.snapshot(id), nil
}

// Handle renders one export. It is the queue's worker handler.
func (s *ExportService) Handle(ctx context.Context, job jobs.Job) error {
	record := s.snapshot(job.ID)
	if record == nil {
		s.logger.Warn("export job vanished", zap.String("job_id", job.ID))
		return nil
	}
	s.transition(job.ID, ExportStatusProcessing)

	events, err := s.events.List(ctx, record.UserID)
	if err != nil {
		s.fail(job.ID, "failed to load events")
		return err
	}

	data, relPath, err := s.render(record, events)
	if err != nil {
		s.fail(job.ID, "failed to render agenda")
		return err
	}
	if _, err := s.storage.Save(relPath, data); err != nil {
		s.fail(job.ID, "failed to store export")
		return err
	}

	token, _, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		s.fail(job.ID, "failed to sign download url")
		return err
	}

	now := time.Now().UTC()
	s.mu.Lock()
	if rec, ok := s.jobByID[job.ID]; ok {
		rec.Status = ExportStatusFinished
		rec.DownloadURL = fmt.Sprintf("%s?token=%s", s.cfg.DownloadBasePath, token)
		rec.FinishedAt = &now
		rec.relPath = relPath
	}
	s.mu.Unlock()

	s.logger.Info("agenda export finished",
		zap.String("job_id", job.ID),
		zap.String("format", string(record.Format)),
		zap.Int("events", len(events)))
	return nil
}

// ResolveDownload validates a token and opens the stored export file.
func (s *ExportService) ResolveDownload(token string) (*ExportDownload, error) {
	jobID, relPath, expiresAt, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}

	s.mu.Lock()
	job, ok := s.jobByID[jobID]
	var status ExportStatus
	var format ExportFormat
	if ok {
		status = job.Status
		format = job.Format
	}
	s.mu.Unlock()

	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
	}
	if status != ExportStatusFinished {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "export not ready")
	}

	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open export file")
	}
	return &ExportDownload{
		File:      file,
		Filename:  filepath.Base(relPath),
		Format:    format,
		ExpiresAt: expiresAt,
	}, nil
}

// StartCleanup schedules periodic removal of expired export files.
func (s *ExportService) StartCleanup(schedule string) error {
	if schedule == "" {
		return nil
	}
	s.cron = cron.New()
	if _, err := s.cron.AddFunc(schedule, s.cleanupExpired); err != nil {
		return fmt.Errorf("schedule export cleanup: %w", err)
	}
	s.cron.Start()
	return nil
}

// StopCleanup halts the cleanup schedule and waits for a running pass.
func (s *ExportService) StopCleanup() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}

func (s *ExportService) cleanupExpired() {
	deleted, err := s.storage.CleanupOlderThan(s.cfg.ResultTTL)
	if err != nil {
		s.logger.Warn("export cleanup failed", zap.Error(err))
		return
	}
	if len(deleted) == 0 {
		return
	}

	cutoff := time.Now().UTC().Add(-s.cfg.ResultTTL)
	s.mu.Lock()
	for id, job := range s.jobByID {
		if job.FinishedAt != nil && job.FinishedAt.Before(cutoff) {
			delete(s.jobByID, id)
		}
	}
	s.mu.Unlock()

	s.logger.Info("export cleanup removed files", zap.Int("count", len(deleted)))
}

func (s *ExportService) render(job *ExportJob, events []models.Event) ([]byte, string, error) {
	dataset := export.Dataset{
		Headers: []string{"ID", "Title", "Date", "Time", "Type"},
		Rows:    make([]map[string]string, 0, len(events)),
	}
	for _, event := range events {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"ID":    fmt.Sprintf("%d", event.ID),
			"Title": event.Title,
			"Date":  event.Date,
			"Time":  event.Time,
			"Type":  event.Type,
		})
	}

	relPath := fmt.Sprintf("agenda/agenda-%s.%s", job.ID, job.Format)
	switch job.Format {
	case ExportFormatPDF:
		data, err := s.pdf.Render(dataset, "Agenda")
		return data, relPath, err
	default:
		data, err := s.csv.Render(dataset)
		return data, relPath, err
	}
}

func (s *ExportService) transition(id string, status ExportStatus) {
	s.mu.Lock()
	if job, ok := s.jobByID[id]; ok {
		job.Status = status
	}
	s.mu.Unlock()
}

func (s *ExportService) fail(id, message string) {
	now := time.Now().UTC()
	s.mu.Lock()
	if job, ok := s.jobByID[id]; ok {
		job.Status = ExportStatusFailed
		job.Error = message
		job.FinishedAt = &now
	}
	s.mu.Unlock()
}

func (s *ExportService) snapshot(id string) *ExportJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobByID[id]
	if !ok {
		return nil
	}
	clone := *job
	return &clone
}
