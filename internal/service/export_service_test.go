package service

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/calendar-ai-api/internal/models"
	appErrors "github.com/noah-isme/calendar-ai-api/pkg/errors"
	"github.com/noah-isme/calendar-ai-api/pkg/jobs"
	"github.com/noah-isme/calendar-ai-api/pkg/storage"
)

// inlineQueue runs jobs synchronously through the wired handler.
type inlineQueue struct {
	handler jobs.Handler
	err     error
}

func (q *inlineQueue) Enqueue(job jobs.Job) error {
	if q.err != nil {
		return q.err
	}
	return q.handler(context.Background(), job)
}

func newExportServiceForTest(t *testing.T, st *memStore) (*ExportService, *inlineQueue) {
	t.Helper()
	local, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("export-secret", time.Hour)

	queue := &inlineQueue{}
	svc := NewExportService(newEventServiceForTest(st), queue, local, signer, nil, ExportServiceConfig{
		ResultTTL:        time.Hour,
		DownloadBasePath: "/api/v1/exports/download",
	})
	queue.handler = svc.Handle
	return svc, queue
}

func TestExportServiceRendersCSV(t *testing.T) {
	st := seededStore(
		models.Event{ID: 1, Title: "Dentist", Date: "2026-09-01", Time: "14:30", Type: "appointment"},
	)
	svc, _ := newExportServiceForTest(t, st)

	job, err := svc.CreateJob(context.Background(), "u1", ExportFormatCSV)
	require.NoError(t, err)

	status, err := svc.GetStatus(job.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, ExportStatusFinished, status.Status)
	require.NotEmpty(t, status.DownloadURL)
	assert.Contains(t, status.DownloadURL, "/api/v1/exports/download?token=")

	token := strings.TrimPrefix(status.DownloadURL, "/api/v1/exports/download?token=")
	download, err := svc.ResolveDownload(token)
	require.NoError(t, err)
	defer download.File.Close() //nolint:errcheck

	content, err := io.ReadAll(download.File)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "ID,Title,Date,Time,Type", strings.TrimSpace(lines[0]))
	assert.Equal(t, "1,Dentist,2026-09-01,14:30,appointment", strings.TrimSpace(lines[1]))
	assert.Equal(t, ExportFormatCSV, download.Format)
}

func TestExportServiceRendersPDF(t *testing.T) {
	st := seededStore(
		models.Event{ID: 1, Title: "Dentist", Date: "2026-09-01", Time: "14:30", Type: "appointment"},
	)
	svc, _ := newExportServiceForTest(t, st)

	job, err := svc.CreateJob(context.Background(), "u1", ExportFormatPDF)
	require.NoError(t, err)

	status, err := svc.GetStatus(job.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, ExportStatusFinished, status.Status)

	token := strings.TrimPrefix(status.DownloadURL, "/api/v1/exports/download?token=")
	download, err := svc.ResolveDownload(token)
	require.NoError(t, err)
	defer download.File.Close() //nolint:errcheck

	header := make([]byte, 4)
	_, err = download.File.Read(header)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(header))
}

func TestExportServiceRejectsUnknownFormat(t *testing.T) {
	svc, _ := newExportServiceForTest(t, seededStore())

	_, err := svc.CreateJob(context.Background(), "u1", "xlsx")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestExportServiceEnforcesOwnership(t *testing.T) {
	svc, _ := newExportServiceForTest(t, seededStore())

	job, err := svc.CreateJob(context.Background(), "u1", ExportFormatCSV)
	require.NoError(t, err)

	_, err = svc.GetStatus(job.ID, "someone-else")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)

	_, err = svc.GetStatus("missing-job", "u1")
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestExportServiceRejectsBadToken(t *testing.T) {
	svc, _ := newExportServiceForTest(t, seededStore())

	_, err := svc.ResolveDownload("bogus-token")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}
