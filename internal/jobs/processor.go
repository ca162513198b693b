// Package jobs handles the background work published by the API.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"rollbook/internal/attendance"
	"rollbook/internal/cloudinary"
	"rollbook/internal/model"
	"rollbook/internal/observability"
	"rollbook/internal/queue"
)

// ErrUnknownType is returned for messages no handler claims.
var ErrUnknownType = errors.New("unknown job type")

// Archiver copies an upload to long-term storage.
type Archiver interface {
	UploadFile(ctx context.Context, path, publicID string) (*cloudinary.UploadResult, error)
}

// Remover deletes a transient upload.
type Remover interface {
	Remove(path string) error
}

// SummaryRefresher recomputes a cached daily summary.
type SummaryRefresher interface {
	RefreshSummary(ctx context.Context, userID model.ID, date string) (attendance.Summary, error)
}

// Processor dispatches queue messages by type.
type Processor struct {
	archiver  Archiver
	uploads   Remover
	summaries SummaryRefresher
	metrics   *observability.Metrics
	log       *slog.Logger
}

// NewProcessor builds a processor. archiver and metrics may be nil; without
// an archiver uploads are only removed.
func NewProcessor(archiver Archiver, uploads Remover, summaries SummaryRefresher, metrics *observability.Metrics, log *slog.Logger) *Processor {
	if log == nil {
		log = slog.Default()
	}
	return &Processor{archiver: archiver, uploads: uploads, summaries: summaries, metrics: metrics, log: log}
}

// Run handles messages until ctx is cancelled or the queue closes. Handler
// failures are logged and do not stop the loop.
func (p *Processor) Run(ctx context.Context, q queue.Queue) error {
	messages, err := q.Consume(ctx)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}
	p.log.InfoContext(ctx, "worker started")
	for msg := range messages {
		if err := p.Handle(ctx, msg); err != nil {
			p.log.ErrorContext(ctx, "job failed", "type", msg.Type, "err", err)
		}
	}
	p.log.InfoContext(ctx, "worker stopped")
	return nil
}

// Handle runs one message.
func (p *Processor) Handle(ctx context.Context, msg queue.Message) error {
	start := time.Now()
	var err error
	switch msg.Type {
	case queue.TypeRosterUploaded:
		err = p.rosterUploaded(ctx, msg.Body)
	case queue.TypeAttendanceSaved:
		err = p.attendanceSaved(ctx, msg.Body)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownType, msg.Type)
	}

	result := "done"
	switch {
	case errors.Is(err, ErrUnknownType):
		result = "skipped"
	case err != nil:
		result = "failed"
	}
	p.metrics.ObserveJob(msg.Type, result, time.Since(start))
	return err
}

func (p *Processor) rosterUploaded(ctx context.Context, body []byte) error {
	var job queue.RosterUploaded
	if err := json.Unmarshal(body, &job); err != nil {
		return fmt.Errorf("decode %s: %w", queue.TypeRosterUploaded, err)
	}
	if job.Path == "" {
		return fmt.Errorf("%s: empty path", queue.TypeRosterUploaded)
	}

	if p.archiver != nil {
		publicID := strings.TrimSuffix(filepath.Base(job.Path), filepath.Ext(job.Path))
		res, err := p.archiver.UploadFile(ctx, job.Path, publicID)
		if err != nil {
			// keep the local copy so the file is not lost
			return fmt.Errorf("archive %s: %w", job.Path, err)
		}
		p.log.InfoContext(ctx, "roster archived", "filename", job.Filename, "public_id", res.PublicID, "url", res.SecureURL)
	}

	if err := p.uploads.Remove(job.Path); err != nil {
		return fmt.Errorf("remove %s: %w", job.Path, err)
	}
	return nil
}

func (p *Processor) attendanceSaved(ctx context.Context, body []byte) error {
	var job queue.AttendanceSaved
	if err := json.Unmarshal(body, &job); err != nil {
		return fmt.Errorf("decode %s: %w", queue.TypeAttendanceSaved, err)
	}
	sum, err := p.summaries.RefreshSummary(ctx, job.UserID, job.Date)
	if err != nil {
		return fmt.Errorf("refresh summary for user %s: %w", job.UserID, err)
	}
	p.log.InfoContext(ctx, "summary refreshed", "user_id", job.UserID, "date", job.Date, "total", sum.Total)
	return nil
}
