package attendance

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"rollbook/internal/apperr"
	"rollbook/internal/cache"
	"rollbook/internal/model"
	"rollbook/internal/observability"
	"rollbook/internal/queue"
)

// lookupLimit bounds concurrent roll lookups per batch.
const lookupLimit = 8

// Store is what the service needs from persistence.
type Store interface {
	FindStudentID(ctx context.Context, userID model.ID, roll string) (model.ID, bool, error)
	InsertRecords(ctx context.Context, records []model.AttendanceRecord) error
	List(ctx context.Context, userID model.ID, date string) ([]model.AttendanceEntry, error)
	CountByStatus(ctx context.Context, userID model.ID, date string) (map[string]int, error)
}

// Mark is one submitted status for a roll number.
type Mark struct {
	Roll   string `json:"roll"`
	Status string `json:"status"`
}

// Summary counts a user's marks on one date.
type Summary struct {
	UserID   model.ID       `json:"userId"`
	Date     string         `json:"date"`
	Total    int            `json:"total"`
	ByStatus map[string]int `json:"byStatus"`
}

// Service records and reports attendance.
type Service struct {
	repo     Store
	cache    cache.Cache
	cacheTTL time.Duration
	jobs     queue.Queue
	metrics  *observability.Metrics
	log      *slog.Logger
}

// NewService wires an attendance service. A nil cache falls back to an
// in-process one; jobs and metrics may be nil.
func NewService(repo Store, c cache.Cache, cacheTTL time.Duration, jobs queue.Queue, metrics *observability.Metrics, log *slog.Logger) *Service {
	if c == nil {
		c = cache.NewMemory()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{repo: repo, cache: c, cacheTTL: cacheTTL, jobs: jobs, metrics: metrics, log: log}
}

// Record resolves every roll within userID's roster and appends one mark per
// entry. Nothing is written unless every roll resolves; when several are
// missing the earliest in the batch is reported. Repeat submissions append.
func (s *Service) Record(ctx context.Context, userID model.ID, date string, marks []Mark) error {
	date = strings.TrimSpace(date)
	if date == "" || userID <= 0 || len(marks) == 0 {
		return apperr.Invalid("Missing required fields: date, attendance, or userId")
	}
	s.metrics.ObserveBatch("attendance", len(marks))

	ids := make([]model.ID, len(marks))
	found := make([]bool, len(marks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(lookupLimit)
	for i, m := range marks {
		g.Go(func() error {
			id, ok, err := s.repo.FindStudentID(gctx, userID, m.Roll)
			if err != nil {
				return fmt.Errorf("find student %q: %w", m.Roll, err)
			}
			ids[i], found[i] = id, ok
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	records := make([]model.AttendanceRecord, len(marks))
	for i, m := range marks {
		if !found[i] {
			return apperr.NotFound("Student with roll number %s not found", m.Roll)
		}
		records[i] = model.AttendanceRecord{StudentID: ids[i], Date: date, Status: m.Status}
	}

	if err := s.repo.InsertRecords(ctx, records); err != nil {
		return err
	}
	s.log.InfoContext(ctx, "attendance saved", "user_id", userID, "date", date, "count", len(records))

	if err := s.cache.Delete(ctx, cache.SummaryKey(userID, date)); err != nil {
		s.log.WarnContext(ctx, "summary cache evict failed", "user_id", userID, "date", date, "err", err)
	}
	if s.jobs != nil {
		job := queue.AttendanceSaved{UserID: userID, Date: date}
		if err := queue.PublishJSON(ctx, s.jobs, queue.TypeAttendanceSaved, job); err != nil {
			s.log.WarnContext(ctx, "publish attendance job", "user_id", userID, "err", err)
		}
	}
	return nil
}

// List returns userID's marks, optionally limited to one date.
func (s *Service) List(ctx context.Context, userID model.ID, date string) ([]model.AttendanceEntry, error) {
	if userID <= 0 {
		return nil, apperr.Invalid("userId is required")
	}
	return s.repo.List(ctx, userID, strings.TrimSpace(date))
}

// Summary returns per-status counts for date, from cache when present.
func (s *Service) Summary(ctx context.Context, userID model.ID, date string) (Summary, error) {
	date = strings.TrimSpace(date)
	if userID <= 0 || date == "" {
		return Summary{}, apperr.Invalid("userId and date are required")
	}

	var sum Summary
	hit, err := s.cache.Get(ctx, cache.SummaryKey(userID, date), &sum)
	if err != nil {
		s.log.WarnContext(ctx, "summary cache read failed", "user_id", userID, "date", date, "err", err)
	}
	if hit {
		return sum, nil
	}
	return s.RefreshSummary(ctx, userID, date)
}

// RefreshSummary recomputes the summary from the store and caches it.
func (s *Service) RefreshSummary(ctx context.Context, userID model.ID, date string) (Summary, error) {
	counts, err := s.repo.CountByStatus(ctx, userID, date)
	if err != nil {
		return Summary{}, err
	}
	sum := Summary{UserID: userID, Date: date, ByStatus: counts}
	for _, n := range counts {
		sum.Total += n
	}
	if err := s.cache.Set(ctx, cache.SummaryKey(userID, date), sum, s.cacheTTL); err != nil {
		s.log.WarnContext(ctx, "summary cache write failed", "user_id", userID, "date", date, "err", err)
	}
	return sum, nil
}
