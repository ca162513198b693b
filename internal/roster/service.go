package roster

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"rollbook/internal/apperr"
	"rollbook/internal/model"
	"rollbook/internal/observability"
	"rollbook/internal/queue"
)

// Store is what the service needs from persistence.
type Store interface {
	InsertBatch(ctx context.Context, students []model.Student) ([]model.Student, error)
	ListByUser(ctx context.Context, userID model.ID) ([]model.Student, error)
}

// Service imports spreadsheets and saves rosters with assigned roll numbers.
type Service struct {
	repo    Store
	jobs    queue.Queue
	metrics *observability.Metrics
	log     *slog.Logger
}

// NewService wires a roster service. jobs and metrics may be nil.
func NewService(repo Store, jobs queue.Queue, metrics *observability.Metrics, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{repo: repo, jobs: jobs, metrics: metrics, log: log}
}

// SaveStudents assigns roll numbers from startRoll in input order and stores
// the roster for userID. Either every student is saved or none is. Blank
// names are kept, matching rows the importer found without a name cell.
func (s *Service) SaveStudents(ctx context.Context, userID model.ID, names []string, startRoll string) ([]model.Student, error) {
	if userID <= 0 {
		return nil, apperr.Invalid("userId is required")
	}
	if len(names) == 0 {
		return nil, apperr.Invalid("students must not be empty")
	}
	if strings.TrimSpace(startRoll) == "" {
		return nil, apperr.Invalid("startRoll is required")
	}

	rolls, err := AssignRolls(startRoll, len(names))
	if err != nil {
		return nil, err
	}

	batch := make([]model.Student, len(names))
	for i, n := range names {
		batch[i] = model.Student{UserID: userID, RollNumber: rolls[i], Name: strings.TrimSpace(n)}
	}
	s.metrics.ObserveBatch("students", len(batch))

	saved, err := s.repo.InsertBatch(ctx, batch)
	if err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "roster saved", "user_id", userID, "count", len(saved), "first_roll", rolls[0])
	return saved, nil
}

// List returns the roster of userID.
func (s *Service) List(ctx context.Context, userID model.ID) ([]model.Student, error) {
	if userID <= 0 {
		return nil, apperr.Invalid("userId is required")
	}
	return s.repo.ListByUser(ctx, userID)
}

// Import parses a stored upload and hands the file to the worker for archival
// and cleanup. A file that cannot be parsed is removed right away.
func (s *Service) Import(ctx context.Context, path, filename string) ([]Candidate, error) {
	candidates, err := ParseFile(path)
	if err != nil {
		if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
			s.log.WarnContext(ctx, "remove rejected upload", "path", path, "err", rmErr)
		}
		return nil, err
	}
	s.metrics.ObserveBatch("upload", len(candidates))

	if s.jobs != nil {
		job := queue.RosterUploaded{Path: path, Filename: filename}
		if err := queue.PublishJSON(ctx, s.jobs, queue.TypeRosterUploaded, job); err != nil {
			s.log.WarnContext(ctx, "publish roster upload job", "path", path, "err", err)
		}
	}
	return candidates, nil
}
