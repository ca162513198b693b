package roster

import (
	"context"
	"database/sql"

	"rollbook/internal/apperr"
	"rollbook/internal/model"
	"rollbook/internal/observability"
	"rollbook/internal/store"
)

// Repository persists roster entries.
type Repository struct {
	db      *sql.DB
	metrics *observability.Metrics
}

// NewRepository creates a repo. metrics may be nil.
func NewRepository(db *sql.DB, metrics *observability.Metrics) *Repository {
	return &Repository{db: db, metrics: metrics}
}

// InsertBatch stores every student in one transaction and returns them with
// ids assigned. Nothing is stored if any insert fails.
func (r *Repository) InsertBatch(ctx context.Context, students []model.Student) ([]model.Student, error) {
	out := make([]model.Student, len(students))
	err := r.metrics.ObserveDB("students.insert_batch", func() error {
		return store.WithTx(ctx, r.db, func(tx *sql.Tx) error {
			stmt, err := tx.PrepareContext(ctx, `
				INSERT INTO students (user_id, roll_number, name)
				VALUES ($1, $2, $3)
				RETURNING id
			`)
			if err != nil {
				return err
			}
			defer stmt.Close()

			for i, s := range students {
				if err := stmt.QueryRowContext(ctx, s.UserID, s.RollNumber, s.Name).Scan(&s.ID); err != nil {
					return err
				}
				out[i] = s
			}
			return nil
		})
	})
	if err != nil {
		if store.IsForeignKeyViolation(err) {
			return nil, apperr.NotFound("User not found")
		}
		return nil, err
	}
	return out, nil
}

// ListByUser returns the user's roster in insertion order.
func (r *Repository) ListByUser(ctx context.Context, userID model.ID) ([]model.Student, error) {
	out := []model.Student{}
	err := r.metrics.ObserveDB("students.list_by_user", func() error {
		rows, err := r.db.QueryContext(ctx, `
			SELECT id, user_id, roll_number, name
			FROM students
			WHERE user_id = $1
			ORDER BY id
		`, userID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var s model.Student
			if err := rows.Scan(&s.ID, &s.UserID, &s.RollNumber, &s.Name); err != nil {
				return err
			}
			out = append(out, s)
		}
		return rows.Err()
	})
	return out, err
}
