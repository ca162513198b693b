package attendance

import (
	"context"
	"database/sql"
	"errors"

	"rollbook/internal/model"
	"rollbook/internal/observability"
	"rollbook/internal/store"
)

// Repository persists attendance marks.
type Repository struct {
	db      *sql.DB
	metrics *observability.Metrics
}

// NewRepository creates a repo. metrics may be nil.
func NewRepository(db *sql.DB, metrics *observability.Metrics) *Repository {
	return &Repository{db: db, metrics: metrics}
}

// FindStudentID resolves a roll number within one user's roster. found is
// false when the roll does not exist for that user.
func (r *Repository) FindStudentID(ctx context.Context, userID model.ID, roll string) (id model.ID, found bool, err error) {
	err = r.metrics.ObserveDB("students.find_by_roll", func() error {
		return r.db.QueryRowContext(ctx, `
			SELECT id FROM students
			WHERE user_id = $1 AND roll_number = $2
			ORDER BY id
			LIMIT 1
		`, userID, roll).Scan(&id)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

// InsertRecords appends every record in one transaction.
func (r *Repository) InsertRecords(ctx context.Context, records []model.AttendanceRecord) error {
	return r.metrics.ObserveDB("attendance.insert_batch", func() error {
		return store.WithTx(ctx, r.db, func(tx *sql.Tx) error {
			stmt, err := tx.PrepareContext(ctx, `
				INSERT INTO attendance (student_id, date, status)
				VALUES ($1, $2, $3)
			`)
			if err != nil {
				return err
			}
			defer stmt.Close()

			for _, rec := range records {
				if _, err := stmt.ExecContext(ctx, rec.StudentID, rec.Date, rec.Status); err != nil {
					return err
				}
			}
			return nil
		})
	})
}

// List returns the user's attendance joined with student details, oldest
// first. An empty date returns every date.
func (r *Repository) List(ctx context.Context, userID model.ID, date string) ([]model.AttendanceEntry, error) {
	out := []model.AttendanceEntry{}
	err := r.metrics.ObserveDB("attendance.list", func() error {
		rows, err := r.db.QueryContext(ctx, `
			SELECT a.id, a.student_id, a.date, a.status, s.roll_number, s.name
			FROM attendance a
			JOIN students s ON s.id = a.student_id
			WHERE s.user_id = $1 AND ($2 = '' OR a.date = $2)
			ORDER BY a.date, a.id
		`, userID, date)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var e model.AttendanceEntry
			if err := rows.Scan(&e.ID, &e.StudentID, &e.Date, &e.Status, &e.RollNumber, &e.Name); err != nil {
				return err
			}
			out = append(out, e)
		}
		return rows.Err()
	})
	return out, err
}

// CountByStatus tallies the user's marks on date per status.
func (r *Repository) CountByStatus(ctx context.Context, userID model.ID, date string) (map[string]int, error) {
	counts := map[string]int{}
	err := r.metrics.ObserveDB("attendance.count_by_status", func() error {
		rows, err := r.db.QueryContext(ctx, `
			SELECT a.status, COUNT(*)
			FROM attendance a
			JOIN students s ON s.id = a.student_id
			WHERE s.user_id = $1 AND a.date = $2
			GROUP BY a.status
		`, userID, date)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var status string
			var n int
			if err := rows.Scan(&status, &n); err != nil {
				return err
			}
			counts[status] = n
		}
		return rows.Err()
	})
	return counts, err
}
