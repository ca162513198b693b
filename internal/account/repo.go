package account

import (
	"context"
	"database/sql"
	"errors"

	"rollbook/internal/apperr"
	"rollbook/internal/model"
	"rollbook/internal/observability"
	"rollbook/internal/store"
)

const userColumns = `id, email, password_hash, institution_type, name, phone, school, class_name, section, college, year, branch, role`

// Repository persists users.
type Repository struct {
	db      *sql.DB
	metrics *observability.Metrics
}

// NewRepository creates a repo. metrics may be nil.
func NewRepository(db *sql.DB, metrics *observability.Metrics) *Repository {
	return &Repository{db: db, metrics: metrics}
}

// Create inserts a user. A taken email surfaces as apperr.ErrConflict.
func (r *Repository) Create(ctx context.Context, u model.User) (model.ID, error) {
	var id model.ID
	err := r.metrics.ObserveDB("users.create", func() error {
		return r.db.QueryRowContext(ctx, `
			INSERT INTO users (email, password_hash, institution_type, name, phone, school, class_name, section, college, year, branch, role)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
			RETURNING id
		`, u.Email, u.PasswordHash, u.InstitutionType, u.Name, u.Phone, u.School, u.Class, u.Section, u.College, u.Year, u.Branch, u.Role).Scan(&id)
	})
	if err != nil {
		if store.IsUniqueViolation(err) {
			return 0, apperr.Conflict("This email is already registered. Please use a different email.")
		}
		return 0, err
	}
	return id, nil
}

// GetByEmail returns the user with the given email.
func (r *Repository) GetByEmail(ctx context.Context, email string) (model.User, error) {
	return r.getOne(ctx, "users.get_by_email", `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

// GetByID returns the user with the given id.
func (r *Repository) GetByID(ctx context.Context, id model.ID) (model.User, error) {
	return r.getOne(ctx, "users.get_by_id", `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *Repository) getOne(ctx context.Context, op, query string, arg any) (model.User, error) {
	var u model.User
	err := r.metrics.ObserveDB(op, func() error {
		return r.db.QueryRowContext(ctx, query, arg).Scan(
			&u.ID, &u.Email, &u.PasswordHash, &u.InstitutionType,
			&u.Name, &u.Phone, &u.School, &u.Class, &u.Section,
			&u.College, &u.Year, &u.Branch, &u.Role,
		)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, apperr.NotFound("User not found")
	}
	if err != nil {
		return model.User{}, err
	}
	return u, nil
}

// UpdatePassword sets the hash on every user whose email or phone matches and
// returns their ids.
func (r *Repository) UpdatePassword(ctx context.Context, emailOrPhone, hash string) ([]model.ID, error) {
	var ids []model.ID
	err := r.metrics.ObserveDB("users.update_password", func() error {
		rows, err := r.db.QueryContext(ctx, `
			UPDATE users SET password_hash = $1
			WHERE email = $2 OR phone = $2
			RETURNING id
		`, hash, emailOrPhone)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var id model.ID
			if err := rows.Scan(&id); err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return rows.Err()
	})
	return ids, err
}

// UpdateProfile overwrites the mutable profile fields. Email and password are
// never touched. It reports whether a row matched.
func (r *Repository) UpdateProfile(ctx context.Context, id model.ID, p model.Profile) (bool, error) {
	var n int64
	err := r.metrics.ObserveDB("users.update_profile", func() error {
		res, err := r.db.ExecContext(ctx, `
			UPDATE users
			SET name = $1, phone = $2, school = $3, class_name = $4, section = $5,
				college = $6, year = $7, branch = $8, role = $9
			WHERE id = $10
		`, p.Name, p.Phone, p.School, p.Class, p.Section, p.College, p.Year, p.Branch, p.Role, id)
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		return err
	})
	return n > 0, err
}
