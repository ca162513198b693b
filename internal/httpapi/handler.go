package httpapi

import (
	"context"
	"io"
	"log/slog"

	"rollbook/internal/account"
	"rollbook/internal/attendance"
	"rollbook/internal/model"
	"rollbook/internal/roster"
	"rollbook/internal/uploads"
)

// Accounts is the account service as seen by handlers.
type Accounts interface {
	Register(ctx context.Context, in account.RegisterInput) (model.ID, error)
	Login(ctx context.Context, email, password string) (account.LoginResult, error)
	ResetPassword(ctx context.Context, emailOrPhone, newPassword string) error
	Profile(ctx context.Context, id model.ID) (model.User, error)
	UpdateProfile(ctx context.Context, id model.ID, p model.Profile) error
}

// Rosters is the roster service as seen by handlers.
type Rosters interface {
	Import(ctx context.Context, path, filename string) ([]roster.Candidate, error)
	SaveStudents(ctx context.Context, userID model.ID, names []string, startRoll string) ([]model.Student, error)
	List(ctx context.Context, userID model.ID) ([]model.Student, error)
}

// Attendance is the attendance service as seen by handlers.
type Attendance interface {
	Record(ctx context.Context, userID model.ID, date string, marks []attendance.Mark) error
	List(ctx context.Context, userID model.ID, date string) ([]model.AttendanceEntry, error)
	Summary(ctx context.Context, userID model.ID, date string) (attendance.Summary, error)
}

// Uploads stores multipart files before import.
type Uploads interface {
	Save(r io.Reader, filename string) (uploads.Stored, error)
}

type handler struct {
	accounts   Accounts
	rosters    Rosters
	attendance Attendance
	uploads    Uploads
	maxUpload  int64
	log        *slog.Logger
}
