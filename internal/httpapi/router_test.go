package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"rollbook/internal/account"
	"rollbook/internal/apperr"
	"rollbook/internal/attendance"
	"rollbook/internal/auth"
	"rollbook/internal/httpmiddleware"
	"rollbook/internal/model"
	"rollbook/internal/roster"
	"rollbook/internal/uploads"
)

type fakeAccounts struct {
	registered account.RegisterInput
	updated    model.Profile
	err        error
}

func (f *fakeAccounts) Register(_ context.Context, in account.RegisterInput) (model.ID, error) {
	f.registered = in
	return 42, f.err
}

func (f *fakeAccounts) Login(_ context.Context, email, password string) (account.LoginResult, error) {
	if f.err != nil {
		return account.LoginResult{}, f.err
	}
	return account.LoginResult{
		UserID:          42,
		InstitutionType: "college",
		Tokens:          auth.TokenPair{AccessToken: "a", RefreshToken: "r"},
	}, nil
}

func (f *fakeAccounts) ResetPassword(context.Context, string, string) error { return f.err }

func (f *fakeAccounts) Profile(_ context.Context, id model.ID) (model.User, error) {
	if f.err != nil {
		return model.User{}, f.err
	}
	return model.User{ID: id, Email: "ada@example.com", PasswordHash: "$2a$hash", Profile: model.Profile{Name: "Ada"}}, nil
}

func (f *fakeAccounts) UpdateProfile(_ context.Context, _ model.ID, p model.Profile) error {
	f.updated = p
	return f.err
}

type fakeRosters struct {
	userID    model.ID
	names     []string
	startRoll string
	imported  string
}

func (f *fakeRosters) Import(_ context.Context, path, filename string) ([]roster.Candidate, error) {
	f.imported = filename
	return []roster.Candidate{{Name: "Ada"}, {Name: "Alan"}}, nil
}

func (f *fakeRosters) SaveStudents(_ context.Context, userID model.ID, names []string, startRoll string) ([]model.Student, error) {
	f.userID, f.names, f.startRoll = userID, names, startRoll
	return []model.Student{{ID: 1, UserID: userID, RollNumber: startRoll, Name: names[0]}}, nil
}

func (f *fakeRosters) List(context.Context, model.ID) ([]model.Student, error) {
	return []model.Student{}, nil
}

type fakeAttendance struct {
	marks []attendance.Mark
	err   error
}

func (f *fakeAttendance) Record(_ context.Context, _ model.ID, _ string, marks []attendance.Mark) error {
	f.marks = marks
	return f.err
}

func (f *fakeAttendance) List(context.Context, model.ID, string) ([]model.AttendanceEntry, error) {
	return []model.AttendanceEntry{}, nil
}

func (f *fakeAttendance) Summary(_ context.Context, id model.ID, date string) (attendance.Summary, error) {
	return attendance.Summary{UserID: id, Date: date, Total: 1, ByStatus: map[string]int{"present": 1}}, nil
}

type fakeUploads struct{ body string }

func (f *fakeUploads) Save(r io.Reader, filename string) (uploads.Stored, error) {
	b, _ := io.ReadAll(r)
	f.body = string(b)
	return uploads.Stored{Path: "/tmp/x.xlsx", Filename: filename}, nil
}

type env struct {
	router     *gin.Engine
	accounts   *fakeAccounts
	rosters    *fakeRosters
	attendance *fakeAttendance
	uploads    *fakeUploads
	issuer     *auth.Issuer
}

func newEnv(t *testing.T, authRequired bool) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)
	e := &env{
		accounts:   &fakeAccounts{},
		rosters:    &fakeRosters{},
		attendance: &fakeAttendance{},
		uploads:    &fakeUploads{},
		issuer:     auth.NewIssuer("rollbook", "test-key", time.Minute, time.Hour),
	}
	e.router = NewRouter(Deps{
		Accounts:     e.accounts,
		Rosters:      e.rosters,
		Attendance:   e.attendance,
		Uploads:      e.uploads,
		Issuer:       e.issuer,
		AuthRequired: authRequired,
		Health:       map[string]HealthCheck{"db": func(context.Context) bool { return true }},
		Log:          slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return e
}

func (e *env) do(method, path, body string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return out
}

func TestRegister(t *testing.T) {
	e := newEnv(t, false)

	w := e.do(http.MethodPost, "/register", `{"email":"ada@example.com","password":"pw","institutionType":"school","name":"Ada","class":"10"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body)
	}
	if got := decode(t, w)["id"]; got != float64(42) {
		t.Fatalf("id = %v", got)
	}
	if e.accounts.registered.Class != "10" || e.accounts.registered.Name != "Ada" {
		t.Fatalf("registered = %+v", e.accounts.registered)
	}
}

func TestRegisterValidation(t *testing.T) {
	e := newEnv(t, false)

	w := e.do(http.MethodPost, "/register", `{"email":"not-an-email"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	var body errorBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	rules := map[string]string{}
	for _, f := range body.Fields {
		rules[f.Field] = f.Rule
	}
	if rules["email"] != "email" || rules["password"] != "required" {
		t.Fatalf("fields = %+v", body.Fields)
	}
	if body.RequestID == "" {
		t.Fatal("missing request id")
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		method string
		path   string
		body   string
		status int
		msg    string
	}{
		{"conflict", apperr.Conflict("This email is already registered. Please use a different email."),
			http.MethodPost, "/register", `{"email":"a@b.co","password":"x"}`, http.StatusConflict, "This email is already registered. Please use a different email."},
		{"unauthorized", apperr.Unauthorized("Invalid email or password"),
			http.MethodPost, "/login", `{"email":"a@b.co","password":"x"}`, http.StatusUnauthorized, "Invalid email or password"},
		{"reset not found", apperr.NotFound("Email or phone not found"),
			http.MethodPost, "/reset-password", `{"emailOrPhone":"x","newPassword":"y"}`, http.StatusNotFound, "Email or phone not found"},
		{"profile not found", apperr.NotFound("User not found"),
			http.MethodGet, "/profile/9", "", http.StatusNotFound, "User not found"},
		{"internal hidden", context.DeadlineExceeded,
			http.MethodPut, "/profile/9", `{"name":"x"}`, http.StatusInternalServerError, "Failed to update profile"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t, false)
			e.accounts.err = tt.err

			w := e.do(tt.method, tt.path, tt.body)
			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d body=%s", w.Code, tt.status, w.Body)
			}
			if got := decode(t, w)["error"]; got != tt.msg {
				t.Fatalf("error = %v, want %q", got, tt.msg)
			}
		})
	}
}

func TestLoginReturnsTokens(t *testing.T) {
	e := newEnv(t, false)
	w := e.do(http.MethodPost, "/login", `{"email":"a@b.co","password":"x"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := decode(t, w)
	if body["userId"] != float64(42) || body["institutionType"] != "college" || body["accessToken"] != "a" {
		t.Fatalf("body = %v", body)
	}
}

func TestLoginMissingFieldsIsUnauthorized(t *testing.T) {
	e := newEnv(t, false)
	e.accounts.err = apperr.Unauthorized("Invalid email or password")

	for _, body := range []string{`{}`, `{"email":"a@b.co"}`, `{"password":"x"}`} {
		w := e.do(http.MethodPost, "/login", body)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("POST /login %s = %d, want 401", body, w.Code)
		}
		if got := decode(t, w)["error"]; got != "Invalid email or password" {
			t.Fatalf("error = %v", got)
		}
	}
}

func TestProfileHidesPassword(t *testing.T) {
	e := newEnv(t, false)
	w := e.do(http.MethodGet, "/profile/42", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "hash") || strings.Contains(w.Body.String(), "password") {
		t.Fatalf("body leaks password: %s", w.Body)
	}
}

func TestProfileRejectsBadID(t *testing.T) {
	e := newEnv(t, false)
	for _, id := range []string{"abc", "0", "-3"} {
		if w := e.do(http.MethodGet, "/profile/"+id, ""); w.Code != http.StatusBadRequest {
			t.Errorf("GET /profile/%s = %d, want 400", id, w.Code)
		}
	}
}

func TestSaveStudentsAcceptsStringUserID(t *testing.T) {
	e := newEnv(t, false)
	w := e.do(http.MethodPost, "/save-students", `{"userId":"7","startRoll":"2023CS1","students":[{"name":"Ada"},{"name":"Alan"}]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body)
	}
	if e.rosters.userID != 7 || len(e.rosters.names) != 2 || e.rosters.startRoll != "2023CS1" {
		t.Fatalf("rosters = %+v", e.rosters)
	}
	if decode(t, w)["message"] != "Students saved" {
		t.Fatalf("body = %s", w.Body)
	}
}

func TestSaveAttendance(t *testing.T) {
	e := newEnv(t, false)
	w := e.do(http.MethodPost, "/save-attendance", `{"userId":7,"date":"2024-06-01","attendance":[{"roll":"CS1","status":"present"}]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body)
	}
	if len(e.attendance.marks) != 1 || e.attendance.marks[0].Roll != "CS1" {
		t.Fatalf("marks = %+v", e.attendance.marks)
	}

	e.attendance.err = apperr.NotFound("Student with roll number CS9 not found")
	w = e.do(http.MethodPost, "/save-attendance", `{"userId":7,"date":"2024-06-01","attendance":[{"roll":"CS9","status":"present"}]}`)
	if w.Code != http.StatusNotFound || decode(t, w)["error"] != "Student with roll number CS9 not found" {
		t.Fatalf("status = %d body=%s", w.Code, w.Body)
	}
}

func TestUploadStudents(t *testing.T) {
	e := newEnv(t, false)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, _ := mw.CreateFormFile("file", "class.xlsx")
	_, _ = part.Write([]byte("sheet"))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/upload-students", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body)
	}
	var got []roster.Candidate
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || e.uploads.body != "sheet" || e.rosters.imported != "class.xlsx" {
		t.Fatalf("got %+v uploads=%+v", got, e.uploads)
	}
}

func TestUploadStudentsWithoutFile(t *testing.T) {
	e := newEnv(t, false)
	w := e.do(http.MethodPost, "/upload-students", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestAuthRequired(t *testing.T) {
	e := newEnv(t, true)

	if w := e.do(http.MethodGet, "/profile/42", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous status = %d, want 401", w.Code)
	}

	pair, err := e.issuer.Issue("42", "school")
	if err != nil {
		t.Fatal(err)
	}
	bearer := "Bearer " + pair.AccessToken

	if w := e.do(http.MethodGet, "/profile/42", "", "Authorization", bearer); w.Code != http.StatusOK {
		t.Fatalf("own profile status = %d", w.Code)
	}
	if w := e.do(http.MethodGet, "/profile/43", "", "Authorization", bearer); w.Code != http.StatusForbidden {
		t.Fatalf("other profile status = %d, want 403", w.Code)
	}
	w := e.do(http.MethodPost, "/save-attendance", `{"userId":43,"date":"d","attendance":[{"roll":"x"}]}`, "Authorization", bearer)
	if w.Code != http.StatusForbidden {
		t.Fatalf("body user mismatch status = %d, want 403", w.Code)
	}
	if w := e.do(http.MethodGet, "/profile/42", "", "Authorization", "Bearer "+pair.RefreshToken); w.Code != http.StatusUnauthorized {
		t.Fatalf("refresh token accepted: %d", w.Code)
	}
}

func TestRequestIDEchoed(t *testing.T) {
	e := newEnv(t, false)
	w := e.do(http.MethodGet, "/profile/abc", "", httpmiddleware.RequestIDHeader, "req-1")
	if w.Header().Get(httpmiddleware.RequestIDHeader) != "req-1" {
		t.Fatalf("header = %q", w.Header().Get(httpmiddleware.RequestIDHeader))
	}
	if decode(t, w)["requestId"] != "req-1" {
		t.Fatalf("body = %s", w.Body)
	}
}

func TestHealthz(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := NewRouter(Deps{
		Health: map[string]HealthCheck{
			"db":    func(context.Context) bool { return true },
			"redis": func(context.Context) bool { return false },
		},
		Log: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", w.Code)
	}
	body := decode(t, w)
	if body["status"] != "degraded" || body["db"] != true || body["redis"] != false {
		t.Fatalf("body = %v", body)
	}
}

func TestCredentialRateLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := NewRouter(Deps{
		Accounts:          &fakeAccounts{},
		CredentialLimiter: httpmiddleware.NewTokenBucket(1, 1),
		Log:               slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	codes := make([]int, 2)
	for i := range codes {
		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"email":"a@b.co","password":"x"}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		codes[i] = w.Code
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("codes = %v", codes)
	}
}
