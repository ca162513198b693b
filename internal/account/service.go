package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"rollbook/internal/apperr"
	"rollbook/internal/auth"
	"rollbook/internal/cache"
	"rollbook/internal/model"
)

// Store is what the service needs from persistence.
type Store interface {
	Create(ctx context.Context, u model.User) (model.ID, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id model.ID) (model.User, error)
	UpdatePassword(ctx context.Context, emailOrPhone, hash string) ([]model.ID, error)
	UpdateProfile(ctx context.Context, id model.ID, p model.Profile) (bool, error)
}

// TokenIssuer mints session tokens after a successful login.
type TokenIssuer interface {
	Issue(subject, role string) (auth.TokenPair, error)
}

// RegisterInput is a full profile plus credentials.
type RegisterInput struct {
	Email           string
	Password        string
	InstitutionType string
	model.Profile
}

// LoginResult identifies the account and carries fresh tokens.
type LoginResult struct {
	UserID          model.ID
	InstitutionType string
	Tokens          auth.TokenPair
}

// Service implements registration, login, password reset and profile upkeep.
type Service struct {
	repo     Store
	tokens   TokenIssuer
	cache    cache.Cache
	cacheTTL time.Duration
	log      *slog.Logger

	// HashCost is the bcrypt cost for new hashes.
	HashCost int
}

func NewService(repo Store, tokens TokenIssuer, c cache.Cache, cacheTTL time.Duration, log *slog.Logger) *Service {
	if c == nil {
		c = cache.NewMemory()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		repo:     repo,
		tokens:   tokens,
		cache:    c,
		cacheTTL: cacheTTL,
		log:      log,
		HashCost: bcrypt.DefaultCost,
	}
}

// Register creates a user and returns its id.
func (s *Service) Register(ctx context.Context, in RegisterInput) (model.ID, error) {
	in.Email = strings.TrimSpace(in.Email)
	if in.Email == "" || in.Password == "" {
		return 0, apperr.Invalid("email and password are required")
	}

	hash, err := HashPassword(in.Password, s.HashCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return 0, apperr.Invalid("password is too long")
		}
		return 0, fmt.Errorf("hash password: %w", err)
	}

	return s.repo.Create(ctx, model.User{
		Email:           in.Email,
		PasswordHash:    hash,
		InstitutionType: in.InstitutionType,
		Profile:         in.Profile,
	})
}

// Login checks credentials. Unknown email and wrong password are reported
// the same way.
func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	invalid := apperr.Unauthorized("Invalid email or password")

	u, err := s.repo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return LoginResult{}, invalid
		}
		return LoginResult{}, err
	}
	if err := CheckPassword(u.PasswordHash, password); err != nil {
		return LoginResult{}, invalid
	}

	res := LoginResult{UserID: u.ID, InstitutionType: u.InstitutionType}
	if s.tokens != nil {
		pair, err := s.tokens.Issue(u.ID.String(), u.InstitutionType)
		if err != nil {
			return LoginResult{}, fmt.Errorf("issue tokens: %w", err)
		}
		res.Tokens = pair
	}
	return res, nil
}

// ResetPassword replaces the password of every account matching emailOrPhone.
func (s *Service) ResetPassword(ctx context.Context, emailOrPhone, newPassword string) error {
	emailOrPhone = strings.TrimSpace(emailOrPhone)
	if emailOrPhone == "" || newPassword == "" {
		return apperr.Invalid("emailOrPhone and newPassword are required")
	}

	hash, err := HashPassword(newPassword, s.HashCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return apperr.Invalid("password is too long")
		}
		return fmt.Errorf("hash password: %w", err)
	}

	ids, err := s.repo.UpdatePassword(ctx, emailOrPhone, hash)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return apperr.NotFound("Email or phone not found")
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = cache.ProfileKey(id)
	}
	s.evict(ctx, keys...)
	return nil
}

// Profile returns the user, served from cache when possible.
func (s *Service) Profile(ctx context.Context, id model.ID) (model.User, error) {
	key := cache.ProfileKey(id)

	var u model.User
	hit, err := s.cache.Get(ctx, key, &u)
	if err != nil {
		s.log.WarnContext(ctx, "profile cache read failed", "user_id", id, "err", err)
	}
	if hit {
		return u, nil
	}

	u, err = s.repo.GetByID(ctx, id)
	if err != nil {
		return model.User{}, err
	}
	if err := s.cache.Set(ctx, key, u, s.cacheTTL); err != nil {
		s.log.WarnContext(ctx, "profile cache write failed", "user_id", id, "err", err)
	}
	return u, nil
}

// UpdateProfile overwrites the editable profile fields.
func (s *Service) UpdateProfile(ctx context.Context, id model.ID, p model.Profile) error {
	if id <= 0 {
		return apperr.Invalid("invalid user id")
	}
	ok, err := s.repo.UpdateProfile(ctx, id, p)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound("User not found")
	}
	s.evict(ctx, cache.ProfileKey(id))
	return nil
}

func (s *Service) evict(ctx context.Context, keys ...string) {
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.log.WarnContext(ctx, "profile cache evict failed", "keys", keys, "err", err)
	}
}
