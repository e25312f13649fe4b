// Package auth handles password accounts, password resets and the OAuth code
// exchange behind /auth/callback.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"

	"github.com/justestif/habitual/internal/db"
	"github.com/justestif/habitual/internal/validation"
)

// MinPasswordLength is the shortest password accepted at sign up and reset.
const MinPasswordLength = 6

var (
	// ErrInvalidCredentials is returned when email and password do not match an account.
	ErrInvalidCredentials = errors.New("invalid login credentials")

	// ErrEmailExists is returned when signing up with an email already in use.
	ErrEmailExists = errors.New("this email is already registered")
)

// bcryptCost is lowered in tests.
var bcryptCost = bcrypt.DefaultCost

// UserStore persists accounts.
type UserStore interface {
	Create(ctx context.Context, user *db.User, profile *db.Profile) error
	Get(ctx context.Context, id uuid.UUID) (*db.User, error)
	GetByEmail(ctx context.Context, email string) (*db.User, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error
}

// Service signs users up and in.
type Service struct {
	users    UserStore
	validate *validation.Validator
	logger   *zap.Logger
	now      func() time.Time

	resetSecret []byte
	resetTTL    time.Duration
	baseURL     string

	oauth       *oauth2.Config
	userInfoURL string
	httpClient  *http.Client
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithResetTTL sets how long password reset tokens stay valid.
func WithResetTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.resetTTL = ttl
		}
	}
}

// WithBaseURL sets the public URL used to build password reset links.
func WithBaseURL(url string) Option {
	return func(s *Service) {
		s.baseURL = strings.TrimRight(url, "/")
	}
}

// WithOAuth enables the authorization code flow against a provider.
// userInfoURL must return a JSON object with an "email" field.
func WithOAuth(cfg *oauth2.Config, userInfoURL string) Option {
	return func(s *Service) {
		s.oauth = cfg
		s.userInfoURL = userInfoURL
	}
}

// WithHTTPClient sets the client used to talk to the OAuth provider.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Service) {
		s.httpClient = c
	}
}

// New creates an auth service backed by the database. resetSecret signs
// password reset tokens.
func New(database *db.DB, resetSecret string, opts ...Option) *Service {
	return newService(database.Users(), resetSecret, opts...)
}

func newService(users UserStore, resetSecret string, opts ...Option) *Service {
	s := &Service{
		users:       users,
		validate:    validation.New(),
		logger:      zap.NewNop(),
		now:         time.Now,
		resetSecret: []byte(resetSecret),
		resetTTL:    DefaultResetTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches hash.
func CheckPassword(hash, password string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// SignUpInput holds the registration form.
type SignUpInput struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=6"`
	FullName    string `json:"full_name" validate:"required,max=100"`
	DateOfBirth string `json:"date_of_birth" validate:"omitempty,isodate"`
	Gender      string `json:"gender" validate:"omitempty,max=50"`
	Timezone    string `json:"timezone" validate:"omitempty,timezone"`
}

// SignUp creates an account and its profile.
func (s *Service) SignUp(ctx context.Context, in SignUpInput) (*db.User, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.FullName = strings.TrimSpace(in.FullName)
	in.Gender = strings.TrimSpace(in.Gender)
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	profile := &db.Profile{FullName: &in.FullName, Timezone: in.Timezone}
	if in.DateOfBirth != "" {
		dob, err := db.ParseDate(in.DateOfBirth)
		if err != nil {
			return nil, validation.FieldError("date_of_birth", "must be a date like 2024-06-01")
		}
		profile.DateOfBirth = &dob
	}
	if in.Gender != "" {
		profile.Gender = &in.Gender
	}

	user := &db.User{Email: in.Email, PasswordHash: hash}
	if err := s.users.Create(ctx, user, profile); err != nil {
		if errors.Is(err, db.ErrEmailTaken) {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("creating user: %w", err)
	}

	s.logger.Info("user signed up", zap.Stringer("user_id", user.ID))
	return user, nil
}

// SignIn returns the account matching email and password.
func (s *Service) SignIn(ctx context.Context, email, password string) (*db.User, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("loading user: %w", err)
	}

	if !CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}
