package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/justestif/habitual/internal/db"
)

var (
	// ErrOAuthDisabled is returned when no OAuth provider is configured.
	ErrOAuthDisabled = errors.New("oauth provider not configured")

	// ErrMissingCode is returned when the callback carries no authorization code.
	ErrMissingCode = errors.New("missing authorization code")

	// ErrStateMismatch is returned when the OAuth state parameter doesn't match.
	ErrStateMismatch = errors.New("OAuth state mismatch")

	// ErrNoEmail is returned when the provider does not report an email address.
	ErrNoEmail = errors.New("provider returned no email")

	// ErrEmailNotVerified is returned when the provider has not verified the
	// email, or has not said so and the email belongs to a password account.
	ErrEmailNotVerified = errors.New("provider email not verified")
)

// userInfo is the subset of an OpenID Connect userinfo response we read.
type userInfo struct {
	Email         string `json:"email"`
	EmailVerified *bool  `json:"email_verified"`
	Name          string `json:"name"`
}

// verified reports whether the provider asserted the email is verified.
func (u *userInfo) verified() bool {
	return u.EmailVerified != nil && *u.EmailVerified
}

// OAuthEnabled reports whether a provider is configured.
func (s *Service) OAuthEnabled() bool {
	return s.oauth != nil
}

// AuthCodeURL returns the provider URL that starts the authorization flow.
func (s *Service) AuthCodeURL(state string) (string, error) {
	if s.oauth == nil {
		return "", ErrOAuthDisabled
	}
	return s.oauth.AuthCodeURL(state), nil
}

// ExchangeCode trades an authorization code for a token, asks the provider who
// the user is and returns the matching account, creating it on first sign in.
func (s *Service) ExchangeCode(ctx context.Context, code string) (*db.User, error) {
	if s.oauth == nil {
		return nil, ErrOAuthDisabled
	}
	if code == "" {
		return nil, ErrMissingCode
	}
	if s.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	}

	token, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchanging code for token: %w", err)
	}

	info, err := s.fetchUserInfo(ctx, token)
	if err != nil {
		return nil, err
	}
	if info.EmailVerified != nil && !*info.EmailVerified {
		return nil, ErrEmailNotVerified
	}

	user, err := s.users.GetByEmail(ctx, info.Email)
	if err == nil {
		// Only a verified address may sign into an account that has a password.
		if user.PasswordHash != "" && !info.verified() {
			s.logger.Warn("refusing unverified oauth email for password account", zap.Stringer("user_id", user.ID))
			return nil, ErrEmailNotVerified
		}
		return user, nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return nil, fmt.Errorf("loading user: %w", err)
	}

	profile := &db.Profile{}
	if name := strings.TrimSpace(info.Name); name != "" {
		profile.FullName = &name
	}
	user = &db.User{Email: info.Email}
	err = s.users.Create(ctx, user, profile)
	if errors.Is(err, db.ErrEmailTaken) {
		// Another account for the same email won the insert.
		user, err = s.users.GetByEmail(ctx, info.Email)
		if err != nil {
			return nil, fmt.Errorf("loading user: %w", err)
		}
		if user.PasswordHash != "" && !info.verified() {
			return nil, ErrEmailNotVerified
		}
		return user, nil
	}
	if err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	s.logger.Info("user created from oauth", zap.Stringer("user_id", user.ID))
	return user, nil
}

func (s *Service) fetchUserInfo(ctx context.Context, token *oauth2.Token) (*userInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating userinfo request: %w", err)
	}

	resp, err := s.oauth.Client(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("userinfo returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var info userInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decoding userinfo: %w", err)
	}
	info.Email = strings.TrimSpace(info.Email)
	if info.Email == "" {
		return nil, ErrNoEmail
	}
	return &info, nil
}

// GenerateState creates a random state string for OAuth.
func GenerateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
