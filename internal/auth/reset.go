package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/justestif/habitual/internal/db"
	"github.com/justestif/habitual/internal/validation"
)

// DefaultResetTTL is how long a password reset link stays valid.
const DefaultResetTTL = time.Hour

const (
	resetIssuer   = "habitual"
	resetAudience = "password-reset"
)

// ErrInvalidResetToken is returned for expired, tampered or already used
// reset tokens.
var ErrInvalidResetToken = errors.New("invalid or expired reset token")

// resetClaims binds a token to the password hash it was issued against, so a
// token stops working once the password changes.
type resetClaims struct {
	jwt.RegisteredClaims
	Fingerprint string `json:"fpr"`
}

func fingerprint(passwordHash string) string {
	sum := sha256.Sum256([]byte(passwordHash))
	return hex.EncodeToString(sum[:8])
}

// RequestPasswordReset issues a reset token for the account with email. An
// unknown email yields an empty token and no error. The reset link is logged
// instead of mailed.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, db.ErrNotFound) {
		s.logger.Debug("password reset for unknown email")
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("loading user: %w", err)
	}

	now := s.now()
	claims := resetClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    resetIssuer,
			Subject:   user.ID.String(),
			Audience:  jwt.ClaimStrings{resetAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.resetTTL)),
		},
		Fingerprint: fingerprint(user.PasswordHash),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.resetSecret)
	if err != nil {
		return "", fmt.Errorf("signing reset token: %w", err)
	}

	link := s.baseURL + "/auth/reset-password?token=" + url.QueryEscape(token)
	s.logger.Info("password reset requested",
		zap.Stringer("user_id", user.ID),
		zap.String("link", link),
		zap.Time("expires_at", claims.ExpiresAt.Time),
	)
	return token, nil
}

// ResetPassword sets a new password for the account named by token and
// returns that account's id.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) (uuid.UUID, error) {
	if len([]rune(newPassword)) < MinPasswordLength {
		return uuid.Nil, validation.FieldError("password", fmt.Sprintf("must be at least %d characters", MinPasswordLength))
	}

	var claims resetClaims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (any, error) { return s.resetSecret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(resetIssuer),
		jwt.WithAudience(resetAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidResetToken, err)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, ErrInvalidResetToken
	}
	user, err := s.users.Get(ctx, userID)
	if errors.Is(err, db.ErrNotFound) {
		return uuid.Nil, ErrInvalidResetToken
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("loading user: %w", err)
	}
	if claims.Fingerprint != fingerprint(user.PasswordHash) {
		return uuid.Nil, ErrInvalidResetToken
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return uuid.Nil, err
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return uuid.Nil, fmt.Errorf("updating password: %w", err)
	}

	s.logger.Info("password reset", zap.Stringer("user_id", user.ID))
	return user.ID, nil
}
