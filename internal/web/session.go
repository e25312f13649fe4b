// Package web provides the HTTP API of habitual.
package web

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/justestif/habitual/internal/db"
)

const (
	sessionCookieName = "session_id"

	// DefaultSessionTTL is used when no session lifetime is configured.
	DefaultSessionTTL = 7 * 24 * time.Hour
)

// Session represents an authenticated user session.
type Session struct {
	ID        string
	UserID    uuid.UUID
	CreatedAt time.Time
	ExpiresAt time.Time
}

// SessionManager defines the interface for session management.
type SessionManager interface {
	Create(ctx context.Context, userID uuid.UUID) (*Session, error)
	Get(ctx context.Context, id string) *Session
	Delete(ctx context.Context, id string)
	DeleteForUser(ctx context.Context, userID uuid.UUID)
}

// ============================================================================
// In-Memory Session Store (for development/testing)
// ============================================================================

// SessionStore manages user sessions in memory.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
}

// NewSessionStore creates a new in-memory session store.
func NewSessionStore(ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionStore{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Create starts a new session for the user.
func (s *SessionStore) Create(_ context.Context, userID uuid.UUID) (*Session, error) {
	id, err := generateSessionID()
	if err != nil {
		return nil, err
	}

	now := s.now()
	session := &Session{
		ID:        id,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	s.mu.Lock()
	s.sessions[id] = session
	s.mu.Unlock()

	return session, nil
}

// Get retrieves an unexpired session by ID.
func (s *SessionStore) Get(_ context.Context, id string) *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok || !s.now().Before(session.ExpiresAt) {
		return nil
	}
	return session
}

// Delete removes a session by ID.
func (s *SessionStore) Delete(_ context.Context, id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// DeleteForUser removes every session of a user.
func (s *SessionStore) DeleteForUser(_ context.Context, userID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, session := range s.sessions {
		if session.UserID == userID {
			delete(s.sessions, id)
		}
	}
}

// ============================================================================
// Database-Backed Session Store
// ============================================================================

// SessionRepository is the subset of db.SessionRepository the store uses.
type SessionRepository interface {
	Create(ctx context.Context, session *db.Session) error
	Get(ctx context.Context, id string) (*db.Session, error)
	Delete(ctx context.Context, id string) error
	DeleteForUser(ctx context.Context, userID uuid.UUID) error
}

// DBSessionStore manages user sessions in PostgreSQL.
type DBSessionStore struct {
	repo SessionRepository
	ttl  time.Duration
}

// NewDBSessionStore creates a new database-backed session store.
func NewDBSessionStore(repo SessionRepository, ttl time.Duration) *DBSessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &DBSessionStore{repo: repo, ttl: ttl}
}

// Create generates a new session and stores it in the database.
func (s *DBSessionStore) Create(ctx context.Context, userID uuid.UUID) (*Session, error) {
	id, err := generateSessionID()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	dbSession := &db.Session{
		ID:        id,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.repo.Create(ctx, dbSession); err != nil {
		return nil, err
	}

	return &Session{
		ID:        id,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: dbSession.ExpiresAt,
	}, nil
}

// Get retrieves a session by ID from the database.
func (s *DBSessionStore) Get(ctx context.Context, id string) *Session {
	dbSession, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil
	}

	return &Session{
		ID:        dbSession.ID,
		UserID:    dbSession.UserID,
		CreatedAt: dbSession.CreatedAt,
		ExpiresAt: dbSession.ExpiresAt,
	}
}

// Delete removes a session from the database.
func (s *DBSessionStore) Delete(ctx context.Context, id string) {
	_ = s.repo.Delete(ctx, id)
}

// DeleteForUser removes every session of a user from the database.
func (s *DBSessionStore) DeleteForUser(ctx context.Context, userID uuid.UUID) {
	_ = s.repo.DeleteForUser(ctx, userID)
}

// ============================================================================
// Helper Functions
// ============================================================================

// generateSessionID creates a cryptographically random session ID.
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// cookieJar writes the session cookie.
type cookieJar struct {
	secure bool
}

// set sets the session cookie on the response.
func (c cookieJar) set(w http.ResponseWriter, session *Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    session.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  session.ExpiresAt,
		MaxAge:   int(time.Until(session.ExpiresAt).Seconds()),
	})
}

// clear removes the session cookie from the response.
func (c cookieJar) clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   c.secure,
		MaxAge:   -1,
	})
}

// sessionFromRequest extracts the session from the request cookie.
func sessionFromRequest(sessions SessionManager, r *http.Request) *Session {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}
	return sessions.Get(r.Context(), cookie.Value)
}

// Ensure both stores implement SessionManager.
var (
	_ SessionManager = (*SessionStore)(nil)
	_ SessionManager = (*DBSessionStore)(nil)
)
