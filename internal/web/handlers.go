package web

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/justestif/habitual/internal/analytics"
	"github.com/justestif/habitual/internal/auth"
	"github.com/justestif/habitual/internal/db"
	"github.com/justestif/habitual/internal/export"
	"github.com/justestif/habitual/internal/habits"
	"github.com/justestif/habitual/internal/profile"
	"github.com/justestif/habitual/internal/schedule"
)

const (
	oauthStateCookie = "oauth_state"
	callbackFailure  = "Could not verify email"
)

// AuthService signs users up, in and through the OAuth callback.
type AuthService interface {
	SignUp(ctx context.Context, in auth.SignUpInput) (*db.User, error)
	SignIn(ctx context.Context, email, password string) (*db.User, error)
	RequestPasswordReset(ctx context.Context, email string) (string, error)
	ResetPassword(ctx context.Context, token, newPassword string) (uuid.UUID, error)
	OAuthEnabled() bool
	AuthCodeURL(state string) (string, error)
	ExchangeCode(ctx context.Context, code string) (*db.User, error)
}

// HabitService manages habits, completions and their statistics.
type HabitService interface {
	Create(ctx context.Context, userID uuid.UUID, in habits.CreateInput) (*db.Habit, error)
	List(ctx context.Context, userID uuid.UUID) ([]db.Habit, error)
	ListAll(ctx context.Context, userID uuid.UUID) ([]db.Habit, error)
	Update(ctx context.Context, userID, id uuid.UUID, in habits.UpdateInput) (*db.Habit, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	Archive(ctx context.Context, userID, id uuid.UUID) error
	Complete(ctx context.Context, userID, habitID uuid.UUID, in habits.CompleteInput) (*db.Completion, error)
	Uncomplete(ctx context.Context, userID, habitID uuid.UUID, date db.Date) error
	Today(ctx context.Context, userID uuid.UUID) (*habits.TodayView, error)
	Dashboard(ctx context.Context, userID uuid.UUID) (*habits.Dashboard, error)
	Analytics(ctx context.Context, userID uuid.UUID) (*habits.Report, error)
	Detail(ctx context.Context, userID, habitID uuid.UUID) (*habits.Detail, error)
}

// TemplateService lists and applies habit templates.
type TemplateService interface {
	List(ctx context.Context) ([]db.Template, error)
	Apply(ctx context.Context, userID, templateID uuid.UUID) ([]db.Habit, error)
}

// ScheduleService manages schedule events.
type ScheduleService interface {
	Create(ctx context.Context, userID uuid.UUID, in schedule.CreateEventInput) (*db.ScheduleEvent, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	Today(ctx context.Context, userID uuid.UUID, now time.Time) ([]db.ScheduleEvent, error)
	Week(ctx context.Context, userID uuid.UUID) ([]db.ScheduleEvent, error)
}

// ProfileService reads and updates profiles.
type ProfileService interface {
	Get(ctx context.Context, userID uuid.UUID, today time.Time) (*profile.View, error)
	Update(ctx context.Context, userID uuid.UUID, in profile.UpdateInput, today time.Time) (*profile.View, error)
	Location(ctx context.Context, userID uuid.UUID) *time.Location
}

// ExportService gathers a user's data for download.
type ExportService interface {
	Build(ctx context.Context, userID uuid.UUID) (*export.Document, error)
}

// Services bundles the domain services the handlers call.
type Services struct {
	Auth      AuthService
	Habits    HabitService
	Templates TemplateService
	Schedule  ScheduleService
	Profiles  ProfileService
	Export    ExportService
}

// Handlers contains HTTP handlers for the API.
type Handlers struct {
	svc      Services
	sessions SessionManager
	cookies  cookieJar
	logger   *zap.Logger
	now      func() time.Time
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(svc Services, sessions SessionManager, secureCookies bool, logger *zap.Logger) *Handlers {
	return &Handlers{
		svc:      svc,
		sessions: sessions,
		cookies:  cookieJar{secure: secureCookies},
		logger:   logger,
		now:      time.Now,
	}
}

// today returns the current calendar day of the signed-in user.
func (h *Handlers) today(r *http.Request) time.Time {
	return analytics.Today(h.now(), h.svc.Profiles.Location(r.Context(), userID(r)))
}

// startSession creates a session for user and sets its cookie.
func (h *Handlers) startSession(w http.ResponseWriter, r *http.Request, user *db.User) error {
	session, err := h.sessions.Create(r.Context(), user.ID)
	if err != nil {
		return err
	}
	h.cookies.set(w, session)
	return nil
}

// Health reports liveness (GET /healthz).
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login signs in with email and password (POST /api/login).
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	user, err := h.svc.Auth.SignIn(r.Context(), req.Email, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		writeJSON(w, http.StatusUnauthorized, resultBody{Success: false, Message: "Invalid login credentials"})
		return
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.startSession(w, r, user); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resultBody{Success: true})
}

// Register creates an account and signs it in (POST /api/register).
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var in auth.SignUpInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}

	user, err := h.svc.Auth.SignUp(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.startSession(w, r, user); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resultBody{Success: true, Message: "Account created"})
}

// Logout ends the current session (POST /api/logout).
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if session := SessionFromContext(r.Context()); session != nil {
		h.sessions.Delete(r.Context(), session.ID)
	}
	h.cookies.clear(w)
	writeJSON(w, http.StatusOK, resultBody{Success: true})
}

type resetRequest struct {
	Email string `json:"email"`
}

// RequestPasswordReset issues a reset link (POST /api/password-reset). The
// response is the same whether or not the email has an account.
func (h *Handlers) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid input", Fields: map[string]string{"email": "is required"}})
		return
	}

	if _, err := h.svc.Auth.RequestPasswordReset(r.Context(), req.Email); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resultBody{Success: true, Message: "Password reset email sent! Check your inbox."})
}

type resetConfirmRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// ConfirmPasswordReset sets a new password and signs out every session
// (POST /api/password-reset/confirm).
func (h *Handlers) ConfirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req resetConfirmRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	id, err := h.svc.Auth.ResetPassword(r.Context(), req.Token, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.sessions.DeleteForUser(r.Context(), id)
	h.cookies.clear(w)
	writeJSON(w, http.StatusOK, resultBody{Success: true, Message: "Password updated"})
}

// OAuthLogin starts the provider flow (GET /auth/login).
func (h *Handlers) OAuthLogin(w http.ResponseWriter, r *http.Request) {
	if !h.svc.Auth.OAuthEnabled() {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
		return
	}

	// Generate state for CSRF protection
	state, err := auth.GenerateState()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	authURL, err := h.svc.Auth.AuthCodeURL(state)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	// Store state in cookie for validation on callback
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookies.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   300, // 5 minutes
	})
	http.Redirect(w, r, authURL, http.StatusTemporaryRedirect)
}

// Callback completes the provider flow (GET /auth/callback). On success it
// redirects to the relative path in "next", otherwise to the login page.
func (h *Handlers) Callback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	fail := func(reason string, err error) {
		h.logger.Warn("auth callback failed", zap.String("reason", reason), zap.Error(err))
		http.Redirect(w, r, "/login?error="+url.QueryEscape(callbackFailure), http.StatusSeeOther)
	}

	// Verify state
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || stateCookie.Value == "" || query.Get("state") != stateCookie.Value {
		fail("state", auth.ErrStateMismatch)
		return
	}

	// Clear state cookie
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})

	if errMsg := query.Get("error"); errMsg != "" {
		fail("provider", errors.New(errMsg))
		return
	}

	user, err := h.svc.Auth.ExchangeCode(r.Context(), query.Get("code"))
	if err != nil {
		fail("exchange", err)
		return
	}
	if err := h.startSession(w, r, user); err != nil {
		fail("session", err)
		return
	}

	http.Redirect(w, r, safeNext(query.Get("next")), http.StatusSeeOther)
}

// safeNext returns next when it is a path on this site, "/" otherwise.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, `/\`) {
		return "/"
	}
	return next
}

// Export downloads the user's data (GET /api/export?format=json|csv).
func (h *Handlers) Export(w http.ResponseWriter, r *http.Request) {
	doc, err := h.svc.Export.Build(r.Context(), userID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	format := export.ParseFormat(r.URL.Query().Get("format"))
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename(format, h.now())+`"`)
	if err := export.Write(w, format, doc); err != nil {
		// Headers are already sent.
		h.logger.Error("writing export", zap.Error(err), zap.Stringer("user_id", userID(r)))
	}
}
