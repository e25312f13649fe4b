package web

import (
	"fmt"
	"net/http"

	"github.com/justestif/habitual/internal/db"
	"github.com/justestif/habitual/internal/habits"
	"github.com/justestif/habitual/internal/profile"
	"github.com/justestif/habitual/internal/schedule"
)

// Dashboard returns the headline stats and today's habits (GET /api/dashboard).
func (h *Handlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.Habits.Dashboard(r.Context(), userID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// Analytics returns stats plus per-habit insights (GET /api/analytics).
func (h *Handlers) Analytics(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.Habits.Analytics(r.Context(), userID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// Today lists the habits due today (GET /api/today).
func (h *Handlers) Today(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.Habits.Today(r.Context(), userID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// ListHabits lists active habits, or all with ?archived=true (GET /api/habits).
func (h *Handlers) ListHabits(w http.ResponseWriter, r *http.Request) {
	list := h.svc.Habits.List
	if r.URL.Query().Get("archived") == "true" {
		list = h.svc.Habits.ListAll
	}
	out, err := list(r.Context(), userID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if out == nil {
		out = []db.Habit{}
	}
	writeJSON(w, http.StatusOK, out)
}

// CreateHabit creates a habit (POST /api/habits).
func (h *Handlers) CreateHabit(w http.ResponseWriter, r *http.Request) {
	var in habits.CreateInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	habit, err := h.svc.Habits.Create(r.Context(), userID(r), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, habit)
}

// GetHabit returns a habit with its history and stats (GET /api/habits/{id}).
func (h *Handlers) GetHabit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	detail, err := h.svc.Habits.Detail(r.Context(), userID(r), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// UpdateHabit applies a partial update (PATCH /api/habits/{id}).
func (h *Handlers) UpdateHabit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var in habits.UpdateInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	habit, err := h.svc.Habits.Update(r.Context(), userID(r), id, in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, habit)
}

// DeleteHabit deletes a habit and its completions (DELETE /api/habits/{id}).
func (h *Handlers) DeleteHabit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.svc.Habits.Delete(r.Context(), userID(r), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ArchiveHabit archives a habit (POST /api/habits/{id}/archive).
func (h *Handlers) ArchiveHabit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.svc.Habits.Archive(r.Context(), userID(r), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resultBody{Success: true})
}

// CompleteHabit records a completion (POST /api/habits/{id}/complete). The
// body is optional.
func (h *Handlers) CompleteHabit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var in habits.CompleteInput
	if err := decodeOptionalJSON(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	c, err := h.svc.Habits.Complete(r.Context(), userID(r), id, in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// UncompleteHabit removes a completion (DELETE /api/habits/{id}/complete?date=).
// Without a date it removes today's.
func (h *Handlers) UncompleteHabit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var date db.Date
	if raw := r.URL.Query().Get("date"); raw != "" {
		date, err = db.ParseDate(raw)
		if err != nil {
			h.writeError(w, r, fmt.Errorf("%w: date must look like 2024-06-01", errBadRequest))
			return
		}
	} else {
		date = db.NewDate(h.today(r))
	}

	if err := h.svc.Habits.Uncomplete(r.Context(), userID(r), id, date); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListTemplates lists the built-in templates (GET /api/templates).
func (h *Handlers) ListTemplates(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Templates.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// ApplyTemplate creates the template's habits (POST /api/templates/{id}/apply).
func (h *Handlers) ApplyTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	created, err := h.svc.Templates.Apply(r.Context(), userID(r), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// ListSchedule lists all active events (GET /api/schedule).
func (h *Handlers) ListSchedule(w http.ResponseWriter, r *http.Request) {
	events, err := h.svc.Schedule.Week(r.Context(), userID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// TodaySchedule lists today's events (GET /api/schedule/today).
func (h *Handlers) TodaySchedule(w http.ResponseWriter, r *http.Request) {
	events, err := h.svc.Schedule.Today(r.Context(), userID(r), h.now())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// CreateEvent adds a schedule event (POST /api/schedule).
func (h *Handlers) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var in schedule.CreateEventInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	e, err := h.svc.Schedule.Create(r.Context(), userID(r), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

// DeleteEvent removes a schedule event (DELETE /api/schedule/{id}).
func (h *Handlers) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.svc.Schedule.Delete(r.Context(), userID(r), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetProfile returns the profile (GET /api/profile).
func (h *Handlers) GetProfile(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.Profiles.Get(r.Context(), userID(r), h.today(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// UpdateProfile updates the profile (PUT /api/profile).
func (h *Handlers) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var in profile.UpdateInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	view, err := h.svc.Profiles.Update(r.Context(), userID(r), in, h.today(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
