package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/justestif/habitual/internal/auth"
	"github.com/justestif/habitual/internal/db"
	"github.com/justestif/habitual/internal/habits"
	"github.com/justestif/habitual/internal/validation"
)

const maxBodyBytes = 1 << 20

// errBadRequest marks client errors that are not field validation failures.
var errBadRequest = errors.New("bad request")

type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

type resultBody struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON reads a JSON request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: malformed JSON body", errBadRequest)
	}
	return nil
}

// decodeOptionalJSON is decodeJSON for endpoints whose body may be empty,
// including empty chunked bodies with no Content-Length.
func decodeOptionalJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return fmt.Errorf("%w: malformed JSON body", errBadRequest)
}

// pathID parses the {id} URL parameter.
func pathID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		// An id that cannot exist is reported like one that does not.
		return uuid.Nil, db.ErrNotFound
	}
	return id, nil
}

// writeError maps service errors to status codes. Unexpected errors are logged
// and reported without detail.
func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *validation.Error
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid input", Fields: verr.Fields})
	case errors.Is(err, errBadRequest):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	case errors.Is(err, auth.ErrInvalidResetToken):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid or expired reset link"})
	case errors.Is(err, db.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
	case errors.Is(err, habits.ErrAlreadyCompleted):
		writeJSON(w, http.StatusConflict, errorBody{Error: habits.ErrAlreadyCompleted.Error()})
	case errors.Is(err, auth.ErrEmailExists):
		writeJSON(w, http.StatusConflict, errorBody{Error: auth.ErrEmailExists.Error()})
	default:
		h.logger.Error("request failed",
			zap.Error(err),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Something went wrong"})
	}
}
