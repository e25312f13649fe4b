// Package export produces a downloadable copy of everything a user has
// stored, as JSON or as a CSV of completions.
package export

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/justestif/habitual/internal/db"
)

// Format is an export file format.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// ParseFormat maps a query value to a Format. Anything but "csv" is JSON.
func ParseFormat(s string) Format {
	if strings.EqualFold(strings.TrimSpace(s), string(FormatCSV)) {
		return FormatCSV
	}
	return FormatJSON
}

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	if f == FormatCSV {
		return "text/csv"
	}
	return "application/json"
}

// Filename returns the download name for an export taken at now.
func Filename(f Format, now time.Time) string {
	return fmt.Sprintf("habit-data-%s.%s", now.UTC().Format(time.DateOnly), f)
}

// Account is the part of the user record included in an export.
type Account struct {
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Document is the JSON export.
type Document struct {
	User        Account         `json:"user"`
	Profile     *db.Profile     `json:"profile"`
	Habits      []db.Habit      `json:"habits"`
	Completions []db.Completion `json:"completions"`
	ExportedAt  time.Time       `json:"exported_at"`
}

// UserStore loads the account being exported.
type UserStore interface {
	Get(ctx context.Context, id uuid.UUID) (*db.User, error)
}

// ProfileStore loads the account's profile.
type ProfileStore interface {
	Get(ctx context.Context, userID uuid.UUID) (*db.Profile, error)
}

// HabitStore lists habits, archived ones included.
type HabitStore interface {
	List(ctx context.Context, userID uuid.UUID, includeArchived bool) ([]db.Habit, error)
}

// CompletionStore lists every completion of a user.
type CompletionStore interface {
	ListForUser(ctx context.Context, userID uuid.UUID, since db.Date) ([]db.Completion, error)
}

// Service gathers export data.
type Service struct {
	users       UserStore
	profiles    ProfileStore
	habits      HabitStore
	completions CompletionStore
	now         func() time.Time
}

// New creates an export service backed by the database.
func New(database *db.DB) *Service {
	return &Service{
		users:       database.Users(),
		profiles:    database.Profiles(),
		habits:      database.Habits(),
		completions: database.Completions(),
		now:         time.Now,
	}
}

// Build collects the user's account, profile, habits (archived included) and
// all completions.
func (s *Service) Build(ctx context.Context, userID uuid.UUID) (*Document, error) {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading user: %w", err)
	}

	profile, err := s.profiles.Get(ctx, userID)
	if errors.Is(err, db.ErrNotFound) {
		profile = nil
	} else if err != nil {
		return nil, fmt.Errorf("loading profile: %w", err)
	}

	habits, err := s.habits.List(ctx, userID, true)
	if err != nil {
		return nil, fmt.Errorf("listing habits: %w", err)
	}
	completions, err := s.completions.ListForUser(ctx, userID, db.Date{})
	if err != nil {
		return nil, fmt.Errorf("listing completions: %w", err)
	}
	if habits == nil {
		habits = []db.Habit{}
	}
	if completions == nil {
		completions = []db.Completion{}
	}

	return &Document{
		User:        Account{Email: user.Email, CreatedAt: user.CreatedAt},
		Profile:     profile,
		Habits:      habits,
		Completions: completions,
		ExportedAt:  s.now().UTC(),
	}, nil
}

// Write encodes doc to w in format f.
func Write(w io.Writer, f Format, doc *Document) error {
	if f == FormatCSV {
		return WriteCSV(w, doc.Habits, doc.Completions)
	}
	return WriteJSON(w, doc)
}

// WriteJSON writes doc as indented JSON.
func WriteJSON(w io.Writer, doc *Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding export: %w", err)
	}
	return nil
}

// WriteCSV writes one row per completion under the header
// Date,Habit,Duration,Mood,Notes. Notes are always quoted; habit names only
// when they need it. Rows are separated by "\n" with no trailing newline.
func WriteCSV(w io.Writer, habits []db.Habit, completions []db.Completion) error {
	names := make(map[uuid.UUID]string, len(habits))
	for _, h := range habits {
		names[h.ID] = h.Name
	}

	bw := bufio.NewWriter(w)
	bw.WriteString("Date,Habit,Duration,Mood,Notes")
	for _, c := range completions {
		name, ok := names[c.HabitID]
		if !ok {
			name = "Unknown"
		}

		bw.WriteByte('\n')
		bw.WriteString(strings.Join([]string{
			c.CompletedDate.String(),
			quoteIfNeeded(name),
			positive(c.Duration),
			positive(c.MoodScore),
			quoteNotes(c.Notes),
		}, ","))
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("writing csv: %w", err)
	}
	return nil
}

// positive renders v, leaving the cell empty for nil or zero.
func positive(v *int) string {
	if v == nil || *v == 0 {
		return ""
	}
	return strconv.Itoa(*v)
}

func quoteNotes(notes *string) string {
	if notes == nil || *notes == "" {
		return ""
	}
	return quote(*notes)
}

func quoteIfNeeded(s string) string {
	if strings.ContainsAny(s, ",\"\r\n") {
		return quote(s)
	}
	return s
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
