// Package templates serves the built-in habit template catalog and turns a
// template into habits for a user.
package templates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/justestif/habitual/internal/db"
)

// Errors returned by Apply.
var (
	ErrTemplateNotFound = fmt.Errorf("template %w", db.ErrNotFound)
	ErrWrite            = errors.New("could not create habits from template")
)

// DefaultTTL is how long the template list stays cached.
const DefaultTTL = 10 * time.Minute

const listCacheKey = "templates:all"

// Store reads templates.
type Store interface {
	List(ctx context.Context) ([]db.Template, error)
	Get(ctx context.Context, id uuid.UUID) (*db.Template, error)
}

// HabitWriter inserts a batch of habits atomically.
type HabitWriter interface {
	CreateBatch(ctx context.Context, habits []*db.Habit) error
}

// Service lists templates and applies them.
type Service struct {
	store  Store
	habits HabitWriter
	cache  Cache
	ttl    time.Duration
	logger *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithCache caches the template list in c for ttl.
func WithCache(c Cache, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = c
		s.ttl = ttl
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// New creates a template service backed by the database.
func New(database *db.DB, opts ...Option) *Service {
	return newService(database.Templates(), database.Habits(), opts...)
}

func newService(store Store, habits HabitWriter, opts ...Option) *Service {
	s := &Service{
		store:  store,
		habits: habits,
		cache:  NopCache{},
		ttl:    DefaultTTL,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns every template in creation order. Cache failures fall back
// to the store.
func (s *Service) List(ctx context.Context) ([]db.Template, error) {
	if b, ok, err := s.cache.Get(ctx, listCacheKey); err != nil {
		s.logger.Warn("reading template cache", zap.Error(err))
	} else if ok {
		var cached []db.Template
		if err := json.Unmarshal(b, &cached); err == nil {
			return cached, nil
		}
		s.logger.Warn("discarding undecodable template cache entry")
		if err := s.cache.Delete(ctx, listCacheKey); err != nil {
			s.logger.Warn("deleting template cache entry", zap.Error(err))
		}
	}

	list, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing templates: %w", err)
	}
	if list == nil {
		list = []db.Template{}
	}

	if b, err := json.Marshal(list); err == nil {
		if err := s.cache.Set(ctx, listCacheKey, b, s.ttl); err != nil {
			s.logger.Warn("writing template cache", zap.Error(err))
		}
	}
	return list, nil
}

// HabitsFor builds one daily habit per suggested name of t.
func HabitsFor(t *db.Template, userID uuid.UUID) []*db.Habit {
	description := "Part of " + t.Name
	habits := make([]*db.Habit, len(t.Habits))
	for i, name := range t.Habits {
		desc := description
		habits[i] = &db.Habit{
			UserID:        userID,
			Name:          name,
			Description:   &desc,
			FrequencyType: db.FrequencyDaily,
			Color:         t.Color,
			Icon:          t.Icon,
			Timezone:      "UTC",
		}
	}
	return habits
}

// Apply creates the template's habits for the user. Either all habits are
// created or none are.
func (s *Service) Apply(ctx context.Context, userID, templateID uuid.UUID) ([]db.Habit, error) {
	t, err := s.store.Get(ctx, templateID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrTemplateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading template: %w", err)
	}

	habits := HabitsFor(t, userID)
	if len(habits) > 0 {
		if err := s.habits.CreateBatch(ctx, habits); err != nil {
			s.logger.Error("applying template",
				zap.Stringer("template_id", templateID),
				zap.Stringer("user_id", userID),
				zap.Error(err),
			)
			return nil, fmt.Errorf("%w: %w", ErrWrite, err)
		}
	}

	out := make([]db.Habit, len(habits))
	for i, h := range habits {
		out[i] = *h
	}
	s.logger.Info("template applied",
		zap.String("template", t.Name),
		zap.Int("habits", len(out)),
		zap.Stringer("user_id", userID),
	)
	return out, nil
}
