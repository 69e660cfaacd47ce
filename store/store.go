// Package store persists suggestion sessions, their suggestions, and small
// TTL'd key-value entries such as cached daily targets.
package store

import (
	"context"
	"errors"
	"time"

	"mealsuggest"
)

// ErrNotFound is returned when a session, suggestion, or key is absent or
// expired.
var ErrNotFound = errors.New("store: not found")

// Store is the persistence port for the suggestion pipeline. Session writes
// carry the session TTL; UpdateSession preserves the remaining TTL instead of
// resetting it. Deleting a session cascades to its suggestions.
type Store interface {
	SaveSession(ctx context.Context, s *mealsuggest.Session) error
	GetSession(ctx context.Context, id string) (*mealsuggest.Session, error)
	UpdateSession(ctx context.Context, s *mealsuggest.Session) error
	DeleteSession(ctx context.Context, id string) error

	SaveSuggestions(ctx context.Context, suggestions []mealsuggest.MealSuggestion) error
	GetSuggestion(ctx context.Context, id string) (*mealsuggest.MealSuggestion, error)
	UpdateSuggestion(ctx context.Context, s *mealsuggest.MealSuggestion) error

	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}
