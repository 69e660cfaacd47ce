package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"mealsuggest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T) *SQLite {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "suggest.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteSessionRoundtrip(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	sess := testSession("sess-1", "user-a", now)
	sess.DietaryPreferences = []string{"vegetarian"}
	sess.Allergies = []string{"peanuts"}
	require.NoError(t, s.SaveSession(ctx, sess))

	got, err := s.GetSession(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, sess.UserID, got.UserID)
	assert.Equal(t, sess.Ingredients, got.Ingredients)
	assert.Equal(t, sess.DietaryPreferences, got.DietaryPreferences)
	assert.Equal(t, sess.Allergies, got.Allergies)

	_, err = s.GetSession(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteExpiredSessionInvisible(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	created := time.Now().Add(-mealsuggest.SessionTTL - time.Minute)
	sess := testSession("sess-old", "user-a", created)
	require.NoError(t, s.SaveSession(ctx, sess))

	_, err := s.GetSession(ctx, "sess-old")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteUpdatePreservesTTL(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	sess := testSession("sess-1", "user-a", now)
	require.NoError(t, s.SaveSession(ctx, sess))

	updated := *sess
	updated.ShownMealNames = []string{"Salmon Bowl"}
	updated.ExpiresAt = now.Add(72 * time.Hour)
	require.NoError(t, s.UpdateSession(ctx, &updated))

	got, err := s.GetSession(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Salmon Bowl"}, got.ShownMealNames)

	// Move the clock past the original expiry: the stored row must now be
	// gone despite the payload claiming a later expiry.
	s.now = func() time.Time { return now.Add(mealsuggest.SessionTTL + time.Minute) }
	_, err = s.GetSession(ctx, "sess-1")
	assert.ErrorIs(t, err, ErrNotFound)

	t.Run("update of unknown session fails", func(t *testing.T) {
		missing := testSession("ghost", "user-a", now)
		assert.ErrorIs(t, s.UpdateSession(ctx, missing), ErrNotFound)
	})
}

func TestSQLiteDeleteCascades(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, s.SaveSession(ctx, testSession("sess-1", "user-a", now)))
	require.NoError(t, s.SaveSuggestions(ctx, []mealsuggest.MealSuggestion{
		testSuggestion("sug-1", "sess-1", "user-a"),
		testSuggestion("sug-2", "sess-1", "user-a"),
	}))

	require.NoError(t, s.DeleteSession(ctx, "sess-1"))

	_, err := s.GetSession(ctx, "sess-1")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetSuggestion(ctx, "sug-1")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetSuggestion(ctx, "sug-2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteSuggestionUpdate(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, s.SaveSession(ctx, testSession("sess-1", "user-a", now)))
	sug := testSuggestion("sug-1", "sess-1", "user-a")
	require.NoError(t, s.SaveSuggestions(ctx, []mealsuggest.MealSuggestion{sug}))

	sug.Status = mealsuggest.StatusAccepted
	require.NoError(t, s.UpdateSuggestion(ctx, &sug))

	got, err := s.GetSuggestion(ctx, "sug-1")
	require.NoError(t, err)
	assert.Equal(t, mealsuggest.StatusAccepted, got.Status)
	assert.True(t, got.IsValid())
}

func TestSQLiteKV(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "user:tdee:u1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "user:tdee:u1", "2100.5", time.Hour))

	v, ok, err := s.Get(ctx, "user:tdee:u1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "2100.5", v)

	// Overwrite wins.
	require.NoError(t, s.Set(ctx, "user:tdee:u1", "1900", time.Hour))
	v, ok, err = s.Get(ctx, "user:tdee:u1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1900", v)

	// Expired entries read as absent.
	s.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, ok, err = s.Get(ctx, "user:tdee:u1")
	require.NoError(t, err)
	assert.False(t, ok)
}
