package profile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"mealsuggest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileProvider(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name        string
		filename    string
		data        []byte
		userID      string
		expectErr   error
		expectAge   int
		expectError bool
	}{
		{
			name:      "profile present",
			filename:  "profiles.json",
			data:      []byte(`{"profiles": {"user-a": {"age": 30, "sex": "male", "height_cm": 180, "weight_kg": 80, "activity_level": "moderate", "goal": "maintain", "meals_per_day": 3}}}`),
			userID:    "user-a",
			expectAge: 30,
		},
		{
			name:        "profile absent",
			filename:    "other.json",
			data:        []byte(`{"profiles": {"user-a": {"age": 30}}}`),
			userID:      "user-z",
			expectErr:   ErrProfileNotFound,
			expectError: true,
		},
		{
			name:        "malformed document",
			filename:    "broken.json",
			data:        []byte(`{"profiles": [`),
			userID:      "user-a",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filePath := filepath.Join(tmpDir, tt.filename)
			require.NoError(t, os.WriteFile(filePath, tt.data, 0644))

			provider := NewFile(filePath)
			got, err := provider.Load(context.Background(), tt.userID)

			if tt.expectError {
				assert.Error(t, err)
				if tt.expectErr != nil {
					assert.ErrorIs(t, err, tt.expectErr)
				}
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expectAge, got.Age)
		})
	}

	t.Run("load nonexistent file", func(t *testing.T) {
		provider := NewFile(filepath.Join(tmpDir, "nonexistent.json"))
		_, err := provider.Load(context.Background(), "user-a")
		assert.Error(t, err)
		assert.True(t, os.IsNotExist(err))
	})
}

func TestStaticProvider(t *testing.T) {
	t.Run("empty provider", func(t *testing.T) {
		provider := NewStatic(nil)
		_, err := provider.Load(context.Background(), "user-a")
		assert.ErrorIs(t, err, ErrProfileNotFound)
	})

	t.Run("profile present returns a copy", func(t *testing.T) {
		provider := NewStatic(map[string]mealsuggest.UserProfile{
			"user-a": {Age: 30, MealsPerDay: 3},
		})
		got, err := provider.Load(context.Background(), "user-a")
		require.NoError(t, err)
		assert.Equal(t, 30, got.Age)

		got.Age = 99
		again, err := provider.Load(context.Background(), "user-a")
		require.NoError(t, err)
		assert.Equal(t, 30, again.Age)
	})

	t.Run("injected error", func(t *testing.T) {
		boom := errors.New("backend down")
		provider := NewStaticWithError(boom)
		_, err := provider.Load(context.Background(), "user-a")
		assert.ErrorIs(t, err, boom)
	})
}
