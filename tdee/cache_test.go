package tdee

import (
	"context"
	"errors"
	"testing"
	"time"

	"mealsuggest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockKV implements the kv interface for testing.
type mockKV struct {
	values   map[string]string
	getErr   error
	setErr   error
	setCalls int
}

func newMockKV() *mockKV {
	return &mockKV{values: make(map[string]string)}
}

func (m *mockKV) Get(ctx context.Context, key string) (string, bool, error) {
	if m.getErr != nil {
		return "", false, m.getErr
	}
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *mockKV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	m.setCalls++
	if m.setErr != nil {
		return m.setErr
	}
	m.values[key] = value
	return nil
}

func testProfile() *mealsuggest.UserProfile {
	return &mealsuggest.UserProfile{
		Age: 30, Sex: "male", HeightCm: 180, WeightKg: 80,
		ActivityLevel: "moderate", Goal: "maintain", MealsPerDay: 3,
	}
}

func TestDailyTargetCacheMiss(t *testing.T) {
	cache := newMockKV()
	targets := NewCachedTargets(cache)

	got, err := targets.DailyTarget(context.Background(), "u1", testProfile())
	require.NoError(t, err)
	assert.InDelta(t, 2759, got, 0.01)

	// Value was written back as plain float text under the user key.
	assert.Equal(t, "2759", cache.values["user:tdee:u1"])
}

func TestDailyTargetCacheHit(t *testing.T) {
	cache := newMockKV()
	cache.values["user:tdee:u1"] = "2100.5"
	targets := NewCachedTargets(cache)

	// A nil profile would fail Calculate; a cache hit must short-circuit it.
	got, err := targets.DailyTarget(context.Background(), "u1", nil)
	require.NoError(t, err)
	assert.Equal(t, 2100.5, got)
	assert.Zero(t, cache.setCalls)
}

func TestDailyTargetCacheErrorsDegrade(t *testing.T) {
	tests := []struct {
		name   string
		getErr error
		setErr error
	}{
		{name: "read error", getErr: errors.New("cache down")},
		{name: "write error", setErr: errors.New("cache down")},
		{name: "both fail", getErr: errors.New("down"), setErr: errors.New("down")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := newMockKV()
			cache.getErr = tt.getErr
			cache.setErr = tt.setErr
			targets := NewCachedTargets(cache)

			got, err := targets.DailyTarget(context.Background(), "u1", testProfile())
			require.NoError(t, err)
			assert.InDelta(t, 2759, got, 0.01)
		})
	}
}

func TestDailyTargetUnparseableCacheValue(t *testing.T) {
	cache := newMockKV()
	cache.values["user:tdee:u1"] = "not-a-number"
	targets := NewCachedTargets(cache)

	got, err := targets.DailyTarget(context.Background(), "u1", testProfile())
	require.NoError(t, err)
	assert.InDelta(t, 2759, got, 0.01)
}

func TestDailyTargetNilCache(t *testing.T) {
	targets := NewCachedTargets(nil)
	got, err := targets.DailyTarget(context.Background(), "u1", testProfile())
	require.NoError(t, err)
	assert.InDelta(t, 2759, got, 0.01)
}
