package portion

import (
	"testing"

	"mealsuggest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTarget(t *testing.T) {
	tests := []struct {
		name        string
		category    mealsuggest.PortionCategory
		daily       float64
		mealsPerDay int
		servings    int
		wantTarget  float64
		wantMin     float64
		wantMax     float64
		expectError bool
	}{
		{
			name:        "main meal at 2000 kcal",
			category:    mealsuggest.PortionMain,
			daily:       2000,
			mealsPerDay: 3,
			servings:    1,
			wantTarget:  660,
			wantMin:     561,
			wantMax:     759,
		},
		{
			name:        "snack at 2000 kcal",
			category:    mealsuggest.PortionSnack,
			daily:       2000,
			mealsPerDay: 3,
			servings:    1,
			wantTarget:  240,
			wantMin:     200,
			wantMax:     300,
		},
		{
			name:        "one meal a day at 1800 kcal",
			category:    mealsuggest.PortionOneMeal,
			daily:       1800,
			mealsPerDay: 1,
			servings:    1,
			wantTarget:  1800,
			wantMin:     1620,
			wantMax:     1980,
		},
		{
			name:        "unknown category treated as main",
			category:    mealsuggest.PortionCategory("brunch"),
			daily:       2000,
			mealsPerDay: 3,
			servings:    1,
			wantTarget:  660,
			wantMin:     561,
			wantMax:     759,
		},
		{
			name:        "servings scale the envelope",
			category:    mealsuggest.PortionMain,
			daily:       2000,
			mealsPerDay: 3,
			servings:    2,
			wantTarget:  1320,
			wantMin:     1122,
			wantMax:     1518,
		},
		{
			name:        "negative daily target rejected",
			category:    mealsuggest.PortionMain,
			daily:       -100,
			mealsPerDay: 3,
			servings:    1,
			expectError: true,
		},
		{
			name:        "zero daily target rejected",
			category:    mealsuggest.PortionSnack,
			daily:       0,
			mealsPerDay: 3,
			servings:    1,
			expectError: true,
		},
		{
			name:        "servings out of range rejected",
			category:    mealsuggest.PortionMain,
			daily:       2000,
			mealsPerDay: 3,
			servings:    5,
			expectError: true,
		},
		{
			name:        "zero servings rejected",
			category:    mealsuggest.PortionMain,
			daily:       2000,
			mealsPerDay: 3,
			servings:    0,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Target(tt.category, tt.daily, tt.mealsPerDay, tt.servings)
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantTarget, got.TargetCalories)
			assert.Equal(t, tt.wantMin, got.MinCalories)
			assert.Equal(t, tt.wantMax, got.MaxCalories)
		})
	}
}

func TestTargetInvariant(t *testing.T) {
	// min <= target <= max must hold for every category across a range of
	// daily targets.
	categories := []mealsuggest.PortionCategory{
		mealsuggest.PortionSnack,
		mealsuggest.PortionMain,
		mealsuggest.PortionOneMeal,
	}
	for _, cat := range categories {
		for daily := 800.0; daily <= 4000; daily += 137 {
			pt, err := Target(cat, daily, 3, 1)
			require.NoError(t, err, "category %s daily %.0f", cat, daily)
			assert.LessOrEqual(t, pt.MinCalories, pt.TargetCalories, "category %s daily %.0f", cat, daily)
			assert.LessOrEqual(t, pt.TargetCalories, pt.MaxCalories, "category %s daily %.0f", cat, daily)
		}
	}
}

func TestTargetDefaultsMealsPerDay(t *testing.T) {
	pt, err := Target(mealsuggest.PortionMain, 2000, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, pt.MealsPerDay)
}
