// Package tdee computes and caches a user's daily calorie target.
package tdee

import (
	"errors"
	"fmt"

	"mealsuggest"
)

// Activity multipliers applied to the Mifflin-St Jeor basal rate.
var activityFactors = map[string]float64{
	"sedentary":   1.2,
	"light":       1.375,
	"moderate":    1.55,
	"active":      1.725,
	"very_active": 1.9,
}

// Goal adjustments in kcal/day.
var goalAdjustments = map[string]float64{
	"lose":     -500,
	"maintain": 0,
	"gain":     300,
}

const defaultActivityFactor = 1.2

// Calculate returns the daily calorie target for a profile using the
// Mifflin-St Jeor equation, an activity multiplier, and a goal adjustment.
func Calculate(p *mealsuggest.UserProfile) (float64, error) {
	if p == nil {
		return 0, errors.New("profile is nil")
	}
	if p.Age <= 0 || p.Age > 120 {
		return 0, fmt.Errorf("age out of plausible range: %d", p.Age)
	}
	// Sanity checks to avoid garbage input
	if p.HeightCm < 50 || p.HeightCm > 250 || p.WeightKg < 10 || p.WeightKg > 400 {
		return 0, errors.New("height/weight out of plausible range")
	}

	bmr := 10*p.WeightKg + 6.25*p.HeightCm - 5*float64(p.Age)
	switch p.Sex {
	case "male":
		bmr += 5
	case "female":
		bmr -= 161
	default:
		// Unspecified sex: split the difference between the two offsets.
		bmr -= 78
	}

	factor, ok := activityFactors[p.ActivityLevel]
	if !ok {
		factor = defaultActivityFactor
	}

	target := bmr*factor + goalAdjustments[p.Goal]
	if target < 0 {
		return 0, fmt.Errorf("computed daily target is negative: %.2f", target)
	}
	return target, nil
}
