// Package portion sizes a single meal's calorie envelope from a daily target.
package portion

import (
	"fmt"
	"math"

	"mealsuggest"
)

// Fixed shares of the daily calorie target per portion category.
const (
	snackShare    = 0.12
	snackShareMin = 0.10
	snackShareMax = 0.15

	mainShare  = 0.33
	mainSpread = 0.15

	oneMealShare  = 1.0
	oneMealSpread = 0.10
)

const defaultMealsPerDay = 3

// MaxServings bounds the servings multiplier a caller may request.
const MaxServings = 4

// Target computes the calorie envelope for one generated meal. Unknown
// categories are treated as main meals. Servings (1..4) scale the whole
// envelope.
func Target(category mealsuggest.PortionCategory, dailyCalories float64, mealsPerDay, servings int) (mealsuggest.PortionTarget, error) {
	if dailyCalories <= 0 {
		return mealsuggest.PortionTarget{}, fmt.Errorf("daily calorie target must be positive, got %.2f", dailyCalories)
	}
	if servings < 1 || servings > MaxServings {
		return mealsuggest.PortionTarget{}, fmt.Errorf("servings must be between 1 and %d, got %d", MaxServings, servings)
	}
	if mealsPerDay <= 0 {
		mealsPerDay = defaultMealsPerDay
	}

	var target, min, max float64
	switch category {
	case mealsuggest.PortionSnack:
		target = math.Round(snackShare * dailyCalories)
		min = math.Round(snackShareMin * dailyCalories)
		max = math.Round(snackShareMax * dailyCalories)
	case mealsuggest.PortionOneMeal:
		target = math.Round(oneMealShare * dailyCalories)
		min = math.Round(target * (1 - oneMealSpread))
		max = math.Round(target * (1 + oneMealSpread))
	default:
		// Unknown categories behave like a main meal.
		target = math.Round(mainShare * dailyCalories)
		min = math.Round(target * (1 - mainSpread))
		max = math.Round(target * (1 + mainSpread))
	}

	s := float64(servings)
	pt := mealsuggest.PortionTarget{
		TargetCalories: target * s,
		MinCalories:    min * s,
		MaxCalories:    max * s,
		MealsPerDay:    mealsPerDay,
	}
	if err := validate(pt); err != nil {
		return mealsuggest.PortionTarget{}, err
	}
	return pt, nil
}

// validate enforces the PortionTarget ordering invariant. A violation is a
// failure, never a silent clamp.
func validate(pt mealsuggest.PortionTarget) error {
	if pt.MinCalories > pt.TargetCalories || pt.TargetCalories > pt.MaxCalories {
		return fmt.Errorf("portion target out of order: min=%.0f target=%.0f max=%.0f",
			pt.MinCalories, pt.TargetCalories, pt.MaxCalories)
	}
	return nil
}
