package mealsuggest

import (
	"context"
	"net/http"
	"strings"
	"time"
)

const (
	// SessionTTL bounds how long a suggestion conversation stays resumable.
	SessionTTL = 4 * time.Hour

	// DailyTargetTTL bounds the cached per-user daily calorie target.
	DailyTargetTTL = 24 * time.Hour

	// WorkingLanguage is the language the generation pipeline operates in.
	// Suggestions are translated after the fact when the session asks for
	// something else.
	WorkingLanguage = "en"
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// PortionCategory classifies a meal by its share of the daily calorie target.
type PortionCategory string

const (
	PortionSnack   PortionCategory = "snack"
	PortionMain    PortionCategory = "main"
	PortionOneMeal PortionCategory = "one-meal-a-day"
)

// PortionTarget is the calorie envelope a single generated meal should hit.
type PortionTarget struct {
	TargetCalories float64 `json:"target_calories"`
	MinCalories    float64 `json:"min_calories"`
	MaxCalories    float64 `json:"max_calories"`
	MealsPerDay    int     `json:"meals_per_day"`
}

// Session is one time-boxed suggestion conversation for a single user. The
// constraint fields are fixed at creation; only the shown-accumulators grow.
type Session struct {
	ID                 string          `json:"id"`
	UserID             string          `json:"user_id"`
	MealCategory       string          `json:"meal_category"`
	PortionCategory    PortionCategory `json:"portion_category"`
	TargetCalories     float64         `json:"target_calories"`
	Ingredients        []string        `json:"ingredients"`
	CookingTimeMinutes int             `json:"cooking_time_minutes"`
	Language           string          `json:"language"`
	DietaryPreferences []string        `json:"dietary_preferences,omitempty"`
	Allergies          []string        `json:"allergies,omitempty"`
	ShownSuggestionIDs []string        `json:"shown_suggestion_ids,omitempty"`
	ShownMealNames     []string        `json:"shown_meal_names,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	ExpiresAt          time.Time       `json:"expires_at"`
}

// Expired reports whether the session is past its expiry.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// OwnedBy reports whether the session belongs to the given user. Sessions
// owned by someone else must be treated as not found.
func (s *Session) OwnedBy(userID string) bool {
	return s.UserID == userID
}

// AppendShown records newly returned suggestions in the session accumulators.
// Both lists are append-only; names keep their display casing.
func (s *Session) AppendShown(ids, names []string) {
	s.ShownSuggestionIDs = append(s.ShownSuggestionIDs, ids...)
	s.ShownMealNames = append(s.ShownMealNames, names...)
}

// HasShownName reports whether a meal name was already shown in this session,
// compared case-insensitively.
func (s *Session) HasShownName(name string) bool {
	for _, shown := range s.ShownMealNames {
		if strings.EqualFold(shown, name) {
			return true
		}
	}
	return false
}

// Macros is the nutrition estimate attached to a generated meal.
type Macros struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
}

// Ingredient is one line of a generated recipe's ingredient list.
type Ingredient struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
	Unit   string  `json:"unit"`
}

// RecipeStep is one ordered instruction of a generated recipe.
type RecipeStep struct {
	Number          int    `json:"number"`
	Instruction     string `json:"instruction"`
	DurationMinutes int    `json:"duration_minutes,omitempty"`
}

// SuggestionStatus tracks what the user did with a suggestion.
type SuggestionStatus string

const (
	StatusShown    SuggestionStatus = "shown"
	StatusAccepted SuggestionStatus = "accepted"
	StatusRejected SuggestionStatus = "rejected"
)

// MealSuggestion is one ready-to-serve meal produced by the pipeline. It
// belongs to exactly one session and is never mutated mid-generation.
type MealSuggestion struct {
	ID              string           `json:"id"`
	SessionID       string           `json:"session_id"`
	UserID          string           `json:"user_id"`
	Name            string           `json:"name"`
	Description     string           `json:"description"`
	MealCategory    string           `json:"meal_category"`
	Macros          Macros           `json:"macros"`
	Ingredients     []Ingredient     `json:"ingredients"`
	Steps           []RecipeStep     `json:"steps"`
	PrepTimeMinutes int              `json:"prep_time_minutes"`
	Confidence      float64          `json:"confidence"`
	Status          SuggestionStatus `json:"status"`
	GeneratedAt     time.Time        `json:"generated_at"`
}

// IsValid checks the structural requirements for a usable suggestion: a name,
// at least one ingredient, and at least one step. Missing numeric fields are
// defaulted upstream and do not make a suggestion invalid.
func (m *MealSuggestion) IsValid() bool {
	if m.Name == "" {
		return false
	}
	if len(m.Ingredients) == 0 {
		return false
	}
	if len(m.Steps) == 0 {
		return false
	}
	return true
}

// UserProfile is the physiological profile used to size a brand-new session.
type UserProfile struct {
	Age                int      `json:"age"`
	Sex                string   `json:"sex"`
	HeightCm           float64  `json:"height_cm"`
	WeightKg           float64  `json:"weight_kg"`
	ActivityLevel      string   `json:"activity_level"`
	Goal               string   `json:"goal"`
	DietaryPreferences []string `json:"dietary_preferences,omitempty"`
	Allergies          []string `json:"allergies,omitempty"`
	MealsPerDay        int      `json:"meals_per_day"`
}

// GenerateInput carries the caller-supplied constraints for one generation
// request. SessionID is optional; when set and resolvable the stored
// session's constraints win over the rest of the input.
type GenerateInput struct {
	UserID             string
	MealCategory       string
	PortionCategory    PortionCategory
	Ingredients        []string
	CookingTimeMinutes int
	SessionID          string
	Language           string
	Servings           int
}

// Suggester is the interface the suggestion pipeline exposes to callers such
// as the HTTP layer.
type Suggester interface {
	Generate(ctx context.Context, in GenerateInput) (*Session, []MealSuggestion, error)
	Regenerate(ctx context.Context, userID, sessionID string, excludeIDs []string) (*Session, []MealSuggestion, error)
}
