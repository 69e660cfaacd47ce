package suggest

import (
	"encoding/json"

	"mealsuggest"
)

// namesPayload is Phase 1's decoded output.
type namesPayload struct {
	Names []string `json:"names"`
}

// recipePayload is one Phase 2 call's decoded output. Numeric fields are
// optional; absent values are defaulted, not rejected.
type recipePayload struct {
	Description     string                   `json:"description"`
	Ingredients     []mealsuggest.Ingredient `json:"ingredients"`
	Steps           []mealsuggest.RecipeStep `json:"steps"`
	PrepTimeMinutes int                      `json:"prep_time_minutes"`
	Macros          mealsuggest.Macros       `json:"macros"`
}

// translationBatch is the translatable projection of a suggestion batch.
// Only user-visible text travels; amounts, macros, and keys stay home.
type translationBatch struct {
	Suggestions []translationItem `json:"suggestions"`
}

type translationItem struct {
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	IngredientNames []string `json:"ingredient_names"`
	Instructions    []string `json:"instructions"`
}

func newTranslationBatch(suggestions []mealsuggest.MealSuggestion) translationBatch {
	batch := translationBatch{Suggestions: make([]translationItem, 0, len(suggestions))}
	for _, s := range suggestions {
		item := translationItem{
			Name:            s.Name,
			Description:     s.Description,
			IngredientNames: make([]string, 0, len(s.Ingredients)),
			Instructions:    make([]string, 0, len(s.Steps)),
		}
		for _, ing := range s.Ingredients {
			item.IngredientNames = append(item.IngredientNames, ing.Name)
		}
		for _, step := range s.Steps {
			item.Instructions = append(item.Instructions, step.Instruction)
		}
		batch.Suggestions = append(batch.Suggestions, item)
	}
	return batch
}

func (b translationBatch) marshal() (string, error) {
	out, err := json.Marshal(b)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// apply copies translated text back onto the suggestions. Structure must
// match exactly; a shape mismatch leaves the batch untouched and reports
// false so the caller can fall back to the untranslated text.
func (b translationBatch) apply(suggestions []mealsuggest.MealSuggestion) bool {
	if len(b.Suggestions) != len(suggestions) {
		return false
	}
	for i, item := range b.Suggestions {
		if len(item.IngredientNames) != len(suggestions[i].Ingredients) {
			return false
		}
		if len(item.Instructions) != len(suggestions[i].Steps) {
			return false
		}
	}
	for i, item := range b.Suggestions {
		suggestions[i].Name = item.Name
		suggestions[i].Description = item.Description
		for j, name := range item.IngredientNames {
			suggestions[i].Ingredients[j].Name = name
		}
		for j, instruction := range item.Instructions {
			suggestions[i].Steps[j].Instruction = instruction
		}
	}
	return true
}
