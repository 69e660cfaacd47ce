package suggest

import (
	"testing"

	"mealsuggest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func promptSession() *mealsuggest.Session {
	return &mealsuggest.Session{
		ID:                 "sess-1",
		UserID:             "user-1",
		MealCategory:       "dinner",
		PortionCategory:    mealsuggest.PortionMain,
		TargetCalories:     660,
		Ingredients:        []string{"chicken", "rice"},
		CookingTimeMinutes: 30,
		Language:           "en",
		DietaryPreferences: []string{"high-protein"},
		Allergies:          []string{"peanuts", "shellfish"},
	}
}

func TestBuildNamesPrompt(t *testing.T) {
	s := promptSession()
	s.ShownMealNames = []string{"Thai Basil Chicken", "Salmon Bowl"}

	prompt := buildNamesPrompt(s)

	assert.Contains(t, prompt, "exactly 4")
	assert.Contains(t, prompt, "660 kcal")
	assert.Contains(t, prompt, "30 minutes")
	assert.Contains(t, prompt, "chicken, rice")
	assert.Contains(t, prompt, "high-protein")
	assert.Contains(t, prompt, "peanuts, shellfish")
	assert.Contains(t, prompt, "Thai Basil Chicken, Salmon Bowl")
	assert.Contains(t, prompt, `"en"`)
}

func TestBuildNamesPrompt_OmitsEmptySections(t *testing.T) {
	s := promptSession()
	s.Ingredients = nil
	s.DietaryPreferences = nil
	s.Allergies = nil

	prompt := buildNamesPrompt(s)

	assert.NotContains(t, prompt, "available ingredients")
	assert.NotContains(t, prompt, "dietary preferences")
	assert.NotContains(t, prompt, "allergens")
	assert.NotContains(t, prompt, "already-shown")
}

func TestBuildRecipePrompt(t *testing.T) {
	prompt := buildRecipePrompt(promptSession(), "Beef Stir-fry")

	assert.Contains(t, prompt, `"Beef Stir-fry"`)
	assert.Contains(t, prompt, "660 kcal")
	assert.Contains(t, prompt, "30 minutes")
	assert.Contains(t, prompt, "peanuts, shellfish")
}

func TestBuildTranslatePrompt(t *testing.T) {
	batch := newTranslationBatch([]mealsuggest.MealSuggestion{{
		Name:        "Beef Stir-fry",
		Description: "quick and savory",
		Ingredients: []mealsuggest.Ingredient{{Name: "beef", Amount: 200, Unit: "g"}},
		Steps:       []mealsuggest.RecipeStep{{Number: 1, Instruction: "slice the beef"}},
	}})

	prompt, err := buildTranslatePrompt(batch, "de")
	require.NoError(t, err)

	assert.Contains(t, prompt, `"de"`)
	assert.Contains(t, prompt, "Beef Stir-fry")
	assert.Contains(t, prompt, "slice the beef")
	// Amounts never travel to the translator.
	assert.NotContains(t, prompt, "200")
}

func TestNamesSchemaRequiresExactlyFour(t *testing.T) {
	schema := namesSchema()

	require.Contains(t, schema.Properties, "names")
	names := schema.Properties["names"]
	require.NotNil(t, names.MinItems)
	require.NotNil(t, names.MaxItems)
	assert.Equal(t, candidateCount, *names.MinItems)
	assert.Equal(t, candidateCount, *names.MaxItems)
	assert.Equal(t, []string{"names"}, schema.Required)
}

func TestRecipeSchemaRequiresStructure(t *testing.T) {
	schema := recipeSchema()

	assert.ElementsMatch(t, []string{"ingredients", "steps"}, schema.Required)
	require.Contains(t, schema.Properties, "ingredients")
	require.Contains(t, schema.Properties, "steps")
	require.Contains(t, schema.Properties, "macros")
}

func TestTranslationBatchApply(t *testing.T) {
	freshSuggestions := func() []mealsuggest.MealSuggestion {
		return []mealsuggest.MealSuggestion{{
			Name:        "Beef Stir-fry",
			Description: "quick",
			Ingredients: []mealsuggest.Ingredient{{Name: "beef", Amount: 200, Unit: "g"}},
			Steps:       []mealsuggest.RecipeStep{{Number: 1, Instruction: "slice"}},
		}}
	}

	t.Run("matching shape applies", func(t *testing.T) {
		batch := translationBatch{Suggestions: []translationItem{{
			Name:            "Rindfleischpfanne",
			Description:     "schnell",
			IngredientNames: []string{"Rindfleisch"},
			Instructions:    []string{"schneiden"},
		}}}

		local := freshSuggestions()
		require.True(t, batch.apply(local))
		assert.Equal(t, "Rindfleischpfanne", local[0].Name)
		assert.Equal(t, "Rindfleisch", local[0].Ingredients[0].Name)
		assert.Equal(t, "schneiden", local[0].Steps[0].Instruction)
		assert.InDelta(t, 200, local[0].Ingredients[0].Amount, 0.01)
	})

	t.Run("shape mismatch leaves batch untouched", func(t *testing.T) {
		batch := translationBatch{Suggestions: []translationItem{{
			Name:            "Rindfleischpfanne",
			IngredientNames: []string{"a", "b"},
			Instructions:    []string{"schneiden"},
		}}}

		local := freshSuggestions()
		require.False(t, batch.apply(local))
		assert.Equal(t, "Beef Stir-fry", local[0].Name)
	})
}
