// Package suggest runs the three-phase meal suggestion pipeline: enumerate
// candidate names, generate recipes for them in parallel across two backend
// pools, and optionally translate the winners.
package suggest

import (
	"fmt"
	"strings"

	"mealsuggest"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"
)

const (
	// candidateCount is how many names Phase 1 asks for. Deliberately one
	// more than resultCount so Phase 2 can lose a call and still finish.
	candidateCount = 4

	// resultCount is how many suggestions a fully successful run returns.
	resultCount = 3

	// minUniqueNames is the floor after case-insensitive dedup. Below this
	// there is nothing worth generating recipes for.
	minUniqueNames = 3
)

const namesSystemPrompt = `You are a culinary assistant for a nutrition app. You propose diverse, realistic meal names. You respond with JSON only.`

const recipeSystemPrompt = `You are a culinary assistant for a nutrition app. You write complete, practical recipes with realistic nutrition estimates. You respond with JSON only.`

const translateSystemPrompt = `You are a translator for a nutrition app. You translate meal names, descriptions, ingredient names, and cooking instructions. You never change numbers, units, or JSON keys. You respond with JSON only.`

// namesSchema constrains Phase 1 output to exactly candidateCount short
// strings.
func namesSchema() *jsonschema.Schema {
	n := candidateCount
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"names": {
				Type:     "array",
				Items:    &jsonschema.Schema{Type: "string"},
				MinItems: &n,
				MaxItems: &n,
			},
		},
		Required: []string{"names"},
	}
}

// recipeSchema constrains a Phase 2 recipe payload.
func recipeSchema() *jsonschema.Schema {
	minAmount := 0.0
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"description": {Type: "string"},
			"ingredients": {
				Type: "array",
				Items: &jsonschema.Schema{
					Type: "object",
					Properties: map[string]*jsonschema.Schema{
						"name":   {Type: "string"},
						"amount": {Type: "number", Minimum: &minAmount},
						"unit":   {Type: "string"},
					},
					Required: []string{"name", "amount", "unit"},
				},
			},
			"steps": {
				Type: "array",
				Items: &jsonschema.Schema{
					Type: "object",
					Properties: map[string]*jsonschema.Schema{
						"number":           {Type: "integer"},
						"instruction":      {Type: "string"},
						"duration_minutes": {Type: "integer"},
					},
					Required: []string{"number", "instruction"},
				},
			},
			"prep_time_minutes": {Type: "integer"},
			"macros": {
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"calories": {Type: "number"},
					"protein":  {Type: "number"},
					"carbs":    {Type: "number"},
					"fat":      {Type: "number"},
				},
			},
		},
		Required: []string{"ingredients", "steps"},
	}
}

// translationSchema mirrors the translatable subset of a suggestion batch.
func translationSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"suggestions": {
				Type: "array",
				Items: &jsonschema.Schema{
					Type: "object",
					Properties: map[string]*jsonschema.Schema{
						"name":        {Type: "string"},
						"description": {Type: "string"},
						"ingredient_names": {
							Type:  "array",
							Items: &jsonschema.Schema{Type: "string"},
						},
						"instructions": {
							Type:  "array",
							Items: &jsonschema.Schema{Type: "string"},
						},
					},
					Required: []string{"name", "description", "ingredient_names", "instructions"},
				},
			},
		},
		Required: []string{"suggestions"},
	}
}

// buildNamesPrompt asks for candidateCount diverse names honoring the
// session's constraints and exclusions.
func buildNamesPrompt(session *mealsuggest.Session) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Suggest exactly %d diverse %s meal names, each from a different cuisine or cooking style.\n", candidateCount, session.MealCategory)
	fmt.Fprintf(&b, "Each meal must be around %.0f kcal per serving and cookable in %d minutes or less.\n", session.TargetCalories, session.CookingTimeMinutes)

	if len(session.Ingredients) > 0 {
		fmt.Fprintf(&b, "Favor these available ingredients: %s.\n", strings.Join(session.Ingredients, ", "))
	}
	if len(session.DietaryPreferences) > 0 {
		fmt.Fprintf(&b, "Respect these dietary preferences: %s.\n", strings.Join(session.DietaryPreferences, ", "))
	}
	if len(session.Allergies) > 0 {
		fmt.Fprintf(&b, "Strictly avoid these allergens: %s.\n", strings.Join(session.Allergies, ", "))
	}
	if len(session.ShownMealNames) > 0 {
		fmt.Fprintf(&b, "Do NOT suggest any of these already-shown meals or close variations of them: %s.\n", strings.Join(session.ShownMealNames, ", "))
	}

	lang := session.Language
	if lang == "" {
		lang = mealsuggest.WorkingLanguage
	}
	fmt.Fprintf(&b, "Write the meal names in language %q.\n", lang)
	b.WriteString(`Respond with a JSON object of the form {"names": ["...", "...", "...", "..."]}.`)

	return b.String()
}

// buildRecipePrompt asks for the full recipe of one candidate name.
func buildRecipePrompt(session *mealsuggest.Session, name string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Write a complete recipe for %q as a %s meal.\n", name, session.MealCategory)
	fmt.Fprintf(&b, "Target roughly %.0f kcal per serving. Total cooking time must not exceed %d minutes.\n", session.TargetCalories, session.CookingTimeMinutes)

	if len(session.Ingredients) > 0 {
		fmt.Fprintf(&b, "Prefer these available ingredients where sensible: %s.\n", strings.Join(session.Ingredients, ", "))
	}
	if len(session.DietaryPreferences) > 0 {
		fmt.Fprintf(&b, "Respect these dietary preferences: %s.\n", strings.Join(session.DietaryPreferences, ", "))
	}
	if len(session.Allergies) > 0 {
		fmt.Fprintf(&b, "The recipe must not contain these allergens in any form: %s.\n", strings.Join(session.Allergies, ", "))
	}

	b.WriteString("Include a one-sentence description, the full ingredient list with amounts and units, numbered cooking steps, preparation time in minutes, and estimated macros (calories, protein, carbs, fat).\n")
	b.WriteString("Respond with a single JSON object.")

	return b.String()
}

// buildTranslatePrompt asks for a batch translation of the user-visible text
// fields. Numeric fields never enter the payload.
func buildTranslatePrompt(batch translationBatch, language string) (string, error) {
	var b strings.Builder

	fmt.Fprintf(&b, "Translate all text values in the following JSON from %q to %q.\n", mealsuggest.WorkingLanguage, language)
	b.WriteString("Keep the JSON structure and keys exactly as they are. Keep list lengths and order unchanged. Translate only the string values.\n")

	payload, err := batch.marshal()
	if err != nil {
		return "", fmt.Errorf("failed to build translation payload: %w", err)
	}
	b.WriteString(payload)

	return b.String(), nil
}
