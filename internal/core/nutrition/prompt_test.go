package nutrition

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func float(v float64) *float64 { return &v }

func TestBuildPrompt(t *testing.T) {
	user := UserProfile{
		UserID:            "u1",
		Age:               float(35),
		Weight:            float(72.5),
		Allergies:         []string{"peanuts"},
		HealthConditions:  []string{"diabetes"},
		HasAllergies:      true,
		PreferredLanguage: "english",
	}
	product := ProductRecord{
		Name:            "Choco Bar",
		Barcode:         "6133414007137",
		Ingredients:     []string{"sugar", "cocoa"},
		NutriScore:      "E",
		NutritionValues: map[string]interface{}{"sugars": 45, "energy": 520},
	}

	prompt := BuildPrompt(user, product, "")

	assert.Contains(t, prompt, "- Name: Choco Bar\n")
	assert.Contains(t, prompt, "- Barcode: 6133414007137\n")
	assert.Contains(t, prompt, "- Brand: not specified\n")
	assert.Contains(t, prompt, "- Ingredients: sugar, cocoa\n")
	assert.Contains(t, prompt, "- Additives: not specified\n")
	assert.Contains(t, prompt, "- Nutri-Score: E\n")
	assert.Contains(t, prompt, "- Nutrition Values: energy=520, sugars=45\n")
	assert.Contains(t, prompt, "- Age: 35\n")
	assert.Contains(t, prompt, "- Weight: 72.5 kg\n")
	assert.Contains(t, prompt, "- Height: not specified\n")
	assert.Contains(t, prompt, "- Allergies: peanuts\n")
	assert.Contains(t, prompt, "- Has Allergies: Yes\n")
	assert.Contains(t, prompt, "- Has Chronic Disease: No\n")
	assert.Contains(t, prompt, MarkerRecommended)
	assert.Contains(t, prompt, MarkerCaution)
	assert.Contains(t, prompt, MarkerAvoid)
	assert.Contains(t, prompt, "Your response should be in english")
	assert.NotContains(t, prompt, "Additive Reference Data")

	assert.Equal(t, prompt, BuildPrompt(user, product, ""), "prompt must be deterministic")
}

func TestBuildPromptReference(t *testing.T) {
	user := UserProfile{UserID: "u1"}
	product := ProductRecord{Name: "Soda", Additives: []string{"E150d"}}

	prompt := BuildPrompt(user, product, "E150D: Sulphite ammonia caramel")
	assert.Contains(t, prompt, "**Additive Reference Data**:\nE150D: Sulphite ammonia caramel\n")
	assert.Contains(t, prompt, "Your response should be in french")

	assert.NotContains(t, BuildPrompt(user, product, "   "), "Additive Reference Data")
}
