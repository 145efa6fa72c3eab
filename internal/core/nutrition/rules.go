package nutrition

import "strings"

// ruleSet 規則引擎的罐頭回覆
type ruleSet struct {
	allergy  string
	diabetes string
	grade    string
	fallback string
}

var ruleTemplates = map[string]ruleSet{
	"french": {
		allergy:  MarkerAvoid + " - Ce produit contient des allergènes qui correspondent à vos allergies déclarées. Veuillez consulter un professionnel de la santé avant de consommer. Des alternatives sans allergènes sont recommandées.",
		diabetes: MarkerCaution + " - Ce produit a un score nutritionnel bas qui peut être problématique pour votre diabète. Limitez votre consommation et privilégiez des options avec moins de sucre.",
		grade:    MarkerCaution + " - Ce produit a un score nutritionnel faible. Limitez votre consommation, surtout si vous suivez un régime particulier. Recherchez des alternatives plus saines.",
		fallback: MarkerRecommended + " - Ce produit semble être compatible avec votre profil de santé. Consommez dans le cadre d'une alimentation équilibrée et variée.",
	},
	"english": {
		allergy:  MarkerAvoid + " - This product contains allergens matching your declared allergies. Please consult a health professional before consuming it. Allergen-free alternatives are recommended.",
		diabetes: MarkerCaution + " - This product has a low nutrition score that may be problematic for your diabetes. Limit your consumption and prefer options with less sugar.",
		grade:    MarkerCaution + " - This product has a low nutrition score. Limit your consumption, especially if you follow a specific diet. Look for healthier alternatives.",
		fallback: MarkerRecommended + " - This product seems compatible with your health profile. Consume it as part of a balanced and varied diet.",
	},
}

// RuleDecision 規則引擎的判斷結果
type RuleDecision struct {
	Type RecommendationType
	Text string
}

// EvaluateRules 依序套用規則，第一個命中者勝出：
// 過敏原 → 糖尿病且評分 D/E → 評分 D/E → 建議。
func EvaluateRules(user UserProfile, product ProductRecord) RuleDecision {
	templates := templatesFor(user.PreferredLanguage)

	switch {
	case containsAllergen(user.Allergies, product.Ingredients):
		return RuleDecision{Type: Avoid, Text: templates.allergy}
	case hasCondition(user.HealthConditions, "diabetes") && product.HasPoorGrade():
		return RuleDecision{Type: Caution, Text: templates.diabetes}
	case product.HasPoorGrade():
		return RuleDecision{Type: Caution, Text: templates.grade}
	default:
		return RuleDecision{Type: Recommended, Text: templates.fallback}
	}
}

func templatesFor(language string) ruleSet {
	lang := strings.ToLower(strings.TrimSpace(language))
	if strings.HasPrefix(lang, "en") {
		return ruleTemplates["english"]
	}
	return ruleTemplates["french"]
}

// containsAllergen 過敏原與成分逐字比對
func containsAllergen(allergies, ingredients []string) bool {
	if len(allergies) == 0 || len(ingredients) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(ingredients))
	for _, ing := range ingredients {
		set[ing] = struct{}{}
	}
	for _, a := range allergies {
		if _, ok := set[a]; ok {
			return true
		}
	}
	return false
}

func hasCondition(conditions []string, name string) bool {
	for _, c := range conditions {
		if strings.EqualFold(strings.TrimSpace(c), name) {
			return true
		}
	}
	return false
}
