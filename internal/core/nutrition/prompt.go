package nutrition

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// 三種分類的開頭標記
const (
	MarkerRecommended = "✅ Recommended"
	MarkerCaution     = "⚠️ Consume with caution"
	MarkerAvoid       = "❌ Avoid"
)

// NotSpecified 缺值欄位的佔位字串
const NotSpecified = "not specified"

// TaskInstruction 隨 prompt 一併送出的固定使用者指示
const TaskInstruction = "Please analyze this product for this user and provide a recommendation."

// BuildPrompt 由使用者檔案、產品與選用的參考資料產生系統 prompt。
// 純函式：相同輸入永遠得到相同輸出。
func BuildPrompt(user UserProfile, product ProductRecord, reference string) string {
	language := strings.TrimSpace(user.PreferredLanguage)
	if language == "" {
		language = DefaultLanguage
	}

	var b strings.Builder
	b.WriteString("You are a nutrition expert AI assistant. Your task is to analyze a food product and provide a personalized recommendation based on a user's health profile.\n\n")

	b.WriteString("**Product Information**:\n")
	writeLine(&b, "Name", orPlaceholder(product.Name))
	writeLine(&b, "Barcode", orPlaceholder(product.Barcode))
	writeLine(&b, "Brand", orPlaceholder(product.Brand))
	writeLine(&b, "Category", orPlaceholder(product.Category))
	writeLine(&b, "Description", orPlaceholder(product.Description))
	writeLine(&b, "Type", orPlaceholder(product.Type))
	writeLine(&b, "Ingredients", listOrPlaceholder(product.Ingredients))
	writeLine(&b, "Additives", listOrPlaceholder(product.Additives))
	writeLine(&b, "Nutri-Score", orPlaceholder(product.NutriScore))
	writeLine(&b, "Nutri-Score Description", orPlaceholder(product.NutriScoreDescription))
	writeLine(&b, "Nutrition Values", formatNutrients(product.NutritionValues))

	b.WriteString("\n**User Health Profile**:\n")
	writeLine(&b, "Age", formatNumber(user.Age, ""))
	writeLine(&b, "Gender", orPlaceholder(user.Gender))
	writeLine(&b, "BMI", formatNumber(user.BMI, ""))
	writeLine(&b, "Weight", formatNumber(user.Weight, " kg"))
	writeLine(&b, "Height", formatNumber(user.Height, " cm"))
	writeLine(&b, "Allergies", listOrPlaceholder(user.Allergies))
	writeLine(&b, "Health Conditions", listOrPlaceholder(user.HealthConditions))
	writeLine(&b, "Activity Level", orPlaceholder(user.ActivityLevel))
	writeLine(&b, "Health Objectives", listOrPlaceholder(user.Objectives))
	writeLine(&b, "Has Chronic Disease", yesNo(user.HasChronicDisease))
	writeLine(&b, "Has Allergies", yesNo(user.HasAllergies))
	writeLine(&b, "Preferred Language", language)

	if ref := strings.TrimSpace(reference); ref != "" {
		b.WriteString("\n**Additive Reference Data**:\n")
		b.WriteString(ref)
		b.WriteString("\n")
	}

	b.WriteString("\nBased on this information, analyze the compatibility of this product with the user's health profile.\n")
	b.WriteString("Consider allergies, health conditions, nutritional needs, and health objectives.\n\n")
	b.WriteString("Provide a personalized recommendation in the following format:\n")
	fmt.Fprintf(&b, "1. Start with exactly one of these indicators: %q, %q, or %q\n", MarkerRecommended, MarkerCaution, MarkerAvoid)
	b.WriteString("2. Followed by a detailed explanation (2-3 sentences) of why this recommendation is given\n")
	b.WriteString("3. Include specific health implications based on the user's profile\n")
	b.WriteString("4. Provide alternative suggestions if the product is not recommended\n\n")
	fmt.Fprintf(&b, "Your response should be in %s, clear, concise, and focused on the health implications.", language)

	return b.String()
}

func writeLine(b *strings.Builder, label, value string) {
	b.WriteString("- ")
	b.WriteString(label)
	b.WriteString(": ")
	b.WriteString(value)
	b.WriteString("\n")
}

func orPlaceholder(s string) string {
	if strings.TrimSpace(s) == "" {
		return NotSpecified
	}
	return s
}

func listOrPlaceholder(items []string) string {
	if len(items) == 0 {
		return NotSpecified
	}
	return strings.Join(items, ", ")
}

func formatNumber(v *float64, unit string) string {
	if v == nil {
		return NotSpecified
	}
	return strconv.FormatFloat(*v, 'f', -1, 64) + unit
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

// formatNutrients 以鍵排序輸出，確保結果穩定
func formatNutrients(values map[string]interface{}) string {
	if len(values) == 0 {
		return NotSpecified
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v := values[k]
		if v == nil {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	if len(parts) == 0 {
		return NotSpecified
	}
	return strings.Join(parts, ", ")
}
