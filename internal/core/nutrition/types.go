package nutrition

// RecommendationType 建議分類
type RecommendationType string

const (
	Recommended RecommendationType = "recommended"
	Caution     RecommendationType = "caution"
	Avoid       RecommendationType = "avoid"
)

// DefaultLanguage 未指定語言時使用
const DefaultLanguage = "french"

// UserProfile 使用者健康檔案
type UserProfile struct {
	UserID            string   `json:"user_id" validate:"required"`
	Age               *float64 `json:"age,omitempty" validate:"omitempty,gte=0"`
	Weight            *float64 `json:"weight,omitempty" validate:"omitempty,gte=0"`
	Height            *float64 `json:"height,omitempty" validate:"omitempty,gte=0"`
	BMI               *float64 `json:"bmi,omitempty" validate:"omitempty,gte=0"`
	Gender            string   `json:"gender,omitempty"`
	Allergies         []string `json:"allergies"`
	HealthConditions  []string `json:"health_conditions"`
	ActivityLevel     string   `json:"activity_level,omitempty"`
	Objectives        []string `json:"objectives"`
	HasAllergies      bool     `json:"has_allergies"`
	HasChronicDisease bool     `json:"has_chronic_disease"`
	PreferredLanguage string   `json:"preferred_language"`
}

// ProductRecord 產品資料
type ProductRecord struct {
	ID                    string                 `json:"id,omitempty"`
	Name                  string                 `json:"name" validate:"required"`
	Barcode               string                 `json:"barcode,omitempty" validate:"omitempty,numeric"`
	Brand                 string                 `json:"brand,omitempty"`
	Category              string                 `json:"category,omitempty"`
	Description           string                 `json:"description,omitempty"`
	Type                  string                 `json:"type,omitempty"`
	Ingredients           []string               `json:"ingredients"`
	Additives             []string               `json:"additives"`
	NutriScore            string                 `json:"nutri_score,omitempty" validate:"omitempty,oneof=A B C D E"`
	NutriScoreDescription string                 `json:"nutri_score_description,omitempty"`
	NutritionValues       map[string]interface{} `json:"nutrition_values"`
}

// Verdict 產生的建議文字與分類
type Verdict struct {
	Text string             `json:"recommendation"`
	Type RecommendationType `json:"recommendation_type"`
}

// Request 一次建議請求的正規化結果
type Request struct {
	User        UserProfile
	Product     ProductRecord
	CallbackURL string
}

// HasPoorGrade 營養評分是否為 D 或 E
func (p ProductRecord) HasPoorGrade() bool {
	return p.NutriScore == "D" || p.NutriScore == "E"
}
