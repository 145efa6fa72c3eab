package nutrition

import (
	"encoding/json"
	"math"
	"math/big"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"nutrition-advisor/internal/pkg/common"

	"github.com/go-playground/validator/v10"
)

var (
	nonDigitPattern = regexp.MustCompile(`[^0-9]`)
	validate        = newValidator()
)

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// FieldErrors 紀錄欄位驗證失敗
type FieldErrors []common.ValidationError

func (e FieldErrors) Error() string {
	parts := make([]string, 0, len(e))
	for _, fe := range e {
		parts = append(parts, fe.Error())
	}
	return strings.Join(parts, "; ")
}

// Envelope 原始請求外層
type Envelope struct {
	UserData    map[string]interface{}
	ProductData map[string]interface{}
	CallbackURL string
}

// ParseEnvelope 解析請求 JSON。無法解析或子物件不是 JSON 物件時返回 ErrInvalidRequest。
func ParseEnvelope(body []byte) (*Envelope, error) {
	var raw map[string]interface{}
	if err := common.ParseJSONBytes(body, &raw); err != nil {
		return nil, common.Wrap(common.ErrInvalidRequest, "Malformed JSON body", err)
	}
	if raw == nil {
		return nil, common.Wrap(common.ErrInvalidRequest, "Request body must be a JSON object", nil)
	}

	env := &Envelope{}
	var missing FieldErrors
	if user, ok := raw["user_data"].(map[string]interface{}); ok {
		env.UserData = user
	} else {
		missing = append(missing, common.ValidationError{Field: "user_data", Message: "must be an object"})
	}
	if product, ok := raw["product_data"].(map[string]interface{}); ok {
		env.ProductData = product
	} else {
		missing = append(missing, common.ValidationError{Field: "product_data", Message: "must be an object"})
	}
	if len(missing) > 0 {
		return env, missing
	}

	if s, ok := asString(raw["callback_url"]); ok {
		env.CallbackURL = strings.TrimSpace(s)
	}
	return env, nil
}

// DecodeRequest 解析並正規化完整的建議請求
func DecodeRequest(body []byte) (*Request, error) {
	env, err := ParseEnvelope(body)
	if err != nil {
		if fe, ok := err.(FieldErrors); ok {
			return nil, common.Wrap(common.ErrInvalidRequest, fe.Error(), fe)
		}
		return nil, err
	}

	user, userErr := NormalizeUser(env.UserData)
	product, productErr := NormalizeProduct(env.ProductData)

	var all FieldErrors
	if fe, ok := userErr.(FieldErrors); ok {
		all = append(all, fe...)
	}
	if fe, ok := productErr.(FieldErrors); ok {
		all = append(all, fe...)
	}
	if len(all) > 0 {
		return nil, common.Wrap(common.ErrInvalidRequest, all.Error(), all)
	}

	return &Request{
		User:        user,
		Product:     product,
		CallbackURL: env.CallbackURL,
	}, nil
}

// NormalizeUser 將原始 user_data 轉為 UserProfile
func NormalizeUser(raw map[string]interface{}) (UserProfile, error) {
	userID, _ := asString(raw["user_id"])

	profile := UserProfile{
		UserID:            strings.TrimSpace(userID),
		Age:               asNonNegative(raw["age"]),
		Weight:            asNonNegative(raw["weight"]),
		Height:            asNonNegative(raw["height"]),
		BMI:               asNonNegative(raw["bmi"]),
		Gender:            textField(raw["gender"]),
		Allergies:         uniqueStrings(asStringList(raw["allergies"])),
		HealthConditions:  uniqueStrings(asStringList(raw["health_conditions"])),
		ActivityLevel:     textField(raw["activity_level"]),
		Objectives:        asStringList(raw["objectives"]),
		HasAllergies:      asBool(raw["has_allergies"]),
		HasChronicDisease: asBool(raw["has_chronic_disease"]),
		PreferredLanguage: strings.ToLower(textField(raw["preferred_language"])),
	}
	if profile.PreferredLanguage == "" {
		profile.PreferredLanguage = DefaultLanguage
	}

	return profile, validateStruct("user_data", profile)
}

// NormalizeProduct 將原始 product_data 轉為 ProductRecord
func NormalizeProduct(raw map[string]interface{}) (ProductRecord, error) {
	id, _ := asString(raw["id"])

	product := ProductRecord{
		ID:                    strings.TrimSpace(id),
		Name:                  textField(raw["name"]),
		Barcode:               NormalizeBarcode(raw["barcode"]),
		Brand:                 textField(raw["brand"]),
		Category:              textField(raw["category"]),
		Description:           textField(raw["description"]),
		Type:                  textField(raw["type"]),
		Ingredients:           asStringList(raw["ingredients"]),
		Additives:             asStringList(raw["additives"]),
		NutriScore:            NormalizeGrade(raw["nutri_score"]),
		NutriScoreDescription: textField(raw["nutri_score_description"]),
		NutritionValues:       asObject(raw["nutrition_values"]),
	}

	return product, validateStruct("product_data", product)
}

// NormalizeBarcode 移除所有非數字字元；結果為空時返回空字串（視為未提供）
func NormalizeBarcode(v interface{}) string {
	var s string
	switch t := v.(type) {
	case string:
		s = t
	case json.Number:
		s = numberDigits(t)
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
	return nonDigitPattern.ReplaceAllString(s, "")
}

// numberDigits 將 JSON 數字展開為十進位字串，指數形式也不會丟失位數
func numberDigits(n json.Number) string {
	if v, err := n.Int64(); err == nil {
		return strconv.FormatInt(v, 10)
	}
	raw := n.String()
	if strings.Trim(raw, "0123456789") == "" {
		return raw
	}
	f, ok := new(big.Float).SetPrec(512).SetString(raw)
	if !ok || f.IsInf() {
		return raw
	}
	if f.IsInt() {
		return f.Text('f', 0)
	}
	return f.Text('f', -1)
}

// NormalizeGrade 營養評分只接受單一字母 A-E
func NormalizeGrade(v interface{}) string {
	s, ok := asString(v)
	if !ok {
		return ""
	}
	s = strings.ToUpper(strings.TrimSpace(s))
	switch s {
	case "A", "B", "C", "D", "E":
		return s
	default:
		return ""
	}
}

func validateStruct(prefix string, v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return FieldErrors{{Field: prefix, Message: err.Error()}}
	}

	out := make(FieldErrors, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, common.ValidationError{
			Field:   prefix + "." + fe.Field(),
			Message: describeTag(fe),
		})
	}
	return out
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "field required"
	case "numeric":
		return "must contain only digits"
	case "oneof":
		return "must be one of " + fe.Param()
	default:
		return "failed " + fe.Tag() + " validation"
	}
}

func textField(v interface{}) string {
	s, ok := asString(v)
	if !ok {
		return ""
	}
	return common.NormalizeText(s)
}

func asString(v interface{}) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}

// asStringList 非陣列視為空陣列，null 與巢狀元素略過
func asStringList(v interface{}) []string {
	items, ok := v.([]interface{})
	if !ok {
		return []string{}
	}
	raw := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := asString(item); ok {
			raw = append(raw, s)
		}
	}
	return common.NormalizeStrings(raw)
}

func uniqueStrings(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}

func asNonNegative(v interface{}) *float64 {
	var f float64
	switch t := v.(type) {
	case json.Number:
		n, err := t.Float64()
		if err != nil {
			return nil
		}
		f = n
	case float64:
		f = t
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return nil
		}
		f = n
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return nil
	}
	return &f
}

func asBool(v interface{}) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		return err == nil && b
	case json.Number:
		f, err := t.Float64()
		return err == nil && f != 0
	default:
		return false
	}
}

func asObject(v interface{}) map[string]interface{} {
	m, ok := v.(map[string]interface{})
	if !ok || m == nil {
		return map[string]interface{}{}
	}
	return m
}
