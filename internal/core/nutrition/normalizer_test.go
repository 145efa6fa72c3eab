package nutrition

import (
	"encoding/json"
	"net/http"
	"testing"

	"nutrition-advisor/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeBarcode(t *testing.T) {
	tests := []struct {
		name  string
		input interface{}
		want  string
	}{
		{name: "separators", input: "613-3414/007137", want: "6133414007137"},
		{name: "already digits", input: "6133414007137", want: "6133414007137"},
		{name: "letters only", input: "abc", want: ""},
		{name: "empty", input: "", want: ""},
		{name: "nil", input: nil, want: ""},
		{name: "json integer", input: json.Number("6133414007137"), want: "6133414007137"},
		{name: "json exponent", input: json.Number("1e30"), want: "1000000000000000000000000000000"},
		{name: "json beyond int64", input: json.Number("12345678901234567890123"), want: "12345678901234567890123"},
		{name: "float", input: float64(1234567890), want: "1234567890"},
		{name: "object", input: map[string]interface{}{"code": 1}, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeBarcode(tt.input)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, NormalizeBarcode(got), "normalization must be idempotent")
		})
	}
}

func TestNormalizeGrade(t *testing.T) {
	assert.Equal(t, "E", NormalizeGrade("e"))
	assert.Equal(t, "B", NormalizeGrade(" B "))
	assert.Equal(t, "", NormalizeGrade("F"))
	assert.Equal(t, "", NormalizeGrade("AB"))
	assert.Equal(t, "", NormalizeGrade(nil))
}

func TestNormalizeUserCoercion(t *testing.T) {
	raw := map[string]interface{}{
		"user_id":           json.Number("42"),
		"age":               json.Number("35"),
		"weight":            "75.5",
		"height":            json.Number("-3"),
		"allergies":         []interface{}{"peanuts", nil, "peanuts", "lactose", map[string]interface{}{}},
		"health_conditions": "diabetes",
		"objectives":        nil,
		"has_allergies":     true,
		"gender":            "null",
	}

	user, err := NormalizeUser(raw)
	require.NoError(t, err)

	assert.Equal(t, "42", user.UserID)
	require.NotNil(t, user.Age)
	assert.Equal(t, 35.0, *user.Age)
	require.NotNil(t, user.Weight)
	assert.Equal(t, 75.5, *user.Weight)
	assert.Nil(t, user.Height)
	assert.Nil(t, user.BMI)
	assert.Equal(t, []string{"peanuts", "lactose"}, user.Allergies)
	assert.NotNil(t, user.HealthConditions)
	assert.Empty(t, user.HealthConditions)
	assert.NotNil(t, user.Objectives)
	assert.True(t, user.HasAllergies)
	assert.False(t, user.HasChronicDisease)
	assert.Equal(t, "", user.Gender)
	assert.Equal(t, DefaultLanguage, user.PreferredLanguage)
}

func TestNormalizeUserAgeOutOfRange(t *testing.T) {
	user, err := NormalizeUser(map[string]interface{}{"user_id": "u1", "age": json.Number("200")})
	require.NoError(t, err)
	require.NotNil(t, user.Age)
	assert.Equal(t, 200.0, *user.Age)

	user, err = NormalizeUser(map[string]interface{}{"user_id": "u1", "age": "abc"})
	require.NoError(t, err)
	assert.Nil(t, user.Age)
}

func TestNormalizeUserRequiresID(t *testing.T) {
	_, err := NormalizeUser(map[string]interface{}{"user_id": "   "})
	require.Error(t, err)

	var fe FieldErrors
	require.ErrorAs(t, err, &fe)
	require.Len(t, fe, 1)
	assert.Equal(t, "user_data.user_id", fe[0].Field)
}

func TestNormalizeProduct(t *testing.T) {
	raw := map[string]interface{}{
		"id":               "prod_123",
		"name":             "Gâteau chocolaté",
		"barcode":          "613-3414/007137",
		"brand":            nil,
		"description":      "Biscuit\u0000 topped with milk chocolate",
		"ingredients":      []interface{}{"sucre", nil, "farine de blé"},
		"additives":        "E150d",
		"nutri_score":      "e",
		"nutrition_values": []interface{}{1, 2},
	}

	product, err := NormalizeProduct(raw)
	require.NoError(t, err)

	assert.Equal(t, "prod_123", product.ID)
	assert.Equal(t, "Gateau chocolate", product.Name)
	assert.Equal(t, "6133414007137", product.Barcode)
	assert.Equal(t, "", product.Brand)
	assert.Equal(t, "Biscuit topped with milk chocolate", product.Description)
	assert.Equal(t, []string{"sucre", "farine de ble"}, product.Ingredients)
	assert.NotNil(t, product.Additives)
	assert.Empty(t, product.Additives)
	assert.Equal(t, "E", product.NutriScore)
	assert.NotNil(t, product.NutritionValues)
	assert.Empty(t, product.NutritionValues)
}

func TestNormalizeProductRequiresName(t *testing.T) {
	_, err := NormalizeProduct(map[string]interface{}{"barcode": "123"})

	var fe FieldErrors
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "product_data.name", fe[0].Field)
	assert.Equal(t, "field required", fe[0].Message)
}

func TestDecodeRequest(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		body := []byte(`{
			"user_data": {"user_id": "u1", "allergies": ["peanuts", null]},
			"product_data": {"name": "Snack", "barcode": 6133414007137, "ingredients": ["peanuts"]},
			"callback_url": " http://device.local/cb "
		}`)

		req, err := DecodeRequest(body)
		require.NoError(t, err)
		assert.Equal(t, "u1", req.User.UserID)
		assert.Equal(t, []string{"peanuts"}, req.User.Allergies)
		assert.Equal(t, "6133414007137", req.Product.Barcode)
		assert.Equal(t, "http://device.local/cb", req.CallbackURL)
	})

	t.Run("malformed json", func(t *testing.T) {
		_, err := DecodeRequest([]byte(`{"user_data":`))
		require.Error(t, err)
		ce := common.AsCustomError(err)
		assert.Equal(t, http.StatusBadRequest, ce.Status)
	})

	t.Run("missing required fields", func(t *testing.T) {
		_, err := DecodeRequest([]byte(`{"user_data": {}, "product_data": {}}`))
		require.Error(t, err)
		ce := common.AsCustomError(err)
		assert.Equal(t, http.StatusBadRequest, ce.Status)
		assert.Contains(t, ce.Message, "user_data.user_id")
		assert.Contains(t, ce.Message, "product_data.name")
	})

	t.Run("sub-record not an object", func(t *testing.T) {
		_, err := DecodeRequest([]byte(`{"user_data": [], "product_data": {"name": "x"}}`))
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, common.AsCustomError(err).Status)
	})
}
