package decode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jahnavitry-tech/ScanItKnowItprod/internal/domain/ai"
	"github.com/jahnavitry-tech/ScanItKnowItprod/internal/domain/analysis"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain object", `{"a":1}`, `{"a":1}`},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"prose around", `Sure! Here it is: {"a":"}{"} hope that helps`, `{"a":"}{"}`},
		{"array", `result: [1,2,3].`, `[1,2,3]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Extract(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtract_Unparseable(t *testing.T) {
	for _, raw := range []string{"", "I cannot help with that", `{"a": [1, 2`} {
		_, err := Extract(raw)
		assert.ErrorIs(t, err, ai.ErrUnparseable, "raw=%q", raw)
	}
}

func TestJSON_NormalizesAndValidates(t *testing.T) {
	var s analysis.SentimentData
	err := JSON(`{"pros":["a","b","c","d","e"],"cons":[],"averageRating":4.2,"totalMentions":12}`, &s)
	require.NoError(t, err)
	assert.Len(t, s.Pros, 4)
	assert.NotNil(t, s.Reviews)

	var bad analysis.SentimentData
	err = JSON(`{"pros":[],"cons":[],"averageRating":7,"totalMentions":1}`, &bad)
	assert.ErrorIs(t, err, ai.ErrUnparseable)
}

func TestJSON_IngredientStatusCasing(t *testing.T) {
	var d analysis.IngredientsData
	err := JSON(`{"ingredients":[{"name":"Sugar","safety_status":"moderate","reason":"added sugar"}]}`, &d)
	require.NoError(t, err)
	assert.Equal(t, analysis.SafetyModerate, d.Ingredients[0].SafetyStatus)

	err = JSON(`{"ingredients":[{"name":"Sugar","safety_status":"maybe"}]}`, &d)
	assert.ErrorIs(t, err, ai.ErrUnparseable)
}

func TestJSON_CompositionQuantities(t *testing.T) {
	var c analysis.CompositionData
	err := JSON(`{"productCategory":"Snack","netQuantity":"40 g","unitType":"g","calories":190,"totalFat":"7.5g","totalProtein":null}`, &c)
	require.NoError(t, err)
	assert.InDelta(t, 40, float64(c.NetQuantity), 0.001)
	assert.InDelta(t, 7.5, float64(c.TotalFat), 0.001)
	assert.NotNil(t, c.CompositionalDetails)
}

func TestJSON_WrongShape(t *testing.T) {
	var c analysis.CompositionData
	err := JSON(`{"calories":"lots"}`, &c)
	assert.ErrorIs(t, err, ai.ErrUnparseable)
}
