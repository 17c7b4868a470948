package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jahnavitry-tech/ScanItKnowItprod/internal/domain/ai"
)

func TestParseCandidates_Shapes(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		names []string
	}{
		{"wrapped", `{"products":[{"productName":"A"},{"productName":"B"}]}`, []string{"A", "B"}},
		{"bare array", `[{"productName":"Solo"}]`, []string{"Solo"}},
		{"single object", `{"productName":"  Oat Milk ","summary":"Plant drink."}`, []string{"Oat Milk"}},
		{"fenced", "```json\n{\"products\":[{\"productName\":\"C\"}]}\n```", []string{"C"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCandidates(tt.raw)
			require.NoError(t, err)
			var names []string
			for _, c := range got {
				names = append(names, c.ProductName)
			}
			assert.Equal(t, tt.names, names)
		})
	}
}

func TestParseCandidates_EmptyListIsNoResult(t *testing.T) {
	_, err := ParseCandidates(`{"products": []}`)
	assert.ErrorIs(t, err, ai.ErrNoResult)
}

func TestParseCandidates_Rejects(t *testing.T) {
	for _, raw := range []string{
		`I cannot identify this product.`,
		`{"error":"blurry"}`,
		`{"products":[{"productName":""}]}`,
	} {
		_, err := ParseCandidates(raw)
		assert.ErrorIs(t, err, ai.ErrUnparseable, raw)
	}
}

func TestProductUser_IncludesKnownFacts(t *testing.T) {
	got := ProductUser(ai.ProductContext{
		Name:    "Granola Bar",
		Barcode: "4006381333931",
	})

	assert.Contains(t, got, "Product: Granola Bar")
	assert.Contains(t, got, "Brand: unknown")
	assert.Contains(t, got, "Barcode: 4006381333931")
	assert.NotContains(t, got, "Ingredients label")
}

func TestChatHistory_AlternatesRoles(t *testing.T) {
	got := ChatHistory([]ai.Turn{{Question: "q1", Answer: "a1"}, {Question: "q2", Answer: "a2"}})

	assert.Equal(t, [][2]string{{"user", "q1"}, {"assistant", "a1"}, {"user", "q2"}, {"assistant", "a2"}}, got)
}
