package prompt

import (
	"fmt"
	"strings"

	"github.com/jahnavitry-tech/ScanItKnowItprod/internal/domain/ai"
)

// ChatSystem seeds the assistant with everything known about the product.
func ChatSystem(c ai.ChatContext) string {
	var b strings.Builder
	b.WriteString("You answer shopper questions about one product. Be concise (at most 120 words), factual, and say so when you are unsure. ")
	b.WriteString("Do not give medical diagnoses.\n\n")
	b.WriteString(productFacts(c.Product))
	if c.IngredientsJSON != "" {
		fmt.Fprintf(&b, "Ingredient safety analysis: %s\n", c.IngredientsJSON)
	}
	return b.String()
}

// ChatHistory flattens earlier turns into (role, content) pairs, oldest first.
func ChatHistory(turns []ai.Turn) [][2]string {
	out := make([][2]string, 0, len(turns)*2)
	for _, t := range turns {
		out = append(out, [2]string{"user", t.Question}, [2]string{"assistant", t.Answer})
	}
	return out
}
