package prompt

import (
	"fmt"
	"strings"

	"github.com/jahnavitry-tech/ScanItKnowItprod/internal/domain/ai"
)

const jsonOnly = `You must produce one valid JSON object only (no markdown, no commentary) that follows the schema below. Do not include code fences.`

// IngredientsSystem asks for a per-ingredient safety assessment.
func IngredientsSystem() string {
	return `You are a food and cosmetics safety analyst. ` + jsonOnly + `

Requirements:
- One entry per ingredient, in label order. Split compound ingredients only when the label does.
- safety_status is exactly one of: Safe, Moderate, Harmful.
- reason is one short sentence a shopper can understand.

Schema:
{"ingredients": [{"name": "<string>", "safety_status": "<Safe|Moderate|Harmful>", "reason": "<string>"}]}`
}

// CompositionSystem asks for nutrition / composition facts.
func CompositionSystem() string {
	return `You are a product composition analyst. ` + jsonOnly + `

Requirements:
- Numbers are plain numbers without units; use 0 when unknown.
- unitType is the unit of netQuantity (g, ml, pcs, ...).
- compositionalDetails lists any other notable facts (e.g. sugar, sodium, active ingredient concentration).

Schema:
{"productCategory": "<string>", "netQuantity": 0, "unitType": "<string>", "calories": 0, "totalFat": 0, "totalProtein": 0,
 "compositionalDetails": [{"key": "<string>", "value": "<string>"}]}`
}

// SentimentSystem asks for a community sentiment summary.
func SentimentSystem() string {
	return `You summarise what online communities (Reddit, forums, reviews) say about a product. ` + jsonOnly + `

Requirements:
- At most 4 pros and at most 4 cons, each under 15 words.
- averageRating is between 0 and 5.
- reviews holds up to 5 short representative quotes with their source and sentiment (positive, negative, mixed).

Schema:
{"pros": ["<string>"], "cons": ["<string>"], "averageRating": 0, "totalMentions": 0,
 "reviews": [{"source": "<string>", "text": "<string>", "sentiment": "<string>"}]}`
}

// ProductUser renders what is known about a product for any facet prompt.
func ProductUser(p ai.ProductContext) string {
	return productFacts(p) + "Respond with the JSON per schema."
}

func productFacts(p ai.ProductContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Product: %s\n", orUnknown(p.Name))
	fmt.Fprintf(&b, "Brand: %s\n", orUnknown(firstNonEmpty(p.Brand, p.ExtractedText.Brand)))
	if p.Summary != "" {
		fmt.Fprintf(&b, "Summary: %s\n", p.Summary)
	}
	if p.ExtractedText.Ingredients != "" {
		fmt.Fprintf(&b, "Ingredients label: %s\n", p.ExtractedText.Ingredients)
	}
	if p.ExtractedText.Nutrition != "" {
		fmt.Fprintf(&b, "Nutrition label: %s\n", p.ExtractedText.Nutrition)
	}
	if p.Barcode != "" {
		fmt.Fprintf(&b, "Barcode: %s\n", p.Barcode)
	}
	return b.String()
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "unknown"
	}
	return s
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
