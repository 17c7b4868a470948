package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jahnavitry-tech/ScanItKnowItprod/internal/domain/ai"
	"github.com/jahnavitry-tech/ScanItKnowItprod/internal/infra/ai/decode"
)

// IdentifySystem provides strict directions and schema for product identification.
func IdentifySystem() string {
	return `You identify consumer products from photos. You must produce one valid JSON object only (no markdown, no commentary) that follows the schema below. Do not include code fences.

Requirements:
- Return one entry in "products" per distinct product visible in the photo. A photo of a single product has exactly one entry.
- Copy label text verbatim into extractedText when it is legible; use an empty string when it is not.
- summary is two or three sentences describing what the product is and who it is for.
- If no product can be identified, return {"products": []}.

Schema (example with empty values):
{
  "products": [
    {
      "productName": "<string>",
      "extractedText": {"ingredients": "<string>", "nutrition": "<string>", "brand": "<string>"},
      "summary": "<string>"
    }
  ]
}`
}

// IdentifyUser is the text that accompanies the image.
func IdentifyUser() string {
	return "Identify every product in this image and respond with the JSON per schema."
}

type identifyResponse struct {
	Products []ai.Candidate `json:"products"`
}

// ParseCandidates decodes an identification reply. It accepts the documented
// {"products": [...]} shape, a bare array, or a single product object.
func ParseCandidates(raw string) ([]ai.Candidate, error) {
	body, err := decode.Extract(raw)
	if err != nil {
		return nil, err
	}

	var list []ai.Candidate
	switch strings.TrimSpace(body)[0] {
	case '[':
		if err := json.Unmarshal([]byte(body), &list); err != nil {
			return nil, fmt.Errorf("%w: %v", ai.ErrUnparseable, err)
		}
	default:
		var wrapped identifyResponse
		if err := json.Unmarshal([]byte(body), &wrapped); err != nil {
			return nil, fmt.Errorf("%w: %v", ai.ErrUnparseable, err)
		}
		list = wrapped.Products
		if list == nil {
			var single ai.Candidate
			if err := json.Unmarshal([]byte(body), &single); err != nil || single.ProductName == "" {
				return nil, fmt.Errorf("%w: no products field in response", ai.ErrUnparseable)
			}
			list = []ai.Candidate{single}
		}
	}

	out := make([]ai.Candidate, 0, len(list))
	for i := range list {
		c := list[i]
		c.ProductName = strings.TrimSpace(c.ProductName)
		if err := decode.Check(&c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no products identified", ai.ErrNoResult)
	}
	return out, nil
}
