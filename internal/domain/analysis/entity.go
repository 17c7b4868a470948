package analysis

import (
	"encoding/json"
	"time"
)

// ID identifier type
type ID string

// Facet enum
type Facet string

const (
	FacetIngredients Facet = "ingredients"
	FacetComposition Facet = "composition"
	FacetReddit      Facet = "reddit"
)

// Facets lists every facet in a stable order.
var Facets = []Facet{FacetIngredients, FacetComposition, FacetReddit}

// ParseFacet validates a facet name coming from a request.
func ParseFacet(s string) (Facet, error) {
	for _, f := range Facets {
		if string(f) == s {
			return f, nil
		}
	}
	return "", Invalidf("unknown facet %q", s)
}

// ExtractedText value object, set once at creation
type ExtractedText struct {
	Ingredients string `json:"ingredients"`
	Nutrition   string `json:"nutrition"`
	Brand       string `json:"brand"`
}

// Record is the aggregate root for one identified product.
// Facet slots hold the exact JSON produced the first time the facet was computed.
type Record struct {
	ID              ID              `json:"id"`
	ProductName     string          `json:"productName"`
	ProductSummary  string          `json:"productSummary"`
	ExtractedText   ExtractedText   `json:"extractedText"`
	ImageURL        *string         `json:"imageUrl"`
	IsDegradedMode  bool            `json:"isDegradedMode"`
	Barcode         string          `json:"barcode,omitempty"`
	IdentifiedBy    string          `json:"identifiedBy,omitempty"`
	IngredientsData json.RawMessage `json:"ingredientsData"`
	CompositionData json.RawMessage `json:"compositionData"`
	RedditData      json.RawMessage `json:"redditData"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// FacetData returns the stored payload for a facet, nil when the slot is empty.
func (r *Record) FacetData(f Facet) json.RawMessage {
	switch f {
	case FacetIngredients:
		return r.IngredientsData
	case FacetComposition:
		return r.CompositionData
	case FacetReddit:
		return r.RedditData
	}
	return nil
}

// SetFacetData writes a facet slot in place. Only stores call this.
func (r *Record) SetFacetData(f Facet, data json.RawMessage) {
	switch f {
	case FacetIngredients:
		r.IngredientsData = data
	case FacetComposition:
		r.CompositionData = data
	case FacetReddit:
		r.RedditData = data
	}
}

// Clone returns a deep copy so callers never share slot buffers with a store.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	if r.ImageURL != nil {
		u := *r.ImageURL
		c.ImageURL = &u
	}
	c.IngredientsData = cloneRaw(r.IngredientsData)
	c.CompositionData = cloneRaw(r.CompositionData)
	c.RedditData = cloneRaw(r.RedditData)
	return &c
}

func cloneRaw(b json.RawMessage) json.RawMessage {
	if b == nil {
		return nil
	}
	out := make(json.RawMessage, len(b))
	copy(out, b)
	return out
}
