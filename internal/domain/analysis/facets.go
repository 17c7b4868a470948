package analysis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// SafetyStatus enum
type SafetyStatus string

const (
	SafetySafe     SafetyStatus = "Safe"
	SafetyModerate SafetyStatus = "Moderate"
	SafetyHarmful  SafetyStatus = "Harmful"
)

// Ingredient is one assessed ingredient.
type Ingredient struct {
	Name         string       `json:"name" validate:"required"`
	SafetyStatus SafetyStatus `json:"safety_status" validate:"oneof=Safe Moderate Harmful"`
	Reason       string       `json:"reason"`
}

// IngredientsData is the ingredients facet payload.
type IngredientsData struct {
	Ingredients []Ingredient `json:"ingredients" validate:"dive"`
}

// Normalize canonicalises the casing of safety statuses ("harmful" -> "Harmful").
func (d *IngredientsData) Normalize() {
	if d.Ingredients == nil {
		d.Ingredients = []Ingredient{}
	}
	for i := range d.Ingredients {
		in := &d.Ingredients[i]
		in.Name = strings.TrimSpace(in.Name)
		switch strings.ToLower(strings.TrimSpace(string(in.SafetyStatus))) {
		case "safe":
			in.SafetyStatus = SafetySafe
		case "moderate", "caution":
			in.SafetyStatus = SafetyModerate
		case "harmful", "unsafe":
			in.SafetyStatus = SafetyHarmful
		}
	}
}

// Detail is a free-form key/value line of a composition.
type Detail struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// CompositionData is the composition facet payload.
type CompositionData struct {
	ProductCategory      string   `json:"productCategory"`
	NetQuantity          Quantity `json:"netQuantity"`
	UnitType             string   `json:"unitType"`
	Calories             Quantity `json:"calories"`
	TotalFat             Quantity `json:"totalFat"`
	TotalProtein         Quantity `json:"totalProtein"`
	CompositionalDetails []Detail `json:"compositionalDetails"`
}

// Normalize makes empty slices encode as [] rather than null.
func (d *CompositionData) Normalize() {
	if d.CompositionalDetails == nil {
		d.CompositionalDetails = []Detail{}
	}
}

// Review is one community mention.
type Review struct {
	Source    string `json:"source,omitempty"`
	Text      string `json:"text"`
	Sentiment string `json:"sentiment,omitempty"`
}

const maxSentimentPoints = 4

// SentimentData is the community sentiment (reddit) facet payload.
type SentimentData struct {
	Pros          []string `json:"pros" validate:"max=4"`
	Cons          []string `json:"cons" validate:"max=4"`
	AverageRating float64  `json:"averageRating" validate:"gte=0,lte=5"`
	TotalMentions int      `json:"totalMentions" validate:"gte=0"`
	Reviews       []Review `json:"reviews"`
}

// Normalize trims pros/cons to four entries and fills nil slices.
func (d *SentimentData) Normalize() {
	d.Pros = capStrings(d.Pros, maxSentimentPoints)
	d.Cons = capStrings(d.Cons, maxSentimentPoints)
	if d.Reviews == nil {
		d.Reviews = []Review{}
	}
}

func capStrings(in []string, n int) []string {
	out := make([]string, 0, n)
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if len(out) == n {
			break
		}
		out = append(out, s)
	}
	return out
}

// Quantity is a number that also decodes from strings such as "12.5 g" or "".
type Quantity float64

func (q *Quantity) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*q = 0
		return nil
	}
	if b[0] != '"' {
		var f float64
		if err := json.Unmarshal(b, &f); err != nil {
			return err
		}
		*q = Quantity(f)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	f, err := ParseQuantity(s)
	if err != nil {
		return err
	}
	*q = Quantity(f)
	return nil
}

// ParseQuantity reads the leading number of s, ignoring a trailing unit.
// Empty and "N/A"-like strings read as zero.
func ParseQuantity(s string) (float64, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	end := 0
	if end < len(s) && s[end] == '-' {
		end++
	}
	for end < len(s) && (s[end] == '.' || (s[end] >= '0' && s[end] <= '9')) {
		end++
	}
	if end == 0 || s[:end] == "-" {
		if s == "" || strings.EqualFold(s, "n/a") || strings.EqualFold(s, "unknown") {
			return 0, nil
		}
		return 0, fmt.Errorf("not a quantity: %q", s)
	}
	return strconv.ParseFloat(s[:end], 64)
}
