package heuristic

import (
	"regexp"
	"strings"

	"github.com/jahnavitry-tech/ScanItKnowItprod/internal/domain/analysis"
)

const num = `(\d+(?:[.,]\d+)?)`

var (
	caloriesRe = []*regexp.Regexp{
		regexp.MustCompile(`(?i)` + num + `\s*kcal`),
		regexp.MustCompile(`(?i)calories\s*:?\s*` + num),
	}
	fatRe      = regexp.MustCompile(`(?i)(?:total\s+)?fat\s*:?\s*` + num + `\s*g`)
	proteinRe  = regexp.MustCompile(`(?i)proteins?\s*:?\s*` + num + `\s*g`)
	netQtyRe   = regexp.MustCompile(`(?i)net\s*(?:wt|weight|contents?|qty|quantity)?\.?\s*:?\s*` + num + `\s*(kg|g|mg|ml|cl|l|fl\.?\s*oz|oz|lb)\b`)
	quantityRe = regexp.MustCompile(`(?i)^\s*` + num + `\s*(kg|g|mg|ml|cl|l|fl\.?\s*oz|oz|lb)\b`)

	detailRes = []struct {
		key string
		re  *regexp.Regexp
	}{
		{"Sugars", regexp.MustCompile(`(?i)sugars?\s*:?\s*` + num + `\s*g`)},
		{"Carbohydrates", regexp.MustCompile(`(?i)carbohydrates?\s*:?\s*` + num + `\s*g`)},
		{"Fibre", regexp.MustCompile(`(?i)fib(?:re|er)\s*:?\s*` + num + `\s*g`)},
		{"Sodium", regexp.MustCompile(`(?i)sodium\s*:?\s*` + num + `\s*(mg|g)`)},
		{"Salt", regexp.MustCompile(`(?i)\bsalt\s*:?\s*` + num + `\s*g`)},
	}
)

// Composition reads nutrition facts from label or snippet text. Values that
// cannot be found stay zero.
func Composition(text string) *analysis.CompositionData {
	out := &analysis.CompositionData{
		ProductCategory:      Category(text),
		CompositionalDetails: []analysis.Detail{},
	}
	for _, re := range caloriesRe {
		if v, ok := first(re, text); ok {
			out.Calories = analysis.Quantity(v)
			break
		}
	}
	if v, ok := first(fatRe, text); ok {
		out.TotalFat = analysis.Quantity(v)
	}
	if v, ok := first(proteinRe, text); ok {
		out.TotalProtein = analysis.Quantity(v)
	}
	if m := netQtyRe.FindStringSubmatch(text); m != nil {
		v, _ := analysis.ParseQuantity(m[1])
		out.NetQuantity = analysis.Quantity(v)
		out.UnitType = normalizeUnit(m[2])
	}
	for _, d := range detailRes {
		if m := d.re.FindStringSubmatch(text); m != nil {
			value := m[1]
			if len(m) > 2 {
				value += " " + strings.ToLower(m[2])
			} else {
				value += " g"
			}
			out.CompositionalDetails = append(out.CompositionalDetails, analysis.Detail{Key: d.key, Value: value})
		}
	}
	return out
}

// NetQuantity parses a quantity such as "500 g" or "12 fl oz".
func NetQuantity(s string) (float64, string, bool) {
	m := quantityRe.FindStringSubmatch(s)
	if m == nil {
		return 0, "", false
	}
	v, err := analysis.ParseQuantity(m[1])
	if err != nil {
		return 0, "", false
	}
	return v, normalizeUnit(m[2]), true
}

// Empty reports whether a composition carries no information at all.
func Empty(c *analysis.CompositionData) bool {
	return c == nil || (c.ProductCategory == CategoryUnknown && c.NetQuantity == 0 && c.Calories == 0 &&
		c.TotalFat == 0 && c.TotalProtein == 0 && len(c.CompositionalDetails) == 0)
}

func first(re *regexp.Regexp, text string) (float64, bool) {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	v, err := analysis.ParseQuantity(m[1])
	return v, err == nil
}

func normalizeUnit(u string) string {
	u = strings.ToLower(strings.Join(strings.Fields(u), " "))
	u = strings.ReplaceAll(u, ".", "")
	if u == "fl oz" || u == "floz" {
		return "fl oz"
	}
	return u
}

const (
	CategoryFood      = "Food"
	CategoryBeverage  = "Beverage"
	CategoryPersonal  = "Personal Care"
	CategoryHousehold = "Household"
	CategoryUnknown   = "Unknown"
)

var categories = []struct {
	name string
	re   *regexp.Regexp
}{
	{CategoryPersonal, regexp.MustCompile(`(?i)shampoo|conditioner|lotion|moisturi[sz]|serum|cleanser|sunscreen|\bspf\b|toothpaste|deodorant|\baqua\b|cosmetic|skin|\bcream\b`)},
	{CategoryHousehold, regexp.MustCompile(`(?i)detergent|dishwash|bleach|surface cleaner|laundry`)},
	{CategoryBeverage, regexp.MustCompile(`(?i)\bdrink\b|beverage|juice|\bsoda\b|sparkling|\btea\b|coffee|mineral water|soft drink`)},
	{CategoryFood, regexp.MustCompile(`(?i)kcal|calories|nutrition|protein|carbohydrate|snack|cereal|chocolate|biscuit|\bbar\b|sauce|food`)},
}

// Category guesses a broad product category from free text.
func Category(text string) string {
	for _, c := range categories {
		if c.re.MatchString(text) {
			return c.name
		}
	}
	return CategoryUnknown
}
