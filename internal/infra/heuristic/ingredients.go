// Package heuristic derives facet payloads from plain label or snippet text
// without any model call. It backs the degraded-mode strategies.
package heuristic

import (
	"regexp"
	"strings"

	"github.com/jahnavitry-tech/ScanItKnowItprod/internal/domain/analysis"
)

const maxIngredients = 40

type detector struct {
	re     *regexp.Regexp
	status analysis.SafetyStatus
	reason string
}

// detectors are checked in order; the first match classifies an ingredient.
var detectors = []detector{
	// Harmful
	{regexp.MustCompile(`(?i)partially hydrogenated|trans fat`), analysis.SafetyHarmful, "Source of trans fats, linked to heart disease."},
	{regexp.MustCompile(`(?i)sodium nitrite|sodium nitrate|\bE25[01]\b`), analysis.SafetyHarmful, "Curing agent that can form nitrosamines when heated."},
	{regexp.MustCompile(`(?i)potassium bromate`), analysis.SafetyHarmful, "Possible carcinogen, banned in many countries."},
	{regexp.MustCompile(`(?i)formaldehyde|dmdm hydantoin|quaternium-15`), analysis.SafetyHarmful, "Formaldehyde releaser and known skin sensitiser."},
	{regexp.MustCompile(`(?i)triclosan`), analysis.SafetyHarmful, "Antibacterial agent with endocrine concerns."},
	{regexp.MustCompile(`(?i)\bbha\b|butylated hydroxyanisole`), analysis.SafetyHarmful, "Preservative classed as a possible carcinogen."},
	{regexp.MustCompile(`(?i)titanium dioxide|\bE171\b`), analysis.SafetyHarmful, "Whitening agent no longer considered safe as a food additive in the EU."},
	// Moderate
	{regexp.MustCompile(`(?i)\bsugars?\b|glucose|fructose|corn syrup|dextrose|sucrose|maltodextrin`), analysis.SafetyModerate, "Added sugar; limit intake."},
	{regexp.MustCompile(`(?i)palm (kernel )?oil`), analysis.SafetyModerate, "High in saturated fat."},
	{regexp.MustCompile(`(?i)artificial (flavou?rs?|colou?rs?)|\bE1\d\d\b|red 40|yellow [56]|blue 1\b`), analysis.SafetyModerate, "Synthetic additive some people are sensitive to."},
	{regexp.MustCompile(`(?i)aspartame|sucralose|acesulfame|saccharin`), analysis.SafetyModerate, "Artificial sweetener; fine in moderation."},
	{regexp.MustCompile(`(?i)monosodium glutamate|\bmsg\b`), analysis.SafetyModerate, "Flavour enhancer; some people report sensitivity."},
	{regexp.MustCompile(`(?i)paraben`), analysis.SafetyModerate, "Preservative with weak endocrine activity."},
	{regexp.MustCompile(`(?i)fragrance|parfum`), analysis.SafetyModerate, "Undisclosed fragrance mix and a common allergen."},
	{regexp.MustCompile(`(?i)sodium laur(e)?th? sulfate|\bsls\b`), analysis.SafetyModerate, "Surfactant that can irritate sensitive skin."},
	{regexp.MustCompile(`(?i)\bsalt\b|sodium chloride`), analysis.SafetyModerate, "Contributes to sodium intake."},
}

const safeReason = "No common safety concerns at typical levels."

// Classify rates one ingredient name.
func Classify(name string) (analysis.SafetyStatus, string) {
	for _, d := range detectors {
		if d.re.MatchString(name) {
			return d.status, d.reason
		}
	}
	return analysis.SafetySafe, safeReason
}

var (
	ingredientsPrefix = regexp.MustCompile(`(?i)^.*?\bingredients?\s*[:\-]\s*`)
	ingredientsStop   = regexp.MustCompile(`(?i)\b(contains|may contain|allergy advice|nutrition|directions|warning)\b`)
)

// SplitIngredients turns a label ingredient list into names. Commas inside
// parentheses do not split.
func SplitIngredients(text string) []string {
	text = strings.TrimSpace(ingredientsPrefix.ReplaceAllString(strings.TrimSpace(text), ""))
	if loc := ingredientsStop.FindStringIndex(text); loc != nil && loc[0] > 0 {
		text = text[:loc[0]]
	}

	var out []string
	var cur strings.Builder
	depth := 0
	flush := func() {
		s := strings.Trim(strings.TrimSpace(cur.String()), ".*:")
		s = strings.TrimSpace(s)
		if s != "" && len(out) < maxIngredients {
			out = append(out, s)
		}
		cur.Reset()
	}
	for _, r := range text {
		switch {
		case r == '(' || r == '[':
			depth++
		case (r == ')' || r == ']') && depth > 0:
			depth--
		case (r == ',' || r == ';' || r == '\n') && depth == 0:
			flush()
			continue
		}
		cur.WriteRune(r)
	}
	flush()
	return out
}

// Ingredients classifies every ingredient on a label. It returns nil when the
// text holds no ingredient names.
func Ingredients(text string) *analysis.IngredientsData {
	names := SplitIngredients(text)
	if len(names) == 0 {
		return nil
	}
	out := &analysis.IngredientsData{Ingredients: make([]analysis.Ingredient, 0, len(names))}
	for _, n := range names {
		status, reason := Classify(n)
		out.Ingredients = append(out.Ingredients, analysis.Ingredient{Name: n, SafetyStatus: status, Reason: reason})
	}
	return out
}
