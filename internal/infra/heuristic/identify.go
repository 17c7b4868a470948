package heuristic

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/jahnavitry-tech/ScanItKnowItprod/internal/domain/ai"
	"github.com/jahnavitry-tech/ScanItKnowItprod/internal/domain/analysis"
)

var (
	sectionRe    = regexp.MustCompile(`(?i)^\s*(ingredients?|nutrition|energy|calories|contains|directions|warning|storage|best before|net\s*(wt|weight))\b`)
	ingStartRe   = regexp.MustCompile(`(?i)^\s*ingredients?\b`)
	nutriStartRe = regexp.MustCompile(`(?i)^\s*(nutrition|energy|calories)\b`)
)

// ProductFromText builds a candidate from OCR label text. The brand is taken
// from a short upper-case line, the name from the first title-like line.
func ProductFromText(text string) (ai.Candidate, bool) {
	lines := labelLines(text)
	if len(lines) == 0 {
		return ai.Candidate{}, false
	}

	var brand, name string
	for i, l := range lines {
		if i >= 6 || sectionRe.MatchString(l) {
			break
		}
		if !titleLike(l) {
			continue
		}
		if brand == "" && isUpper(l) && len(l) <= 30 {
			brand = l
			continue
		}
		if name == "" {
			name = l
		}
	}
	if name == "" && brand == "" {
		return ai.Candidate{}, false
	}
	switch {
	case name == "":
		name = brand
	case brand != "" && !strings.Contains(strings.ToLower(name), strings.ToLower(brand)):
		name = titleCase(brand) + " " + name
	}

	extracted := analysis.ExtractedText{
		Ingredients: section(lines, ingStartRe),
		Nutrition:   section(lines, nutriStartRe),
		Brand:       titleCase(brand),
	}
	summary := "Identified from the label text; details may be incomplete."
	if c := Category(text); c != CategoryUnknown {
		summary = c + " product identified from the label text; details may be incomplete."
	}
	return ai.Candidate{ProductName: name, ExtractedText: extracted, Summary: summary}, true
}

func labelLines(text string) []string {
	var out []string
	for _, l := range strings.Split(text, "\n") {
		l = strings.Join(strings.Fields(l), " ")
		if l != "" {
			out = append(out, l)
		}
	}
	return out
}

// section joins the lines from the first one matching start up to the next
// section header.
func section(lines []string, start *regexp.Regexp) string {
	var parts []string
	in := false
	for _, l := range lines {
		if in && sectionRe.MatchString(l) && !start.MatchString(l) {
			break
		}
		if !in && start.MatchString(l) {
			in = true
		}
		if in {
			parts = append(parts, l)
		}
	}
	return strings.Join(parts, " ")
}

func titleLike(s string) bool {
	if len(s) > 60 {
		return false
	}
	letters := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			letters++
		}
	}
	return letters >= 3 && letters*2 >= len([]rune(s))
}

func isUpper(s string) bool {
	hasLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			hasLetter = true
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	return hasLetter
}

func titleCase(s string) string {
	if !isUpper(s) {
		return s
	}
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
