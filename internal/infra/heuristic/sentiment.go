package heuristic

import (
	"math"
	"regexp"
	"strings"

	"github.com/jahnavitry-tech/ScanItKnowItprod/internal/domain/analysis"
)

// Snippet is a piece of community text about a product.
type Snippet struct {
	Source string
	Text   string
}

const (
	maxReviews     = 5
	maxPointWords  = 15
	sentimentPos   = "positive"
	sentimentNeg   = "negative"
	sentimentMixed = "mixed"
)

var (
	positiveRe = regexp.MustCompile(`(?i)\b(love[sd]?|great|excellent|amazing|best|recommend(ed)?|delicious|tasty|worth|favou?rite|effective|gentle|good|nice|perfect)\b`)
	negativeRe = regexp.MustCompile(`(?i)\b(hate[sd]?|awful|terrible|worst|bad|disappoint(ed|ing)?|overpriced|expensive|broke ?out|rash|irritat(ed|ing|ion)|bland|gross|waste|sticky|greasy)\b`)
	ratingRe   = regexp.MustCompile(`(?i)\b([0-5](?:\.\d)?)\s*(?:/|out of)\s*5\b`)
	sentenceRe = regexp.MustCompile(`[^.!?]+[.!?]?`)
)

// Sentiment summarises snippets by keyword polarity. Explicit "x/5" ratings
// win over the polarity estimate. It returns nil for no snippets.
func Sentiment(snippets []Snippet) *analysis.SentimentData {
	if len(snippets) == 0 {
		return nil
	}
	out := &analysis.SentimentData{
		Pros:          []string{},
		Cons:          []string{},
		TotalMentions: len(snippets),
		Reviews:       []analysis.Review{},
	}

	var pos, neg int
	var ratings []float64
	seen := map[string]bool{}
	for _, s := range snippets {
		for _, m := range ratingRe.FindAllStringSubmatch(s.Text, -1) {
			if v, err := analysis.ParseQuantity(m[1]); err == nil && v <= 5 {
				ratings = append(ratings, v)
			}
		}

		p, n := 0, 0
		for _, sentence := range sentenceRe.FindAllString(s.Text, -1) {
			sentence = strings.TrimSpace(sentence)
			sp := len(positiveRe.FindAllString(sentence, -1))
			sn := len(negativeRe.FindAllString(sentence, -1))
			p += sp
			n += sn
			point := shorten(sentence, maxPointWords)
			key := strings.ToLower(point)
			if point == "" || seen[key] {
				continue
			}
			switch {
			case sp > sn && len(out.Pros) < 4:
				out.Pros = append(out.Pros, point)
				seen[key] = true
			case sn > sp && len(out.Cons) < 4:
				out.Cons = append(out.Cons, point)
				seen[key] = true
			}
		}
		pos += p
		neg += n

		if len(out.Reviews) < maxReviews {
			out.Reviews = append(out.Reviews, analysis.Review{
				Source:    s.Source,
				Text:      shorten(s.Text, 60),
				Sentiment: polarity(p, n),
			})
		}
	}

	switch {
	case len(ratings) > 0:
		var sum float64
		for _, r := range ratings {
			sum += r
		}
		out.AverageRating = round1(sum / float64(len(ratings)))
	case pos+neg > 0:
		out.AverageRating = round1(2.5 + 2.5*float64(pos-neg)/float64(pos+neg))
	}
	return out
}

func polarity(p, n int) string {
	switch {
	case p > n:
		return sentimentPos
	case n > p:
		return sentimentNeg
	}
	return sentimentMixed
}

func shorten(s string, words int) string {
	f := strings.Fields(s)
	if len(f) <= words {
		return strings.Join(f, " ")
	}
	return strings.Join(f[:words], " ") + "..."
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
