package web

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/jahnavitry-tech/ScanItKnowItprod/internal/domain/ai"
	"github.com/jahnavitry-tech/ScanItKnowItprod/internal/domain/analysis"
	"github.com/jahnavitry-tech/ScanItKnowItprod/internal/infra/heuristic"
)

const resultsPerQuery = 8

var ingredientListRe = regexp.MustCompile(`(?i)\bingredients?\s*:\s*[^.]{8,}`)

// Analyzer implements ai.FacetAnalyzer from label text and search snippets.
type Analyzer struct {
	search *Searcher
}

func NewAnalyzer(s *Searcher) *Analyzer {
	return &Analyzer{search: s}
}

func (a *Analyzer) Name() string { return providerName }

// Ingredients prefers the label text captured at identification and only
// searches when there is none.
func (a *Analyzer) Ingredients(ctx context.Context, p ai.ProductContext) (*analysis.IngredientsData, error) {
	if out := heuristic.Ingredients(p.ExtractedText.Ingredients); out != nil {
		return out, nil
	}
	if err := searchable(p); err != nil {
		return nil, err
	}
	results, err := a.search.Search(ctx, query(p, "ingredients"), resultsPerQuery)
	if err != nil {
		return nil, err
	}
	for _, r := range results {
		if m := ingredientListRe.FindString(r.Snippet); m != "" {
			if out := heuristic.Ingredients(m); out != nil {
				return out, nil
			}
		}
	}
	return nil, fmt.Errorf("%s: %w: no ingredient list found", providerName, ai.ErrNoResult)
}

func (a *Analyzer) Composition(ctx context.Context, p ai.ProductContext) (*analysis.CompositionData, error) {
	text := strings.Join([]string{p.Name, p.Summary, p.ExtractedText.Nutrition, p.ExtractedText.Ingredients}, "\n")
	if searchable(p) == nil {
		results, err := a.search.Search(ctx, query(p, "nutrition facts"), resultsPerQuery)
		if err != nil && strings.TrimSpace(p.ExtractedText.Nutrition) == "" {
			return nil, err
		}
		for _, r := range results {
			text += "\n" + r.Snippet
		}
	}
	out := heuristic.Composition(text)
	if heuristic.Empty(out) {
		return nil, fmt.Errorf("%s: %w: no composition facts found", providerName, ai.ErrNoResult)
	}
	return out, nil
}

func (a *Analyzer) Sentiment(ctx context.Context, p ai.ProductContext) (*analysis.SentimentData, error) {
	if err := searchable(p); err != nil {
		return nil, err
	}
	results, err := a.search.Search(ctx, query(p, "reddit review"), resultsPerQuery)
	if err != nil {
		return nil, err
	}
	snippets := make([]heuristic.Snippet, 0, len(results))
	for _, r := range results {
		if r.Snippet == "" {
			continue
		}
		snippets = append(snippets, heuristic.Snippet{Source: host(r.URL), Text: r.Snippet})
	}
	out := heuristic.Sentiment(snippets)
	if out == nil {
		return nil, fmt.Errorf("%s: %w: no community mentions found", providerName, ai.ErrNoResult)
	}
	return out, nil
}

func searchable(p ai.ProductContext) error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%s: %w: product has no name to search for", providerName, ai.ErrNoResult)
	}
	return nil
}

func query(p ai.ProductContext, suffix string) string {
	name := p.Name
	if b := p.Brand; b != "" && !strings.Contains(strings.ToLower(name), strings.ToLower(b)) {
		name = b + " " + name
	}
	return fmt.Sprintf("%q %s", name, suffix)
}
