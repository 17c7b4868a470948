package barcode

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jahnavitry-tech/ScanItKnowItprod/internal/domain/ai"
	"github.com/jahnavitry-tech/ScanItKnowItprod/internal/domain/analysis"
	"github.com/jahnavitry-tech/ScanItKnowItprod/internal/infra/heuristic"
)

// Analyzer answers facet requests from barcode database records. It needs a
// captured barcode and has no review data, so Sentiment always reports absence.
type Analyzer struct {
	Lookups []ai.BarcodeLookup
}

func NewAnalyzer(lookups ...ai.BarcodeLookup) *Analyzer {
	return &Analyzer{Lookups: lookups}
}

func (a *Analyzer) Name() string { return "barcode-db" }

func (a *Analyzer) Ingredients(ctx context.Context, p ai.ProductContext) (*analysis.IngredientsData, error) {
	prod, err := a.product(ctx, p.Barcode)
	if err != nil {
		return nil, err
	}
	out := heuristic.Ingredients(prod.Ingredients)
	if out == nil {
		return nil, fmt.Errorf("%s: %w: no ingredient list for %s", a.Name(), ai.ErrNoResult, prod.Code)
	}
	return out, nil
}

func (a *Analyzer) Composition(ctx context.Context, p ai.ProductContext) (*analysis.CompositionData, error) {
	prod, err := a.product(ctx, p.Barcode)
	if err != nil {
		return nil, err
	}
	out := &analysis.CompositionData{
		ProductCategory:      category(prod),
		CompositionalDetails: []analysis.Detail{},
	}
	if v, unit, ok := heuristic.NetQuantity(prod.Quantity); ok {
		out.NetQuantity = analysis.Quantity(v)
		out.UnitType = unit
	}
	out.Calories = analysis.Quantity(nutriment(prod, "energy-kcal_100g", "energy-kcal"))
	out.TotalFat = analysis.Quantity(nutriment(prod, "fat_100g", "fat"))
	out.TotalProtein = analysis.Quantity(nutriment(prod, "proteins_100g", "proteins"))
	for _, d := range []struct{ key, field, unit string }{
		{"Carbohydrates", "carbohydrates_100g", "g"},
		{"Sugars", "sugars_100g", "g"},
		{"Fibre", "fiber_100g", "g"},
		{"Salt", "salt_100g", "g"},
	} {
		if v, ok := prod.Nutriments[d.field]; ok {
			out.CompositionalDetails = append(out.CompositionalDetails, analysis.Detail{
				Key:   d.key,
				Value: fmt.Sprintf("%g %s per 100 g", v, d.unit),
			})
		}
	}
	if prod.Brand != "" {
		out.CompositionalDetails = append(out.CompositionalDetails, analysis.Detail{Key: "Brand", Value: prod.Brand})
	}
	return out, nil
}

func (a *Analyzer) Sentiment(context.Context, ai.ProductContext) (*analysis.SentimentData, error) {
	return nil, fmt.Errorf("%s: %w: barcode databases carry no reviews", a.Name(), ai.ErrNoResult)
}

// product asks each database in turn. Absence everywhere is ai.ErrNoResult;
// the last transport error is returned when no database answered.
func (a *Analyzer) product(ctx context.Context, code string) (*ai.BarcodeProduct, error) {
	if code == "" {
		return nil, fmt.Errorf("%s: %w: no barcode captured", a.Name(), ai.ErrNoResult)
	}
	var lastErr error
	answered := false
	for _, l := range a.Lookups {
		p, err := l.Lookup(ctx, code)
		if err != nil {
			lastErr = err
			if errors.Is(err, analysis.ErrInvalidInput) {
				break
			}
			continue
		}
		answered = true
		if p != nil {
			return p, nil
		}
	}
	if lastErr != nil && !answered {
		return nil, lastErr
	}
	return nil, fmt.Errorf("%s: %w: %s not in any database", a.Name(), ai.ErrNoResult, code)
}

func nutriment(p *ai.BarcodeProduct, keys ...string) float64 {
	for _, k := range keys {
		if v, ok := p.Nutriments[k]; ok {
			return v
		}
	}
	return 0
}

func category(p *ai.BarcodeProduct) string {
	if c := firstField(p.Categories); c != "" {
		return c
	}
	if p.Source == "cosmetic-db" {
		return heuristic.CategoryPersonal
	}
	return heuristic.Category(strings.Join([]string{p.Name, p.Ingredients}, " "))
}

// Candidate turns a database record into an identification candidate.
func Candidate(p *ai.BarcodeProduct) ai.Candidate {
	name := p.Name
	if p.Brand != "" && !strings.Contains(strings.ToLower(name), strings.ToLower(p.Brand)) {
		name = p.Brand + " " + name
	}
	summary := fmt.Sprintf("%s identified from barcode %s.", name, p.Code)
	if c := firstField(p.Categories); c != "" {
		summary = fmt.Sprintf("%s (%s) identified from barcode %s.", name, c, p.Code)
	}
	return ai.Candidate{
		ProductName: name,
		ExtractedText: analysis.ExtractedText{
			Ingredients: p.Ingredients,
			Brand:       p.Brand,
		},
		Summary: summary,
		Barcode: p.Code,
	}
}
