package analysis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jahnavitry-tech/ScanItKnowItprod/internal/application/fallback"
	"github.com/jahnavitry-tech/ScanItKnowItprod/internal/domain/ai"
	domain "github.com/jahnavitry-tech/ScanItKnowItprod/internal/domain/analysis"
	"github.com/jahnavitry-tech/ScanItKnowItprod/internal/logger"
	"github.com/jahnavitry-tech/ScanItKnowItprod/internal/metrics"
)

// EnsureFacet returns the facet payload of a record, computing and storing
// it the first time. Concurrent calls for the same record and facet share one
// computation, which keeps running when the caller goes away.
func (s *Service) EnsureFacet(ctx context.Context, id domain.ID, f domain.Facet) (json.RawMessage, error) {
	if _, err := domain.ParseFacet(string(f)); err != nil {
		return nil, err
	}
	rec, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if data := rec.FacetData(f); data != nil {
		metrics.FacetLookups.WithLabelValues(string(f), "hit").Inc()
		return data, nil
	}

	ch := s.flight.DoChan(string(id)+"/"+string(f), func() (any, error) {
		return s.fill(context.WithoutCancel(ctx), id, f)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(json.RawMessage), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// RecomputeFacet reruns the facet chain and overwrites the stored payload.
// The record's degraded flag is never changed.
func (s *Service) RecomputeFacet(ctx context.Context, id domain.ID, f domain.Facet) (json.RawMessage, error) {
	if _, err := domain.ParseFacet(string(f)); err != nil {
		return nil, err
	}
	ctx = context.WithoutCancel(ctx)
	rec, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	data, err := s.compute(ctx, rec, f)
	if err != nil {
		return nil, err
	}
	metrics.FacetLookups.WithLabelValues(string(f), "recomputed").Inc()
	return s.Repo.SetFacet(ctx, id, f, data, true)
}

func (s *Service) fill(ctx context.Context, id domain.ID, f domain.Facet) (json.RawMessage, error) {
	// another flight may have stored the facet since the caller's read
	rec, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if data := rec.FacetData(f); data != nil {
		metrics.FacetLookups.WithLabelValues(string(f), "hit").Inc()
		return data, nil
	}
	data, err := s.compute(ctx, rec, f)
	if err != nil {
		return nil, err
	}
	metrics.FacetLookups.WithLabelValues(string(f), "computed").Inc()
	return s.Repo.SetFacet(ctx, id, f, data, false)
}

// compute never fails on adapter errors: the chain falls back to the facet's
// safe default. Only encoding can fail.
func (s *Service) compute(ctx context.Context, rec *domain.Record, f domain.Facet) (json.RawMessage, error) {
	analyzers := s.analyzers(rec)
	p := ai.ContextFromRecord(rec)
	log := s.log().With("analysis", rec.ID, "facet", f, "degraded", rec.IsDegradedMode)
	cfg := s.chainConfig(s.Config.Timeout)

	var v any
	switch f {
	case domain.FacetIngredients:
		v = resolveFacet(ctx, f, analyzers, cfg, log,
			func(ctx context.Context, a ai.FacetAnalyzer) (*domain.IngredientsData, error) {
				return a.Ingredients(ctx, p)
			},
			func(d *domain.IngredientsData) bool { return d != nil && len(d.Ingredients) > 0 },
			EmptyIngredients)
	case domain.FacetComposition:
		v = resolveFacet(ctx, f, analyzers, cfg, log,
			func(ctx context.Context, a ai.FacetAnalyzer) (*domain.CompositionData, error) {
				return a.Composition(ctx, p)
			},
			func(d *domain.CompositionData) bool { return d != nil },
			EmptyComposition)
	case domain.FacetReddit:
		v = resolveFacet(ctx, f, analyzers, cfg, log,
			func(ctx context.Context, a ai.FacetAnalyzer) (*domain.SentimentData, error) {
				return a.Sentiment(ctx, p)
			},
			func(d *domain.SentimentData) bool { return d != nil },
			EmptySentiment)
	default:
		return nil, domain.Invalidf("unknown facet %q", f)
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %s facet: %w", f, err)
	}
	return data, nil
}

// analyzers lists the facet strategies for a record. Degraded records skip
// the primary analyzers entirely; the barcode database needs a barcode.
// Records without a product name only get the barcode database, so a
// placeholder resolves to the safe default instead of searching for its
// placeholder name.
func (s *Service) analyzers(rec *domain.Record) []ai.FacetAnalyzer {
	var out []ai.FacetAnalyzer
	named := !unnamed(rec)
	if !rec.IsDegradedMode && named {
		out = append(out, s.Primary...)
	}
	if rec.Barcode != "" && s.BarcodeDB != nil {
		out = append(out, s.BarcodeDB)
	}
	if s.Web != nil && named {
		out = append(out, s.Web)
	}
	return out
}

func unnamed(rec *domain.Record) bool {
	return rec.IdentifiedBy == placeholderBy || rec.ProductName == PlaceholderName
}

func resolveFacet[T any](
	ctx context.Context,
	f domain.Facet,
	analyzers []ai.FacetAnalyzer,
	cfg fallback.Config,
	log *logger.Logger,
	call func(context.Context, ai.FacetAnalyzer) (*T, error),
	usable func(*T) bool,
	def func() *T,
) *T {
	strategies := make([]fallback.Strategy[*T], 0, len(analyzers))
	for _, a := range analyzers {
		strategies = append(strategies, fallback.Strategy[*T]{
			Name: a.Name(),
			Run:  func(ctx context.Context) (*T, error) { return call(ctx, a) },
		})
	}
	out := fallback.Chain[*T]{
		Task:       string(f),
		Strategies: strategies,
		Default:    def,
		Usable:     usable,
		Config:     cfg,
		Log:        log,
	}.Resolve(ctx)
	if !out.Defaulted {
		log.Debug("facet resolved", "strategy", out.Strategy)
	}
	return out.Value
}

//
// ==== SAFE DEFAULTS ====
//

func EmptyIngredients() *domain.IngredientsData {
	return &domain.IngredientsData{Ingredients: []domain.Ingredient{}}
}

func EmptyComposition() *domain.CompositionData {
	return &domain.CompositionData{
		ProductCategory:      "Unknown",
		CompositionalDetails: []domain.Detail{},
	}
}

func EmptySentiment() *domain.SentimentData {
	return &domain.SentimentData{
		Pros:    []string{},
		Cons:    []string{},
		Reviews: []domain.Review{},
	}
}
