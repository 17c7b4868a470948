package barcode

import (
	"context"
	"fmt"

	"github.com/jahnavitry-tech/ScanItKnowItprod/internal/domain/ai"
	"github.com/jahnavitry-tech/ScanItKnowItprod/internal/infra/heuristic"
)

// LookupIdentifier finds a barcode in label text and names the product from
// a barcode database.
type LookupIdentifier struct {
	lookup ai.BarcodeLookup
}

func NewLookupIdentifier(l ai.BarcodeLookup) *LookupIdentifier {
	return &LookupIdentifier{lookup: l}
}

func (i *LookupIdentifier) Name() string { return i.lookup.Name() }

func (i *LookupIdentifier) IdentifyText(ctx context.Context, text string) ([]ai.Candidate, error) {
	code := Find(text)
	if code == "" {
		return nil, fmt.Errorf("%s: %w: no barcode in label text", i.Name(), ai.ErrNoResult)
	}
	p, err := i.lookup.Lookup(ctx, code)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%s: %w: barcode %s not listed", i.Name(), ai.ErrNoResult, code)
	}
	return []ai.Candidate{Candidate(p)}, nil
}

// LabelIdentifier names a product from the label text alone. A barcode
// printed on the label is kept on the candidate so later lookups can use it.
type LabelIdentifier struct{}

func (LabelIdentifier) Name() string { return "label-text" }

func (LabelIdentifier) IdentifyText(_ context.Context, text string) ([]ai.Candidate, error) {
	c, ok := heuristic.ProductFromText(text)
	if !ok {
		return nil, fmt.Errorf("label-text: %w", ai.ErrNoResult)
	}
	c.Barcode = Find(text)
	return []ai.Candidate{c}, nil
}
