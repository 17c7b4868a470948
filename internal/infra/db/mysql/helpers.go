package mysql

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/jahnavitry-tech/ScanItKnowItprod/internal/domain/analysis"
)

// facetColumn maps a facet to its column; facet names never reach SQL text.
func facetColumn(f analysis.Facet) (string, error) {
	switch f {
	case analysis.FacetIngredients:
		return "ingredients_data", nil
	case analysis.FacetComposition:
		return "composition_data", nil
	case analysis.FacetReddit:
		return "reddit_data", nil
	}
	return "", analysis.Invalidf("unknown facet %q", f)
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullRaw(b json.RawMessage) any {
	if b == nil {
		return nil
	}
	return string(b)
}

func rawOrNil(b []byte) json.RawMessage {
	if b == nil {
		return nil
	}
	return json.RawMessage(b)
}

func wrapf(err error, format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
