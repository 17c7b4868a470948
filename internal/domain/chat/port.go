package chat

import (
	"context"

	"github.com/jahnavitry-tech/ScanItKnowItprod/internal/domain/analysis"
)

// Repository defines persistence for chat turns
type Repository interface {
	Append(ctx context.Context, m *Message) error
	// History returns every message for the analysis in insertion order.
	History(ctx context.Context, id analysis.ID) ([]*Message, error)
}
