package chat

import (
	"time"

	"github.com/jahnavitry-tech/ScanItKnowItprod/internal/domain/analysis"
)

// Message is one question/answer turn. Messages are append-only.
type Message struct {
	AnalysisID analysis.ID `json:"analysisId"`
	Message    string      `json:"message"`
	Response   string      `json:"response"`
	CreatedAt  time.Time   `json:"timestamp"`
}
