// Package chat implements question answering about an analysed product.
package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jahnavitry-tech/ScanItKnowItprod/internal/application"
	"github.com/jahnavitry-tech/ScanItKnowItprod/internal/application/fallback"
	"github.com/jahnavitry-tech/ScanItKnowItprod/internal/domain/ai"
	"github.com/jahnavitry-tech/ScanItKnowItprod/internal/domain/analysis"
	domain "github.com/jahnavitry-tech/ScanItKnowItprod/internal/domain/chat"
	"github.com/jahnavitry-tech/ScanItKnowItprod/internal/logger"
)

const (
	// UnavailableReply answers every question about a degraded record.
	UnavailableReply = "Chat is temporarily unavailable for this product. Please try again with a clearer photo."
	// ApologyReply is used when no answerer could respond.
	ApologyReply = "Sorry, I couldn't answer that right now. Please try again in a moment."

	DefaultMaxMessageBytes = 4 << 10
	historyTurns           = 6
)

type Config struct {
	Timeout         time.Duration
	Attempts        int
	Backoff         time.Duration
	MaxMessageBytes int
}

func DefaultConfig() Config {
	return Config{
		Timeout:         30 * time.Second,
		Attempts:        2,
		Backoff:         500 * time.Millisecond,
		MaxMessageBytes: DefaultMaxMessageBytes,
	}
}

// Service implements the chat use-cases.
type Service struct {
	Records   analysis.Repository
	Repo      domain.Repository
	Answerers []ai.Answerer
	Clock     application.Clock
	Config    Config
	Log       *logger.Logger
}

// PostMessage answers text about the record and appends the turn to its
// history. Degraded records get UnavailableReply without any provider call.
func (s *Service) PostMessage(ctx context.Context, id analysis.ID, text string) (*domain.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, analysis.Invalidf("message is required")
	}
	if limit := s.maxBytes(); len(text) > limit {
		return nil, analysis.Invalidf("message is longer than %d bytes", limit)
	}
	rec, err := s.Records.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	// the turn is recorded even if the caller hangs up
	ctx = context.WithoutCancel(ctx)
	reply := UnavailableReply
	if !rec.IsDegradedMode {
		reply = s.answer(ctx, rec, text)
	}

	m := &domain.Message{
		AnalysisID: id,
		Message:    text,
		Response:   reply,
		CreatedAt:  application.OrSystem(s.Clock).Now(),
	}
	if err := s.Repo.Append(ctx, m); err != nil {
		return nil, fmt.Errorf("append chat message: %w", err)
	}
	return m, nil
}

// GetHistory returns the messages of a record, oldest first.
func (s *Service) GetHistory(ctx context.Context, id analysis.ID) ([]*domain.Message, error) {
	if _, err := s.Records.Get(ctx, id); err != nil {
		return nil, err
	}
	msgs, err := s.Repo.History(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load chat history: %w", err)
	}
	return msgs, nil
}

func (s *Service) answer(ctx context.Context, rec *analysis.Record, question string) string {
	log := logger.OrNop(s.Log).With("analysis", rec.ID)
	cc := ai.ChatContext{Product: ai.ContextFromRecord(rec)}
	if rec.IngredientsData != nil {
		cc.IngredientsJSON = string(rec.IngredientsData)
	}
	history, err := s.Repo.History(ctx, rec.ID)
	if err != nil {
		log.Warn("chat history unavailable, answering without it", "error", err)
	}
	if len(history) > historyTurns {
		history = history[len(history)-historyTurns:]
	}
	for _, m := range history {
		cc.History = append(cc.History, ai.Turn{Question: m.Message, Answer: m.Response})
	}

	strategies := make([]fallback.Strategy[string], 0, len(s.Answerers))
	for _, a := range s.Answerers {
		strategies = append(strategies, fallback.Strategy[string]{
			Name: a.Name(),
			Run: func(ctx context.Context) (string, error) {
				return a.Answer(ctx, question, cc)
			},
		})
	}
	out := fallback.Chain[string]{
		Task:       "chat",
		Strategies: strategies,
		Default:    func() string { return ApologyReply },
		Usable:     func(v string) bool { return strings.TrimSpace(v) != "" },
		Config: fallback.Config{
			Timeout:  s.Config.Timeout,
			Attempts: s.Config.Attempts,
			Backoff:  s.Config.Backoff,
		},
		Log: log,
	}.Resolve(ctx)
	return out.Value
}

func (s *Service) maxBytes() int {
	if s.Config.MaxMessageBytes > 0 {
		return s.Config.MaxMessageBytes
	}
	return DefaultMaxMessageBytes
}
