// Package fallback runs an ordered list of strategies for one task and
// returns the first usable result, or the task's safe default.
package fallback

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jahnavitry-tech/ScanItKnowItprod/internal/domain/ai"
	"github.com/jahnavitry-tech/ScanItKnowItprod/internal/logger"
	"github.com/jahnavitry-tech/ScanItKnowItprod/internal/metrics"
)

// Strategy is one way of accomplishing a task.
type Strategy[T any] struct {
	Name string
	Run  func(ctx context.Context) (T, error)
}

// Config bounds every strategy attempt.
type Config struct {
	// Timeout per attempt. Zero means no timeout.
	Timeout time.Duration
	// Attempts per strategy for transient failures; values below 1 mean 1.
	Attempts int
	// Backoff before the second attempt, doubled for each further one.
	Backoff time.Duration
}

// Outcome reports what the chain produced.
type Outcome[T any] struct {
	Value T
	// Strategy is the name of the winning strategy, empty when Defaulted.
	Strategy  string
	Defaulted bool
	// Failures has one entry per failed attempt, in order.
	Failures []Failure
}

// Failure describes one failed attempt.
type Failure struct {
	Strategy string
	Attempt  int
	Err      error
}

// Chain is an ordered fallback chain for a task.
type Chain[T any] struct {
	Task       string
	Strategies []Strategy[T]
	// Default builds the safe default returned when every strategy failed.
	Default func() T
	// Usable rejects results that carry no data. Nil accepts every error-free result.
	Usable func(T) bool
	Config Config
	Log    *logger.Logger
}

// Resolve tries the strategies in order. It never returns an error: when all
// strategies fail, or ctx ends, the safe default is returned.
// fields are extra key/value pairs attached to every log line.
func (c Chain[T]) Resolve(ctx context.Context, fields ...any) Outcome[T] {
	log := logger.OrNop(c.Log).With(append([]any{"task", c.Task}, fields...)...)
	var out Outcome[T]

	for _, s := range c.Strategies {
		v, ok := c.try(ctx, s, log, &out)
		if ok {
			out.Value = v
			out.Strategy = s.Name
			return out
		}
		if ctx.Err() != nil {
			break
		}
	}

	metrics.ChainDefaults.WithLabelValues(c.Task).Inc()
	log.Warn("fallback chain exhausted, using safe default", "failures", len(out.Failures))
	if c.Default != nil {
		out.Value = c.Default()
	}
	out.Defaulted = true
	return out
}

func (c Chain[T]) try(ctx context.Context, s Strategy[T], log *logger.Logger, out *Outcome[T]) (T, bool) {
	var zero T
	attempts := c.Config.Attempts
	if attempts < 1 {
		attempts = 1
	}
	delay := c.Config.Backoff

	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			if !sleep(ctx, delay) {
				return zero, false
			}
			delay *= 2
		}

		v, err := c.runOnce(ctx, s)
		if err == nil && c.Usable != nil && !c.Usable(v) {
			err = ai.ErrNoResult
		}
		metrics.StrategyAttempts.WithLabelValues(c.Task, s.Name, outcomeLabel(err)).Inc()
		if err == nil {
			if attempt > 1 || len(out.Failures) > 0 {
				log.Info("fallback strategy succeeded", "strategy", s.Name, "attempt", attempt)
			}
			return v, true
		}

		out.Failures = append(out.Failures, Failure{Strategy: s.Name, Attempt: attempt, Err: err})
		if errors.Is(err, ai.ErrNoResult) {
			log.Debug("strategy returned no result", "strategy", s.Name)
		} else {
			log.Warn("strategy failed", "strategy", s.Name, "attempt", attempt, "error", err)
		}
		if !retryable(err) || ctx.Err() != nil {
			break
		}
	}
	return zero, false
}

// runOnce bounds one attempt by the configured timeout even when the
// strategy ignores its context. Panics are turned into errors.
func (c Chain[T]) runOnce(ctx context.Context, s Strategy[T]) (T, error) {
	var zero T
	if c.Config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Config.Timeout)
		defer cancel()
	}

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- result{err: fmt.Errorf("strategy %s panicked: %v", s.Name, p)}
			}
		}()
		v, err := s.Run(ctx)
		done <- result{v: v, err: err}
	}()

	select {
	case r := <-done:
		return r.v, r.err
	case <-ctx.Done():
		return zero, fmt.Errorf("strategy %s: %w", s.Name, ctx.Err())
	}
}

func retryable(err error) bool {
	switch {
	case errors.Is(err, ai.ErrRateLimited),
		errors.Is(err, ai.ErrNotConfigured),
		errors.Is(err, ai.ErrNoResult),
		errors.Is(err, context.Canceled):
		return false
	}
	return true
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ai.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ai.ErrNoResult):
		return "absent"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, ai.ErrUnparseable):
		return "unparseable"
	}
	return "error"
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
