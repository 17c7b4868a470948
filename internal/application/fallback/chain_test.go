package fallback

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jahnavitry-tech/ScanItKnowItprod/internal/domain/ai"
)

type counter struct{ n atomic.Int32 }

func (c *counter) strategy(name string, results ...func() (string, error)) Strategy[string] {
	return Strategy[string]{
		Name: name,
		Run: func(ctx context.Context) (string, error) {
			i := int(c.n.Add(1)) - 1
			if i >= len(results) {
				i = len(results) - 1
			}
			return results[i]()
		},
	}
}

func ok(v string) func() (string, error)    { return func() (string, error) { return v, nil } }
func fail(err error) func() (string, error) { return func() (string, error) { return "", err } }

func TestResolve_FirstSuccessShortCircuits(t *testing.T) {
	var a, b counter
	chain := Chain[string]{
		Task:       "test",
		Strategies: []Strategy[string]{a.strategy("a", ok("first")), b.strategy("b", ok("second"))},
		Default:    func() string { return "default" },
	}

	out := chain.Resolve(context.Background())

	assert.Equal(t, "first", out.Value)
	assert.Equal(t, "a", out.Strategy)
	assert.False(t, out.Defaulted)
	assert.EqualValues(t, 1, a.n.Load())
	assert.EqualValues(t, 0, b.n.Load(), "later strategies must not run after a success")
}

func TestResolve_AdvancesInOrder(t *testing.T) {
	var order []string
	mk := func(name string, err error) Strategy[string] {
		return Strategy[string]{Name: name, Run: func(ctx context.Context) (string, error) {
			order = append(order, name)
			return name, err
		}}
	}
	chain := Chain[string]{
		Task: "test",
		Strategies: []Strategy[string]{
			mk("one", ai.ErrUnavailable),
			mk("two", ai.ErrUnparseable),
			mk("three", nil),
		},
	}

	out := chain.Resolve(context.Background())

	assert.Equal(t, "three", out.Value)
	assert.Equal(t, []string{"one", "two", "three"}, order)
	require.Len(t, out.Failures, 2)
	assert.ErrorIs(t, out.Failures[1].Err, ai.ErrUnparseable)
}

func TestResolve_ExhaustedReturnsDefault(t *testing.T) {
	var a counter
	chain := Chain[string]{
		Task:       "test",
		Strategies: []Strategy[string]{a.strategy("a", fail(errors.New("boom")))},
		Default:    func() string { return "sorry" },
		Config:     Config{Attempts: 3},
	}

	out := chain.Resolve(context.Background())

	assert.True(t, out.Defaulted)
	assert.Equal(t, "sorry", out.Value)
	assert.Empty(t, out.Strategy)
	assert.EqualValues(t, 3, a.n.Load(), "transient failures use the retry budget")
}

func TestResolve_RetrySucceedsOnSecondAttempt(t *testing.T) {
	var a counter
	chain := Chain[string]{
		Task:       "test",
		Strategies: []Strategy[string]{a.strategy("a", fail(ai.ErrUnparseable), ok("valid"))},
		Default:    func() string { return "default" },
		Config:     Config{Attempts: 2},
	}

	out := chain.Resolve(context.Background())

	assert.Equal(t, "valid", out.Value)
	assert.False(t, out.Defaulted)
}

func TestResolve_RateLimitedSkipsRetriesButAdvances(t *testing.T) {
	var a, b counter
	chain := Chain[string]{
		Task: "test",
		Strategies: []Strategy[string]{
			a.strategy("a", fail(ai.RateLimited("prov", errors.New("429")))),
			b.strategy("b", ok("other")),
		},
		Config: Config{Attempts: 5},
	}

	out := chain.Resolve(context.Background())

	assert.Equal(t, "other", out.Value)
	assert.EqualValues(t, 1, a.n.Load())
}

func TestResolve_NotConfiguredFailsFast(t *testing.T) {
	var a counter
	chain := Chain[string]{
		Task:       "test",
		Strategies: []Strategy[string]{a.strategy("a", fail(ai.ErrNotConfigured))},
		Default:    func() string { return "default" },
		Config:     Config{Attempts: 4, Backoff: time.Hour},
	}

	out := chain.Resolve(context.Background())

	assert.True(t, out.Defaulted)
	assert.EqualValues(t, 1, a.n.Load())
}

func TestResolve_UnusableResultAdvances(t *testing.T) {
	chain := Chain[*string]{
		Task: "test",
		Strategies: []Strategy[*string]{
			{Name: "absent", Run: func(ctx context.Context) (*string, error) { return nil, nil }},
			{Name: "present", Run: func(ctx context.Context) (*string, error) { s := "x"; return &s, nil }},
		},
		Usable: func(s *string) bool { return s != nil },
		Config: Config{Attempts: 3},
	}

	out := chain.Resolve(context.Background())

	require.NotNil(t, out.Value)
	assert.Equal(t, "present", out.Strategy)
	require.Len(t, out.Failures, 1)
	assert.ErrorIs(t, out.Failures[0].Err, ai.ErrNoResult)
}

func TestResolve_TimeoutAdvances(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	chain := Chain[string]{
		Task: "test",
		Strategies: []Strategy[string]{
			{Name: "hangs", Run: func(ctx context.Context) (string, error) {
				<-release
				return "late", nil
			}},
			{Name: "fast", Run: func(ctx context.Context) (string, error) { return "fast", nil }},
		},
		Config: Config{Timeout: 20 * time.Millisecond},
	}

	start := time.Now()
	out := chain.Resolve(context.Background())

	assert.Equal(t, "fast", out.Value)
	assert.Less(t, time.Since(start), time.Second)
	require.Len(t, out.Failures, 1)
	assert.ErrorIs(t, out.Failures[0].Err, context.DeadlineExceeded)
}

func TestResolve_PanicIsAFailure(t *testing.T) {
	chain := Chain[string]{
		Task: "test",
		Strategies: []Strategy[string]{
			{Name: "panics", Run: func(ctx context.Context) (string, error) { panic("bad adapter") }},
		},
		Default: func() string { return "default" },
	}

	out := chain.Resolve(context.Background())

	assert.True(t, out.Defaulted)
	assert.Equal(t, "default", out.Value)
}

func TestResolve_CanceledContextStopsChain(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var b counter
	chain := Chain[string]{
		Task: "test",
		Strategies: []Strategy[string]{
			{Name: "cancels", Run: func(context.Context) (string, error) {
				cancel()
				return "", context.Canceled
			}},
			b.strategy("b", ok("never")),
		},
		Default: func() string { return "default" },
	}

	out := chain.Resolve(ctx)

	assert.True(t, out.Defaulted)
	assert.EqualValues(t, 0, b.n.Load())
}
