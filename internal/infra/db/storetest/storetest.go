// Package storetest holds the behaviour every record and chat store must
// share. Store packages run it from their own tests.
package storetest

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jahnavitry-tech/ScanItKnowItprod/internal/domain/analysis"
	"github.com/jahnavitry-tech/ScanItKnowItprod/internal/domain/chat"
)

// NewRecord returns a record with empty facet slots.
func NewRecord() *analysis.Record {
	url := "data:image/jpeg;base64,AAAA"
	return &analysis.Record{
		ID:             analysis.ID(uuid.NewString()),
		ProductName:    "Granola Bar",
		ProductSummary: "A crunchy oat snack.",
		ExtractedText:  analysis.ExtractedText{Ingredients: "oats, honey", Nutrition: "190 kcal", Brand: "Acme"},
		ImageURL:       &url,
		IsDegradedMode: true,
		Barcode:        "4006381333931",
		IdentifiedBy:   "food-db",
		CreatedAt:      time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

// LargeImageBytes is the size of the inline image LargeImage stores: an
// upload near the default 32 MiB ceiling encoded as a data: URL.
const LargeImageBytes = 20 << 20

// LargeImage checks that a record carrying an inline data: URL image of n
// raw bytes round-trips unchanged.
func LargeImage(t *testing.T, repo analysis.Repository, n int) {
	ctx := context.Background()
	r := NewRecord()
	url := "data:image/jpeg;base64," + strings.Repeat("A", base64.StdEncoding.EncodedLen(n))
	r.ImageURL = &url
	require.NoError(t, repo.Create(ctx, r))

	got, err := repo.Get(ctx, r.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ImageURL)
	assert.Equal(t, len(url), len(*got.ImageURL))
	assert.True(t, *got.ImageURL == url, "image url changed on round trip")
}

// Records exercises an analysis.Repository.
func Records(t *testing.T, repo analysis.Repository) {
	ctx := context.Background()

	t.Run("create and get", func(t *testing.T) {
		r := NewRecord()
		require.NoError(t, repo.Create(ctx, r))

		got, err := repo.Get(ctx, r.ID)
		require.NoError(t, err)
		assert.Equal(t, r.ID, got.ID)
		assert.Equal(t, r.ProductName, got.ProductName)
		assert.Equal(t, r.ExtractedText, got.ExtractedText)
		require.NotNil(t, got.ImageURL)
		assert.Equal(t, *r.ImageURL, *got.ImageURL)
		assert.True(t, got.IsDegradedMode)
		assert.Equal(t, r.Barcode, got.Barcode)
		assert.True(t, r.CreatedAt.Equal(got.CreatedAt))
		for _, f := range analysis.Facets {
			assert.Nil(t, got.FacetData(f), f)
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := repo.Get(ctx, analysis.ID(uuid.NewString()))
		assert.ErrorIs(t, err, analysis.ErrNotFound)

		_, err = repo.SetFacet(ctx, analysis.ID(uuid.NewString()), analysis.FacetIngredients, json.RawMessage(`{}`), false)
		assert.ErrorIs(t, err, analysis.ErrNotFound)
	})

	t.Run("nil image url", func(t *testing.T) {
		r := NewRecord()
		r.ImageURL = nil
		require.NoError(t, repo.Create(ctx, r))

		got, err := repo.Get(ctx, r.ID)
		require.NoError(t, err)
		assert.Nil(t, got.ImageURL)
	})

	t.Run("first facet write wins", func(t *testing.T) {
		r := NewRecord()
		require.NoError(t, repo.Create(ctx, r))
		first := json.RawMessage(`{"ingredients":[{"name":"oats","safety_status":"Safe","reason":"ok"}]}`)

		stored, err := repo.SetFacet(ctx, r.ID, analysis.FacetIngredients, first, false)
		require.NoError(t, err)
		assert.JSONEq(t, string(first), string(stored))

		stored, err = repo.SetFacet(ctx, r.ID, analysis.FacetIngredients, json.RawMessage(`{"ingredients":[]}`), false)
		require.NoError(t, err)
		assert.Equal(t, string(first), string(stored), "an existing value is returned unchanged")

		got, err := repo.Get(ctx, r.ID)
		require.NoError(t, err)
		assert.Equal(t, string(first), string(got.IngredientsData))
		assert.Nil(t, got.CompositionData, "other slots untouched")
	})

	t.Run("overwrite replaces", func(t *testing.T) {
		r := NewRecord()
		require.NoError(t, repo.Create(ctx, r))
		_, err := repo.SetFacet(ctx, r.ID, analysis.FacetReddit, json.RawMessage(`{"pros":["a"]}`), false)
		require.NoError(t, err)

		stored, err := repo.SetFacet(ctx, r.ID, analysis.FacetReddit, json.RawMessage(`{"pros":["b"]}`), true)
		require.NoError(t, err)
		assert.Equal(t, `{"pros":["b"]}`, string(stored))

		got, err := repo.Get(ctx, r.ID)
		require.NoError(t, err)
		assert.Equal(t, `{"pros":["b"]}`, string(got.RedditData))
	})

	t.Run("concurrent conditional writes agree", func(t *testing.T) {
		r := NewRecord()
		require.NoError(t, repo.Create(ctx, r))

		const writers = 8
		results := make([]string, writers)
		var wg sync.WaitGroup
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				v := json.RawMessage(fmt.Sprintf(`{"productCategory":"writer-%d"}`, i))
				stored, err := repo.SetFacet(ctx, r.ID, analysis.FacetComposition, v, false)
				if assert.NoError(t, err) {
					results[i] = string(stored)
				}
			}(i)
		}
		wg.Wait()
		for _, s := range results {
			assert.Equal(t, results[0], s)
		}
	})

	t.Run("ping", func(t *testing.T) {
		assert.NoError(t, repo.Ping(ctx))
	})
}

// Chats exercises a chat.Repository.
func Chats(t *testing.T, repo chat.Repository) {
	ctx := context.Background()
	id := analysis.ID(uuid.NewString())
	other := analysis.ID(uuid.NewString())
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Append(ctx, &chat.Message{
			AnalysisID: id,
			Message:    fmt.Sprintf("q%d", i),
			Response:   fmt.Sprintf("a%d", i),
			// identical timestamps must still keep insertion order
			CreatedAt: base,
		}))
	}
	require.NoError(t, repo.Append(ctx, &chat.Message{AnalysisID: other, Message: "x", Response: "y", CreatedAt: base}))

	got, err := repo.History(ctx, id)
	require.NoError(t, err)
	require.Len(t, got, 5)
	for i, m := range got {
		assert.Equal(t, fmt.Sprintf("q%d", i), m.Message)
		assert.Equal(t, fmt.Sprintf("a%d", i), m.Response)
		assert.Equal(t, id, m.AnalysisID)
	}

	empty, err := repo.History(ctx, analysis.ID(uuid.NewString()))
	require.NoError(t, err)
	assert.Empty(t, empty)
}
