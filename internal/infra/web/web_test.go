package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jahnavitry-tech/ScanItKnowItprod/internal/domain/ai"
	"github.com/jahnavitry-tech/ScanItKnowItprod/internal/domain/analysis"
)

const resultsPage = `<html><body>
<div class="result result--ad"><a class="result__a" href="https://ads.example/x">Buy now</a>
  <a class="result__snippet">Sponsored great deal</a></div>
<div class="result"><h2><a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fwww.reddit.com%2Fr%2Fsnacks%2F1&rut=abc">Acme bar thoughts</a></h2>
  <a class="result__snippet">I love these, great for hiking. Ingredients: oats, honey, palm oil, salt. 190 kcal, protein 4 g.</a></div>
<div class="result"><h2><a class="result__a" href="https://forum.example.com/t/2">Acme bar is meh</a></h2>
  <a class="result__snippet">Way too sweet and overpriced. Rated 2/5.</a></div>
</body></html>`

func searchServer(t *testing.T, status int, page string) (*httptest.Server, *[]string) {
	t.Helper()
	var queries []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		queries = append(queries, r.URL.Query().Get("q"))
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(page))
	}))
	t.Cleanup(srv.Close)
	return srv, &queries
}

func TestSearch_ParsesOrganicResults(t *testing.T) {
	srv, queries := searchServer(t, http.StatusOK, resultsPage)
	s := NewSearcher(srv.URL, srv.Client())

	got, err := s.Search(context.Background(), "acme bar", 10)

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Acme bar thoughts", got[0].Title)
	assert.Equal(t, "https://www.reddit.com/r/snacks/1", got[0].URL)
	assert.Contains(t, got[1].Snippet, "overpriced")
	assert.Equal(t, []string{"acme bar"}, *queries)
}

func TestSearch_Limit(t *testing.T) {
	srv, _ := searchServer(t, http.StatusOK, resultsPage)
	got, err := NewSearcher(srv.URL, srv.Client()).Search(context.Background(), "q", 1)

	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestSearch_Throttled(t *testing.T) {
	srv, _ := searchServer(t, http.StatusTooManyRequests, "")
	_, err := NewSearcher(srv.URL, srv.Client()).Search(context.Background(), "q", 1)

	assert.ErrorIs(t, err, ai.ErrRateLimited)
}

func TestAnalyzer_IngredientsFromLabelSkipsSearch(t *testing.T) {
	srv, queries := searchServer(t, http.StatusOK, resultsPage)
	a := NewAnalyzer(NewSearcher(srv.URL, srv.Client()))

	got, err := a.Ingredients(context.Background(), ai.ProductContext{
		Name:          "Acme Bar",
		ExtractedText: analysis.ExtractedText{Ingredients: "Ingredients: oats, sodium nitrite"},
	})

	require.NoError(t, err)
	require.Len(t, got.Ingredients, 2)
	assert.Equal(t, analysis.SafetyHarmful, got.Ingredients[1].SafetyStatus)
	assert.Empty(t, *queries)
}

func TestAnalyzer_IngredientsFromSnippet(t *testing.T) {
	srv, queries := searchServer(t, http.StatusOK, resultsPage)
	a := NewAnalyzer(NewSearcher(srv.URL, srv.Client()))

	got, err := a.Ingredients(context.Background(), ai.ProductContext{Name: "Bar", Brand: "Acme"})

	require.NoError(t, err)
	var names []string
	for _, in := range got.Ingredients {
		names = append(names, in.Name)
	}
	assert.Equal(t, []string{"oats", "honey", "palm oil", "salt"}, names)
	assert.Equal(t, []string{`"Acme Bar" ingredients`}, *queries)
}

func TestAnalyzer_Composition(t *testing.T) {
	srv, _ := searchServer(t, http.StatusOK, resultsPage)
	a := NewAnalyzer(NewSearcher(srv.URL, srv.Client()))

	got, err := a.Composition(context.Background(), ai.ProductContext{Name: "Acme Bar"})

	require.NoError(t, err)
	assert.EqualValues(t, 190, got.Calories)
	assert.EqualValues(t, 4, got.TotalProtein)
}

func TestAnalyzer_Sentiment(t *testing.T) {
	srv, _ := searchServer(t, http.StatusOK, resultsPage)
	a := NewAnalyzer(NewSearcher(srv.URL, srv.Client()))

	got, err := a.Sentiment(context.Background(), ai.ProductContext{Name: "Acme Bar"})

	require.NoError(t, err)
	assert.Equal(t, 2, got.TotalMentions)
	assert.EqualValues(t, 2, got.AverageRating)
	assert.Equal(t, "reddit.com", got.Reviews[0].Source)
}

func TestAnalyzer_NoResults(t *testing.T) {
	srv, _ := searchServer(t, http.StatusOK, "<html><body></body></html>")
	a := NewAnalyzer(NewSearcher(srv.URL, srv.Client()))

	_, err := a.Sentiment(context.Background(), ai.ProductContext{Name: "Acme Bar"})
	assert.ErrorIs(t, err, ai.ErrNoResult)

	_, err = a.Ingredients(context.Background(), ai.ProductContext{})
	assert.ErrorIs(t, err, ai.ErrNoResult)
}
