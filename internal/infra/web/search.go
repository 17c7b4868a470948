// Package web grounds facet answers in public search results when no model
// is available.
package web

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"github.com/jahnavitry-tech/ScanItKnowItprod/internal/domain/ai"
)

const (
	DefaultSearchURL = "https://html.duckduckgo.com/html/"
	maxPage          = 1 << 20
	providerName     = "web"
)

// Result is one organic search hit.
type Result struct {
	Title   string
	URL     string
	Snippet string
}

// Searcher scrapes an HTML search results page.
type Searcher struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

func NewSearcher(baseURL string, hc *http.Client) *Searcher {
	if baseURL == "" {
		baseURL = DefaultSearchURL
	}
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	return &Searcher{baseURL: baseURL, http: hc, limiter: rate.NewLimiter(rate.Every(time.Second), 3)}
}

// Search returns at most limit results for query.
func (s *Searcher) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, ai.Unavailable(providerName, err)
	}
	u := s.baseURL + "?" + url.Values{"q": {query}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; ScanItKnowIt/1.0)")
	req.Header.Set("Accept", "text/html")

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, ai.Unavailable(providerName, err)
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, ai.RateLimited(providerName, fmt.Errorf("status %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return nil, ai.Unavailable(providerName, fmt.Errorf("status %d", resp.StatusCode))
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxPage))
	if err != nil {
		return nil, ai.Unavailable(providerName, err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", providerName, ai.ErrUnparseable, err)
	}

	var out []Result
	doc.Find(".result").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if sel.HasClass("result--ad") {
			return true
		}
		link := sel.Find(".result__a").First()
		r := Result{
			Title:   clean(link.Text()),
			URL:     resultURL(link.AttrOr("href", "")),
			Snippet: clean(sel.Find(".result__snippet").First().Text()),
		}
		if r.Title == "" && r.Snippet == "" {
			return true
		}
		out = append(out, r)
		return limit <= 0 || len(out) < limit
	})
	return out, nil
}

// resultURL unwraps the redirect links the results page uses.
func resultURL(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	if u.Scheme == "" && strings.HasPrefix(href, "//") {
		u.Scheme = "https"
	}
	return u.String()
}

func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func host(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.TrimPrefix(u.Host, "www.")
}
