package barcode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/jahnavitry-tech/ScanItKnowItprod/internal/domain/ai"
	"github.com/jahnavitry-tech/ScanItKnowItprod/internal/domain/analysis"
)

const (
	FoodBaseURL     = "https://world.openfoodfacts.org"
	CosmeticBaseURL = "https://world.openbeautyfacts.org"

	userAgent = "ScanItKnowIt/1.0 (product analysis service)"
	maxBody   = 2 << 20
)

// Client looks products up in an Open Food Facts compatible database.
type Client struct {
	name    string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewFoodClient queries Open Food Facts. An empty baseURL uses the public instance.
func NewFoodClient(baseURL string, hc *http.Client) *Client {
	if baseURL == "" {
		baseURL = FoodBaseURL
	}
	return newClient("food-db", baseURL, hc)
}

// NewCosmeticClient queries Open Beauty Facts.
func NewCosmeticClient(baseURL string, hc *http.Client) *Client {
	if baseURL == "" {
		baseURL = CosmeticBaseURL
	}
	return newClient("cosmetic-db", baseURL, hc)
}

func newClient(name, baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    hc,
		// product reads are limited to 100 per minute per client
		limiter: rate.NewLimiter(rate.Every(600*time.Millisecond), 5),
	}
}

func (c *Client) Name() string { return c.name }

type productResponse struct {
	Status  int `json:"status"`
	Product struct {
		Code        string         `json:"code"`
		ProductName string         `json:"product_name"`
		Brands      string         `json:"brands"`
		Categories  string         `json:"categories"`
		Ingredients string         `json:"ingredients_text"`
		Quantity    string         `json:"quantity"`
		Nutriments  map[string]any `json:"nutriments"`
	} `json:"product"`
}

// Lookup returns (nil, nil) when the database does not know code.
func (c *Client) Lookup(ctx context.Context, code string) (*ai.BarcodeProduct, error) {
	code = Normalize(code)
	if !Valid(code) {
		return nil, analysis.Invalidf("invalid barcode %q", code)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, ai.Unavailable(c.name, err)
	}

	url := fmt.Sprintf("%s/api/v2/product/%s.json", c.baseURL, code)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, ai.Unavailable(c.name, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, ai.RateLimited(c.name, fmt.Errorf("status %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return nil, ai.Unavailable(c.name, fmt.Errorf("status %d", resp.StatusCode))
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, ai.Unavailable(c.name, err)
	}
	var pr productResponse
	if err := json.Unmarshal(b, &pr); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", c.name, ai.ErrUnparseable, err)
	}
	if pr.Status != 1 || strings.TrimSpace(pr.Product.ProductName) == "" {
		return nil, nil
	}

	p := pr.Product
	out := &ai.BarcodeProduct{
		Code:        code,
		Name:        strings.TrimSpace(p.ProductName),
		Brand:       firstField(p.Brands),
		Categories:  p.Categories,
		Ingredients: strings.TrimSpace(p.Ingredients),
		Quantity:    strings.TrimSpace(p.Quantity),
		Nutriments:  map[string]float64{},
		Source:      c.name,
	}
	for k, v := range p.Nutriments {
		switch n := v.(type) {
		case float64:
			out.Nutriments[k] = n
		case string:
			if f, err := strconv.ParseFloat(n, 64); err == nil {
				out.Nutriments[k] = f
			}
		}
	}
	return out, nil
}

// firstField returns the first entry of a comma separated list.
func firstField(s string) string {
	if i := strings.IndexByte(s, ','); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
