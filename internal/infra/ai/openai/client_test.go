package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jahnavitry-tech/ScanItKnowItprod/internal/domain/ai"
)

func completionServer(t *testing.T, status int, content string) (*httptest.Server, *[]string) {
	t.Helper()
	var bodies []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(b))
		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"message":"slow down","type":"requests","code":"rate_limit_exceeded"}}`))
			return
		}
		resp := map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   "gpt-4o-mini",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv, &bodies
}

func TestIdentify_MultipleProducts(t *testing.T) {
	srv, bodies := completionServer(t, http.StatusOK, `{"products":[
		{"productName":"Granola Bar","extractedText":{"ingredients":"oats, honey","nutrition":"190 kcal","brand":"Acme"},"summary":"A snack bar."},
		{"productName":"Sparkling Water","extractedText":{"ingredients":"","nutrition":"","brand":"Fizz"},"summary":"Water."}]}`)
	c := NewClientWithBaseURL("test-key", "gpt-4o-mini", srv.URL+"/v1")

	got, err := c.Identify(context.Background(), ai.Image{Data: []byte("png"), MimeType: "image/png"})

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Granola Bar", got[0].ProductName)
	assert.Equal(t, "Acme", got[0].ExtractedText.Brand)
	require.Len(t, *bodies, 1)
	assert.Contains(t, (*bodies)[0], "data:image/png;base64,")
	assert.Contains(t, (*bodies)[0], `"json_object"`)
}

func TestIdentify_UnparseableReply(t *testing.T) {
	srv, _ := completionServer(t, http.StatusOK, "Sorry, I can't see any product here.")
	c := NewClientWithBaseURL("test-key", "", srv.URL+"/v1")

	_, err := c.Identify(context.Background(), ai.Image{Data: []byte("x")})

	assert.ErrorIs(t, err, ai.ErrUnparseable)
}

func TestComplete_RateLimited(t *testing.T) {
	srv, _ := completionServer(t, http.StatusTooManyRequests, "")
	c := NewClientWithBaseURL("test-key", "", srv.URL+"/v1")

	_, err := c.Sentiment(context.Background(), ai.ProductContext{Name: "Granola Bar"})

	assert.ErrorIs(t, err, ai.ErrRateLimited)
	assert.ErrorIs(t, err, ai.ErrUnavailable)
}

func TestComplete_ServerErrorIsUnavailable(t *testing.T) {
	srv, _ := completionServer(t, http.StatusServiceUnavailable, "")
	c := NewClientWithBaseURL("test-key", "", srv.URL+"/v1")

	_, err := c.Composition(context.Background(), ai.ProductContext{Name: "Granola Bar"})

	assert.ErrorIs(t, err, ai.ErrUnavailable)
	assert.NotErrorIs(t, err, ai.ErrRateLimited)
}

func TestMissingKeyFailsFast(t *testing.T) {
	c := NewClient("", "")

	_, err := c.Ingredients(context.Background(), ai.ProductContext{Name: "x"})

	assert.ErrorIs(t, err, ai.ErrNotConfigured)
}

func TestAnswer_SendsHistoryAndContext(t *testing.T) {
	srv, bodies := completionServer(t, http.StatusOK, "  It is fairly healthy.  ")
	c := NewClientWithBaseURL("test-key", "", srv.URL+"/v1")

	answer, err := c.Answer(context.Background(), "is this healthy?", ai.ChatContext{
		Product:         ai.ProductContext{Name: "Granola Bar"},
		IngredientsJSON: `{"ingredients":[]}`,
		History:         []ai.Turn{{Question: "what is it?", Answer: "a snack"}},
	})

	require.NoError(t, err)
	assert.Equal(t, "It is fairly healthy.", answer)
	body := (*bodies)[0]
	assert.True(t, strings.Contains(body, "what is it?") && strings.Contains(body, "Granola Bar"))
	assert.NotContains(t, body, "json_object")
}
