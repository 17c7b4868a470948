package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appanalysis "github.com/jahnavitry-tech/ScanItKnowItprod/internal/application/analysis"
	appchat "github.com/jahnavitry-tech/ScanItKnowItprod/internal/application/chat"
	"github.com/jahnavitry-tech/ScanItKnowItprod/internal/domain/ai"
	domain "github.com/jahnavitry-tech/ScanItKnowItprod/internal/domain/analysis"
	"github.com/jahnavitry-tech/ScanItKnowItprod/internal/infra/db/memory"
	"github.com/jahnavitry-tech/ScanItKnowItprod/internal/infra/storage"
	"github.com/jahnavitry-tech/ScanItKnowItprod/internal/middleware"
)

type stubVision struct {
	cands []ai.Candidate
	err   error
}

func (s *stubVision) Name() string { return "openai" }
func (s *stubVision) Identify(context.Context, ai.Image) ([]ai.Candidate, error) {
	return s.cands, s.err
}

type stubAnalyzer struct{ calls atomic.Int32 }

func (s *stubAnalyzer) Name() string { return "openai" }
func (s *stubAnalyzer) Ingredients(context.Context, ai.ProductContext) (*domain.IngredientsData, error) {
	s.calls.Add(1)
	return &domain.IngredientsData{Ingredients: []domain.Ingredient{{Name: "oats", SafetyStatus: domain.SafetySafe}}}, nil
}
func (s *stubAnalyzer) Composition(context.Context, ai.ProductContext) (*domain.CompositionData, error) {
	s.calls.Add(1)
	return &domain.CompositionData{ProductCategory: "Food", CompositionalDetails: []domain.Detail{}}, nil
}
func (s *stubAnalyzer) Sentiment(context.Context, ai.ProductContext) (*domain.SentimentData, error) {
	s.calls.Add(1)
	return &domain.SentimentData{Pros: []string{"tasty"}, Cons: []string{}, Reviews: []domain.Review{}}, nil
}

type stubAnswerer struct{ calls atomic.Int32 }

func (s *stubAnswerer) Name() string { return "openai" }
func (s *stubAnswerer) Answer(_ context.Context, q string, _ ai.ChatContext) (string, error) {
	s.calls.Add(1)
	return "answer to " + q, nil
}

type brokenRepo struct{ *memory.Store }

func (brokenRepo) Create(context.Context, *domain.Record) error {
	return errors.New("db password rejected")
}
func (brokenRepo) Ping(context.Context) error { return errors.New("down") }

type fixture struct {
	srv      *httptest.Server
	store    *memory.Store
	vision   *stubVision
	analyzer *stubAnalyzer
	answerer *stubAnswerer
}

func newFixture(t *testing.T, maxUpload int64) *fixture {
	t.Helper()
	f := &fixture{
		store:    memory.New(),
		vision:   &stubVision{cands: []ai.Candidate{{ProductName: "Granola Bar", Summary: "A chewy oat bar."}}},
		analyzer: &stubAnalyzer{},
		answerer: &stubAnswerer{},
	}
	analysisSvc := &appanalysis.Service{
		Repo:    f.store,
		Images:  storage.DataURLStore{},
		Vision:  []ai.Identifier{f.vision},
		Primary: []ai.FacetAnalyzer{f.analyzer},
		Config:  appanalysis.Config{Timeout: time.Second, IdentifyTimeout: time.Second, Attempts: 1},
	}
	chatSvc := &appchat.Service{
		Records:   f.store,
		Repo:      f.store,
		Answerers: []ai.Answerer{f.answerer},
		Config:    appchat.Config{Timeout: time.Second, Attempts: 1},
	}
	f.srv = httptest.NewServer(NewRouter(Options{
		Analysis:       analysisSvc,
		Chat:           chatSvc,
		Health:         map[string]middleware.HealthChecker{"store": middleware.PingChecker{Pinger: f.store}},
		MaxUploadBytes: maxUpload,
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func uploadBody(t *testing.T, field string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="`+field+`"; filename="photo.png"`)
	h.Set("Content-Type", "image/png")
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func (f *fixture) upload(t *testing.T) []map[string]any {
	t.Helper()
	body, ct := uploadBody(t, "image", []byte("\x89PNG\r\n\x1a\nfake"))
	resp, err := http.Post(f.srv.URL+"/api/analyze-product", ct, body)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func postJSON(t *testing.T, url, body string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, buf.Bytes()
}

func getJSON(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, buf.Bytes()
}

func TestAnalyzeProduct_SingleProduct(t *testing.T) {
	f := newFixture(t, 0)

	out := f.upload(t)

	require.Len(t, out, 1)
	rec := out[0]
	assert.Equal(t, "Granola Bar", rec["productName"])
	assert.Equal(t, "A chewy oat bar.", rec["productSummary"])
	assert.Equal(t, false, rec["isFallbackMode"])
	assert.NotEmpty(t, rec["analysisId"])
	assert.True(t, strings.HasPrefix(rec["imageUrl"].(string), "data:image/png;base64,"))
	for _, k := range []string{"ingredientsData", "compositionData", "redditData"} {
		v, ok := rec[k]
		assert.True(t, ok, k)
		assert.Nil(t, v, k)
	}
}

func TestAnalyzeProduct_MissingImage(t *testing.T) {
	f := newFixture(t, 0)
	body, ct := uploadBody(t, "photo", []byte("data"))

	resp, err := http.Post(f.srv.URL+"/api/analyze-product", ct, body)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var e map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&e))
	assert.Equal(t, "image is required", e["error"])
}

func TestAnalyzeProduct_NotMultipart(t *testing.T) {
	f := newFixture(t, 0)

	resp, _ := postJSON(t, f.srv.URL+"/api/analyze-product", `{}`)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAnalyzeProduct_TooLarge(t *testing.T) {
	f := newFixture(t, 1024)
	body, ct := uploadBody(t, "image", bytes.Repeat([]byte("x"), 4096))

	resp, err := http.Post(f.srv.URL+"/api/analyze-product", ct, body)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestAnalyzeProduct_VisionDownStillSucceeds(t *testing.T) {
	f := newFixture(t, 0)
	f.vision.err = ai.Unavailable("openai", errors.New("overloaded"))

	out := f.upload(t)

	require.Len(t, out, 1)
	assert.Equal(t, appanalysis.PlaceholderName, out[0]["productName"])
	assert.Equal(t, true, out[0]["isFallbackMode"])
}

func TestAnalyzeProduct_StoreFailureIs500WithoutDetails(t *testing.T) {
	f := newFixture(t, 0)
	svc := &appanalysis.Service{
		Repo:   brokenRepo{f.store},
		Vision: []ai.Identifier{f.vision},
	}
	srv := httptest.NewServer(NewRouter(Options{Analysis: svc}))
	defer srv.Close()
	body, ct := uploadBody(t, "image", []byte("img"))

	resp, err := http.Post(srv.URL+"/api/analyze-product", ct, body)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	var e map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&e))
	assert.Equal(t, "internal error", e["error"])
}

func TestGetAnalysis(t *testing.T) {
	f := newFixture(t, 0)
	id := f.upload(t)[0]["analysisId"].(string)

	resp, body := getJSON(t, f.srv.URL+"/api/analysis/"+id)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"productName":"Granola Bar"`)

	resp, _ = getJSON(t, f.srv.URL+"/api/analysis/does-not-exist")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestFacetEndpoints_Memoized(t *testing.T) {
	f := newFixture(t, 0)
	id := f.upload(t)[0]["analysisId"].(string)

	for _, path := range []string{"/api/analyze-ingredients", "/api/analyze-composition", "/api/analyze-reddit"} {
		t.Run(path, func(t *testing.T) {
			resp1, first := postJSON(t, f.srv.URL+path, `{"analysisId":"`+id+`"}`)
			resp2, second := postJSON(t, f.srv.URL+path, `{"analysisId":"`+id+`"}`)

			assert.Equal(t, http.StatusOK, resp1.StatusCode)
			assert.Equal(t, http.StatusOK, resp2.StatusCode)
			assert.Equal(t, string(first), string(second))
		})
	}
	assert.EqualValues(t, 3, f.analyzer.calls.Load())

	_, rec := getJSON(t, f.srv.URL+"/api/analysis/"+id)
	assert.Contains(t, string(rec), `"ingredientsData":{"ingredients":[{"name":"oats"`)
}

func TestFacetEndpoints_Errors(t *testing.T) {
	f := newFixture(t, 0)

	resp, body := postJSON(t, f.srv.URL+"/api/analyze-ingredients", `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.JSONEq(t, `{"error":"analysisId is required"}`, string(body))

	resp, _ = postJSON(t, f.srv.URL+"/api/analyze-ingredients", `{"analysisId":`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = postJSON(t, f.srv.URL+"/api/analyze-composition", `{"analysisId":"unknown"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRecompute(t *testing.T) {
	f := newFixture(t, 0)
	id := f.upload(t)[0]["analysisId"].(string)

	resp, _ := postJSON(t, f.srv.URL+"/api/analysis/"+id+"/facets/composition/recompute", ``)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = postJSON(t, f.srv.URL+"/api/analysis/"+id+"/facets/composition/recompute", ``)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 2, f.analyzer.calls.Load())

	resp, _ = postJSON(t, f.srv.URL+"/api/analysis/"+id+"/facets/price/recompute", ``)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestChat(t *testing.T) {
	f := newFixture(t, 0)
	id := f.upload(t)[0]["analysisId"].(string)

	resp, body := postJSON(t, f.srv.URL+"/api/chat/"+id, `{"message":"is this healthy?"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var m map[string]any
	require.NoError(t, json.Unmarshal(body, &m))
	assert.Equal(t, "is this healthy?", m["message"])
	assert.Equal(t, "answer to is this healthy?", m["response"])
	assert.NotEmpty(t, m["timestamp"])

	_, _ = postJSON(t, f.srv.URL+"/api/chat/"+id, `{"message":"any nuts?"}`)
	resp, body = getJSON(t, f.srv.URL+"/api/chat/"+id)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var history []map[string]any
	require.NoError(t, json.Unmarshal(body, &history))
	require.Len(t, history, 2)
	assert.Equal(t, "is this healthy?", history[0]["message"])
	assert.Equal(t, "any nuts?", history[1]["message"])

	resp, _ = postJSON(t, f.srv.URL+"/api/chat/"+id, `{"message":""}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp, _ = getJSON(t, f.srv.URL+"/api/chat/unknown")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestChat_DegradedRecordGetsFixedReply(t *testing.T) {
	f := newFixture(t, 0)
	f.vision.err = ai.Unavailable("openai", errors.New("overloaded"))
	id := f.upload(t)[0]["analysisId"].(string)

	resp, body := postJSON(t, f.srv.URL+"/api/chat/"+id, `{"message":"is this healthy?"}`)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), appchat.UnavailableReply)
	assert.Zero(t, f.answerer.calls.Load())
}

func TestHealthAndMetrics(t *testing.T) {
	f := newFixture(t, 0)

	for _, path := range []string{"/health", "/ready", "/live", "/metrics"} {
		resp, _ := getJSON(t, f.srv.URL+path)
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}

func TestHealth_StoreDown(t *testing.T) {
	srv := httptest.NewServer(NewRouter(Options{
		Health: map[string]middleware.HealthChecker{"store": middleware.PingChecker{Pinger: brokenRepo{memory.New()}}},
	}))
	defer srv.Close()

	resp, body := getJSON(t, srv.URL+"/health")

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.NotContains(t, string(body), "down")
}
