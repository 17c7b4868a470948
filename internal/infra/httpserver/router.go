package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	appanalysis "github.com/jahnavitry-tech/ScanItKnowItprod/internal/application/analysis"
	appchat "github.com/jahnavitry-tech/ScanItKnowItprod/internal/application/chat"
	"github.com/jahnavitry-tech/ScanItKnowItprod/internal/domain/ai"
	domain "github.com/jahnavitry-tech/ScanItKnowItprod/internal/domain/analysis"
	"github.com/jahnavitry-tech/ScanItKnowItprod/internal/infra/storage"
	"github.com/jahnavitry-tech/ScanItKnowItprod/internal/logger"
	"github.com/jahnavitry-tech/ScanItKnowItprod/internal/middleware"
)

const (
	DefaultMaxUploadBytes = 32 << 20
	multipartMemory       = 8 << 20
)

// Options wires the router. Nil RateLimiter disables rate limiting.
type Options struct {
	Analysis       *appanalysis.Service
	Chat           *appchat.Service
	Health         map[string]middleware.HealthChecker
	RateLimiter    *middleware.RateLimiter
	AllowedOrigins []string
	MaxUploadBytes int64
	Log            *logger.Logger
}

type Router struct {
	analysisSvc *appanalysis.Service
	chatSvc     *appchat.Service
	maxUpload   int64
	log         *logger.Logger
}

func NewRouter(opts Options) http.Handler {
	r := &Router{
		analysisSvc: opts.Analysis,
		chatSvc:     opts.Chat,
		maxUpload:   opts.MaxUploadBytes,
		log:         logger.OrNop(opts.Log),
	}
	if r.maxUpload <= 0 {
		r.maxUpload = DefaultMaxUploadBytes
	}
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	mux := chi.NewRouter()
	mux.Use(
		chimw.RequestID,
		chimw.RealIP,
		middleware.RequestLogger(r.log),
		chimw.Recoverer,
		middleware.Metrics,
		cors.Handler(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
			MaxAge:         300,
		}),
	)

	health := middleware.HealthHandler(opts.Health, r.log)
	mux.Get("/health", health)
	mux.Get("/ready", health)
	mux.Get("/live", middleware.LivenessHandler)
	mux.Handle("/metrics", middleware.MetricsHandler())

	mux.Route("/api", func(rt chi.Router) {
		if opts.RateLimiter != nil {
			rt.Use(opts.RateLimiter.Handler)
		}
		rt.Post("/analyze-product", r.wrap(r.handleAnalyzeProduct))
		rt.Get("/analysis/{analysisId}", r.wrap(r.handleGetAnalysis))
		rt.Post("/analyze-ingredients", r.wrap(r.handleFacet(domain.FacetIngredients)))
		rt.Post("/analyze-composition", r.wrap(r.handleFacet(domain.FacetComposition)))
		rt.Post("/analyze-reddit", r.wrap(r.handleFacet(domain.FacetReddit)))
		rt.Post("/analysis/{analysisId}/facets/{facet}/recompute", r.wrap(r.handleRecompute))
		rt.Post("/chat/{analysisId}", r.wrap(r.handlePostChat))
		rt.Get("/chat/{analysisId}", r.wrap(r.handleGetChat))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// wrap maps use-case errors to status codes. Internal error text never
// reaches the client.
func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}
		switch {
		case tooLarge(err):
			middleware.WriteError(w, http.StatusRequestEntityTooLarge, "upload too large")
		case errors.Is(err, domain.ErrInvalidInput):
			middleware.WriteError(w, http.StatusBadRequest, clientMessage(err))
		case errors.Is(err, domain.ErrNotFound):
			middleware.WriteError(w, http.StatusNotFound, "analysis not found")
		default:
			r.log.Error("request failed",
				"method", req.Method,
				"path", req.URL.Path,
				"request_id", chimw.GetReqID(req.Context()),
				"error", err)
			middleware.WriteError(w, http.StatusInternalServerError, "internal error")
		}
	}
}

func tooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe) || strings.Contains(err.Error(), "request body too large")
}

func clientMessage(err error) string {
	msg := err.Error()
	if i := strings.Index(msg, domain.ErrInvalidInput.Error()+": "); i >= 0 {
		return msg[i+len(domain.ErrInvalidInput.Error())+2:]
	}
	return domain.ErrInvalidInput.Error()
}

//
// ==== VIEWS ====
//

// recordView is the client shape of a record; the client calls the degraded flag isFallbackMode.
type recordView struct {
	AnalysisID      domain.ID            `json:"analysisId"`
	ProductName     string               `json:"productName"`
	ProductSummary  string               `json:"productSummary"`
	ExtractedText   domain.ExtractedText `json:"extractedText"`
	ImageURL        *string              `json:"imageUrl"`
	IsFallbackMode  bool                 `json:"isFallbackMode"`
	Barcode         string               `json:"barcode,omitempty"`
	IngredientsData json.RawMessage      `json:"ingredientsData"`
	CompositionData json.RawMessage      `json:"compositionData"`
	RedditData      json.RawMessage      `json:"redditData"`
	CreatedAt       time.Time            `json:"createdAt"`
}

func viewOf(rec *domain.Record) recordView {
	return recordView{
		AnalysisID:      rec.ID,
		ProductName:     rec.ProductName,
		ProductSummary:  rec.ProductSummary,
		ExtractedText:   rec.ExtractedText,
		ImageURL:        rec.ImageURL,
		IsFallbackMode:  rec.IsDegradedMode,
		Barcode:         rec.Barcode,
		IngredientsData: rec.IngredientsData,
		CompositionData: rec.CompositionData,
		RedditData:      rec.RedditData,
		CreatedAt:       rec.CreatedAt,
	}
}

//
// ==== HANDLERS ====
//

// POST /api/analyze-product
// Body: multipart form, field "image"
func (r *Router) handleAnalyzeProduct(w http.ResponseWriter, req *http.Request) error {
	req.Body = http.MaxBytesReader(w, req.Body, r.maxUpload)
	if err := req.ParseMultipartForm(multipartMemory); err != nil {
		if tooLarge(err) {
			return err
		}
		return domain.Invalidf("image is required")
	}
	defer func() { _ = req.MultipartForm.RemoveAll() }()

	file, header, err := req.FormFile("image")
	if err != nil {
		return domain.Invalidf("image is required")
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return domain.Invalidf("image is required")
	}

	mime := header.Header.Get("Content-Type")
	if !strings.HasPrefix(mime, "image/") {
		mime = storage.DetectContentType(data)
	}

	recs, err := r.analysisSvc.CreateFromImage(req.Context(), ai.Image{Data: data, MimeType: mime})
	if err != nil {
		return err
	}
	views := make([]recordView, 0, len(recs))
	for _, rec := range recs {
		views = append(views, viewOf(rec))
	}
	middleware.WriteJSON(w, http.StatusOK, views)
	return nil
}

// GET /api/analysis/{analysisId}
func (r *Router) handleGetAnalysis(w http.ResponseWriter, req *http.Request) error {
	id, err := pathID(req)
	if err != nil {
		return err
	}
	rec, err := r.analysisSvc.GetRecord(req.Context(), id)
	if err != nil {
		return err
	}
	middleware.WriteJSON(w, http.StatusOK, viewOf(rec))
	return nil
}

type facetRequest struct {
	AnalysisID string `json:"analysisId" validate:"required,analysisid"`
}

// POST /api/analyze-{ingredients,composition,reddit}
// Body: {"analysisId": "<id>"}
func (r *Router) handleFacet(f domain.Facet) handlerFunc {
	return func(w http.ResponseWriter, req *http.Request) error {
		var body facetRequest
		if err := middleware.DecodeJSON(w, req, &body); err != nil {
			return err
		}
		data, err := r.analysisSvc.EnsureFacet(req.Context(), domain.ID(body.AnalysisID), f)
		if err != nil {
			return err
		}
		writeRaw(w, data)
		return nil
	}
}

// POST /api/analysis/{analysisId}/facets/{facet}/recompute
func (r *Router) handleRecompute(w http.ResponseWriter, req *http.Request) error {
	id, err := pathID(req)
	if err != nil {
		return err
	}
	f, err := domain.ParseFacet(chi.URLParam(req, "facet"))
	if err != nil {
		return err
	}
	data, err := r.analysisSvc.RecomputeFacet(req.Context(), id, f)
	if err != nil {
		return err
	}
	writeRaw(w, data)
	return nil
}

type chatRequest struct {
	Message string `json:"message" validate:"required"`
}

// POST /api/chat/{analysisId}
// Body: {"message": "..."}
func (r *Router) handlePostChat(w http.ResponseWriter, req *http.Request) error {
	id, err := pathID(req)
	if err != nil {
		return err
	}
	var body chatRequest
	if err := middleware.DecodeJSON(w, req, &body); err != nil {
		return err
	}
	m, err := r.chatSvc.PostMessage(req.Context(), id, middleware.SanitizeString(body.Message))
	if err != nil {
		return err
	}
	middleware.WriteJSON(w, http.StatusOK, m)
	return nil
}

// GET /api/chat/{analysisId}
func (r *Router) handleGetChat(w http.ResponseWriter, req *http.Request) error {
	id, err := pathID(req)
	if err != nil {
		return err
	}
	msgs, err := r.chatSvc.GetHistory(req.Context(), id)
	if err != nil {
		return err
	}
	middleware.WriteJSON(w, http.StatusOK, msgs)
	return nil
}

func pathID(req *http.Request) (domain.ID, error) {
	id := chi.URLParam(req, "analysisId")
	if !middleware.ValidAnalysisID(id) {
		return "", domain.Invalidf("analysisId is invalid")
	}
	return domain.ID(id), nil
}

func writeRaw(w http.ResponseWriter, data json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
