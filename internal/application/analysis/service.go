// Package analysis implements the analysis use cases: identifying products in
// an uploaded image and filling the facets of an analysis record on demand.
package analysis

import (
	"context"
	"fmt"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/jahnavitry-tech/ScanItKnowItprod/internal/application"
	"github.com/jahnavitry-tech/ScanItKnowItprod/internal/application/fallback"
	"github.com/jahnavitry-tech/ScanItKnowItprod/internal/domain/ai"
	domain "github.com/jahnavitry-tech/ScanItKnowItprod/internal/domain/analysis"
	"github.com/jahnavitry-tech/ScanItKnowItprod/internal/logger"
	"github.com/jahnavitry-tech/ScanItKnowItprod/internal/metrics"
)

const (
	// PlaceholderName is the product name of the candidate created when no
	// identification strategy succeeded.
	PlaceholderName    = "Unknown product"
	placeholderSummary = "We could not determine what this product is. Try another photo with the label clearly visible."
	placeholderBy      = "placeholder"
)

// Config tunes the fallback chains.
type Config struct {
	// Timeout bounds one facet strategy attempt.
	Timeout time.Duration
	// IdentifyTimeout bounds one identification strategy attempt.
	IdentifyTimeout time.Duration
	Attempts        int
	Backoff         time.Duration
}

func DefaultConfig() Config {
	return Config{
		Timeout:         30 * time.Second,
		IdentifyTimeout: 45 * time.Second,
		Attempts:        2,
		Backoff:         500 * time.Millisecond,
	}
}

// Service implements the analysis record use-cases.
// Service is safe for concurrent use; a Service must not be copied after first use.
type Service struct {
	Repo   domain.Repository
	Images domain.ImageStore

	// Vision identifiers are the primary path, tried in order.
	Vision []ai.Identifier
	// OCR feeds TextIdentifiers once the vision path failed.
	OCR             ai.TextExtractor
	TextIdentifiers []ai.TextIdentifier

	// Primary analyzers are AI-grounded and never used for degraded records.
	Primary   []ai.FacetAnalyzer
	BarcodeDB ai.FacetAnalyzer
	Web       ai.FacetAnalyzer

	Clock  application.Clock
	Config Config
	Log    *logger.Logger
	NewID  func() string

	flight singleflight.Group
}

//
// ==== USE CASES ====
//

// CreateFromImage identifies the products in img and creates one record per
// candidate. It always yields at least one record unless the store fails.
func (s *Service) CreateFromImage(ctx context.Context, img ai.Image) ([]*domain.Record, error) {
	if len(img.Data) == 0 {
		return nil, domain.Invalidf("image is required")
	}
	uploadID := s.newID()
	log := s.log().With("upload", uploadID)

	var (
		imageURL *string
		out      fallback.Outcome[[]ai.Candidate]
		g        errgroup.Group
	)
	g.Go(func() error {
		u, err := s.storeImage(ctx, uploadID, img)
		if err != nil {
			return err
		}
		imageURL = u
		return nil
	})
	g.Go(func() error {
		out = s.identify(ctx, img, log)
		return nil
	})
	if err := g.Wait(); err != nil {
		log.Warn("image not stored, records will have no image url", "error", err)
	}

	degraded := out.Defaulted || !s.isVision(out.Strategy)
	by := out.Strategy
	if out.Defaulted {
		by = placeholderBy
	}
	now := application.OrSystem(s.Clock).Now()

	records := make([]*domain.Record, 0, len(out.Value))
	var lastErr error
	for _, c := range out.Value {
		r := &domain.Record{
			ID:             domain.ID(s.newID()),
			ProductName:    strings.TrimSpace(c.ProductName),
			ProductSummary: c.Summary,
			ExtractedText:  c.ExtractedText,
			ImageURL:       imageURL,
			IsDegradedMode: degraded,
			Barcode:        c.Barcode,
			IdentifiedBy:   by,
			CreatedAt:      now,
		}
		if r.ProductName == "" {
			r.ProductName = PlaceholderName
		}
		if err := s.Repo.Create(ctx, r); err != nil {
			lastErr = err
			log.Error("create analysis record", "analysis", r.ID, "error", err)
			continue
		}
		records = append(records, s.linked(ctx, r))
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("persist analysis records: %w", lastErr)
	}

	metrics.RecordsCreated.WithLabelValues(strconv.FormatBool(degraded)).Add(float64(len(records)))
	log.Info("analysis records created", "count", len(records), "identified_by", by, "degraded", degraded)
	return records, nil
}

// GetRecord returns domain.ErrNotFound for unknown ids.
func (s *Service) GetRecord(ctx context.Context, id domain.ID) (*domain.Record, error) {
	rec, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.linked(ctx, rec), nil
}

// linked returns a copy of rec whose image reference is resolved to a
// fetchable URL. The stored reference never changes.
func (s *Service) linked(ctx context.Context, rec *domain.Record) *domain.Record {
	linker, ok := s.Images.(domain.ImageLinker)
	if !ok || rec.ImageURL == nil {
		return rec
	}
	out := rec.Clone()
	u, err := linker.Link(ctx, *rec.ImageURL)
	if err != nil {
		s.log().Warn("image link failed", "analysis", rec.ID, "error", err)
		out.ImageURL = nil
		return out
	}
	out.ImageURL = &u
	return out
}

//
// ==== IDENTIFICATION ====
//

func (s *Service) identify(ctx context.Context, img ai.Image, log *logger.Logger) fallback.Outcome[[]ai.Candidate] {
	strategies := make([]fallback.Strategy[[]ai.Candidate], 0, len(s.Vision)+len(s.TextIdentifiers))
	for _, v := range s.Vision {
		strategies = append(strategies, fallback.Strategy[[]ai.Candidate]{
			Name: v.Name(),
			Run: func(ctx context.Context) ([]ai.Candidate, error) {
				return v.Identify(ctx, img)
			},
		})
	}

	label := &labelText{ocr: s.OCR, img: img, log: log}
	for _, t := range s.TextIdentifiers {
		strategies = append(strategies, fallback.Strategy[[]ai.Candidate]{
			Name: t.Name(),
			Run: func(ctx context.Context) ([]ai.Candidate, error) {
				text, err := label.get(ctx)
				if err != nil {
					return nil, err
				}
				return t.IdentifyText(ctx, text)
			},
		})
	}

	chain := fallback.Chain[[]ai.Candidate]{
		Task:       "identify",
		Strategies: strategies,
		Default:    placeholderCandidates,
		Usable:     func(c []ai.Candidate) bool { return len(c) > 0 },
		Config:     s.chainConfig(s.Config.IdentifyTimeout),
		Log:        log,
	}
	return chain.Resolve(ctx)
}

func (s *Service) isVision(strategy string) bool {
	for _, v := range s.Vision {
		if v.Name() == strategy {
			return true
		}
	}
	return false
}

func placeholderCandidates() []ai.Candidate {
	return []ai.Candidate{{ProductName: PlaceholderName, Summary: placeholderSummary}}
}

// labelText runs OCR at most once per upload and shares the text between
// the text identifiers.
type labelText struct {
	ocr ai.TextExtractor
	img ai.Image
	log *logger.Logger

	once sync.Once
	text string
	err  error
}

func (l *labelText) get(ctx context.Context) (string, error) {
	l.once.Do(func() {
		if l.ocr == nil {
			l.err = fmt.Errorf("ocr: %w", ai.ErrNotConfigured)
			return
		}
		res, err := l.ocr.ExtractText(ctx, l.img)
		switch {
		case err != nil:
			l.log.Warn("ocr failed", "error", err)
			// OCR is not retried per text identifier; they all see absence.
			l.err = fmt.Errorf("ocr: %w: %w", ai.ErrNoResult, err)
		case res == nil || strings.TrimSpace(res.Text) == "":
			l.err = fmt.Errorf("ocr: %w: no text on image", ai.ErrNoResult)
		default:
			l.text = res.Text
		}
	})
	return l.text, l.err
}

//
// ==== HELPERS ====
//

func (s *Service) storeImage(ctx context.Context, uploadID string, img ai.Image) (*string, error) {
	if s.Images == nil {
		return nil, nil
	}
	key := path.Join("uploads", uploadID+extension(img.MimeType))
	u, err := s.Images.Put(ctx, key, img.Data, img.MimeType)
	if err != nil {
		return nil, fmt.Errorf("store image %s: %w", key, err)
	}
	return &u, nil
}

func extension(mime string) string {
	switch mime {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	case "image/heic":
		return ".heic"
	}
	return ".jpg"
}

func (s *Service) chainConfig(timeout time.Duration) fallback.Config {
	return fallback.Config{
		Timeout:  timeout,
		Attempts: s.Config.Attempts,
		Backoff:  s.Config.Backoff,
	}
}

func (s *Service) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.NewString()
}

func (s *Service) log() *logger.Logger {
	return logger.OrNop(s.Log)
}
