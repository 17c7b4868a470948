package ai

import (
	"context"
	"encoding/base64"

	"github.com/jahnavitry-tech/ScanItKnowItprod/internal/domain/analysis"
)

// Image is an uploaded photo.
type Image struct {
	Data     []byte
	MimeType string
}

// DataURL encodes the image as a data: URL.
func (i Image) DataURL() string {
	mime := i.MimeType
	if mime == "" {
		mime = "image/jpeg"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(i.Data)
}

// Candidate is one product detected in an image.
type Candidate struct {
	ProductName   string                 `json:"productName" validate:"required"`
	ExtractedText analysis.ExtractedText `json:"extractedText"`
	Summary       string                 `json:"summary"`
	// Barcode is only known on the OCR/barcode fallback path.
	Barcode string `json:"-"`
}

// Identifier port (Vision-Identify)
type Identifier interface {
	Name() string
	Identify(ctx context.Context, img Image) ([]Candidate, error)
}

// TextBlock is an OCR block with its overlay polygon.
type TextBlock struct {
	Text       string       `json:"text"`
	Confidence float64      `json:"confidence"`
	Vertices   [][2]float64 `json:"vertices,omitempty"`
}

// OCRResult is best-effort transcribed text.
type OCRResult struct {
	Text   string      `json:"text"`
	Blocks []TextBlock `json:"blocks,omitempty"`
}

// TextExtractor port (OCR-Extract)
type TextExtractor interface {
	ExtractText(ctx context.Context, img Image) (*OCRResult, error)
}

// TextIdentifier identifies products from label text transcribed by OCR.
// It returns ErrNoResult when the text is not enough to name a product.
type TextIdentifier interface {
	Name() string
	IdentifyText(ctx context.Context, text string) ([]Candidate, error)
}

// BarcodeProduct is a product record from a barcode database.
type BarcodeProduct struct {
	Code        string
	Name        string
	Brand       string
	Categories  string
	Ingredients string
	Quantity    string
	Nutriments  map[string]float64
	Source      string
}

// BarcodeLookup port. Lookup returns (nil, nil) when the code is unknown.
type BarcodeLookup interface {
	Name() string
	Lookup(ctx context.Context, code string) (*BarcodeProduct, error)
}

// ProductContext is what facet analyzers know about a product.
type ProductContext struct {
	AnalysisID    analysis.ID
	Name          string
	Brand         string
	Summary       string
	ExtractedText analysis.ExtractedText
	Barcode       string
}

// ContextFromRecord builds a ProductContext from a stored record.
func ContextFromRecord(r *analysis.Record) ProductContext {
	return ProductContext{
		AnalysisID:    r.ID,
		Name:          r.ProductName,
		Brand:         r.ExtractedText.Brand,
		Summary:       r.ProductSummary,
		ExtractedText: r.ExtractedText,
		Barcode:       r.Barcode,
	}
}

// FacetAnalyzer port (Ingredient-Safety, Composition and Sentiment lookups).
type FacetAnalyzer interface {
	Name() string
	Ingredients(ctx context.Context, p ProductContext) (*analysis.IngredientsData, error)
	Composition(ctx context.Context, p ProductContext) (*analysis.CompositionData, error)
	Sentiment(ctx context.Context, p ProductContext) (*analysis.SentimentData, error)
}

// Turn is a previous question/answer pair.
type Turn struct {
	Question string
	Answer   string
}

// ChatContext seeds a Conversational-QA call.
type ChatContext struct {
	Product ProductContext
	// IngredientsJSON is the ingredients facet when it has been computed.
	IngredientsJSON string
	History         []Turn
}

// Answerer port (Conversational-QA)
type Answerer interface {
	Name() string
	Answer(ctx context.Context, question string, c ChatContext) (string, error)
}
