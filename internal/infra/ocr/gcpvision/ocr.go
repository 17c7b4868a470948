// Package gcpvision extracts label text from product photos with Cloud Vision
// DOCUMENT_TEXT_DETECTION.
package gcpvision

import (
	"context"
	"fmt"
	"strings"

	vision "cloud.google.com/go/vision/v2/apiv1"
	visionpb "cloud.google.com/go/vision/v2/apiv1/visionpb"
	gax "github.com/googleapis/gax-go/v2"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/jahnavitry-tech/ScanItKnowItprod/internal/domain/ai"
	"github.com/jahnavitry-tech/ScanItKnowItprod/internal/logger"
)

const providerName = "gcp_vision"

// annotator is the subset of *vision.ImageAnnotatorClient the OCR uses.
type annotator interface {
	BatchAnnotateImages(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest, opts ...gax.CallOption) (*visionpb.BatchAnnotateImagesResponse, error)
	Close() error
}

var _ annotator = (*vision.ImageAnnotatorClient)(nil)

// OCR implements ai.TextExtractor.
type OCR struct {
	log    *logger.Logger
	client annotator
}

// ClientOptions turns a credentials setting into client options. A value
// starting with "{" is inline service account JSON, anything else a file path.
// Empty means application default credentials.
func ClientOptions(creds string) []option.ClientOption {
	creds = strings.TrimSpace(creds)
	opts := []option.ClientOption{}
	if creds == "" {
		return opts
	}
	if strings.HasPrefix(creds, "{") {
		opts = append(opts, option.WithCredentialsJSON([]byte(creds)))
	} else {
		opts = append(opts, option.WithCredentialsFile(creds))
	}
	return opts
}

func New(ctx context.Context, log *logger.Logger, opts ...option.ClientOption) (*OCR, error) {
	c, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("vision client: %w", err)
	}
	return &OCR{log: logger.OrNop(log).With("service", "gcpvision.OCR"), client: c}, nil
}

func (o *OCR) Close() error {
	if o == nil || o.client == nil {
		return nil
	}
	return o.client.Close()
}

func (o *OCR) ExtractText(ctx context.Context, img ai.Image) (*ai.OCRResult, error) {
	if o == nil || o.client == nil {
		return nil, fmt.Errorf("%s: %w", providerName, ai.ErrNotConfigured)
	}
	if len(img.Data) == 0 {
		return &ai.OCRResult{}, nil
	}

	req := &visionpb.BatchAnnotateImagesRequest{Requests: []*visionpb.AnnotateImageRequest{{
		Image: &visionpb.Image{Content: img.Data},
		Features: []*visionpb.Feature{
			{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION},
		},
	}}}
	resp, err := o.client.BatchAnnotateImages(ctx, req)
	if err != nil {
		return nil, classify(err)
	}
	if resp == nil || len(resp.Responses) == 0 || resp.Responses[0] == nil {
		return &ai.OCRResult{}, nil
	}

	r0 := resp.Responses[0]
	if r0.Error != nil && r0.Error.Message != "" {
		if codes.Code(r0.Error.Code) == codes.ResourceExhausted {
			return nil, ai.RateLimited(providerName, fmt.Errorf("annotate: %s", r0.Error.Message))
		}
		return nil, ai.Unavailable(providerName, fmt.Errorf("annotate: %s", r0.Error.Message))
	}

	fta := r0.FullTextAnnotation
	if fta == nil || strings.TrimSpace(fta.Text) == "" {
		return &ai.OCRResult{}, nil
	}

	out := &ai.OCRResult{Text: strings.TrimSpace(fta.Text)}
	for _, pg := range fta.Pages {
		if pg == nil {
			continue
		}
		for _, b := range pg.Blocks {
			if b == nil {
				continue
			}
			out.Blocks = append(out.Blocks, ai.TextBlock{
				Text:       blockText(b),
				Confidence: float64(b.Confidence),
				Vertices:   vertices(b.BoundingBox),
			})
		}
	}
	o.log.Debug("ocr extracted", "chars", len(out.Text), "blocks", len(out.Blocks))
	return out, nil
}

func classify(err error) error {
	switch status.Code(err) {
	case codes.ResourceExhausted:
		return ai.RateLimited(providerName, err)
	case codes.Unauthenticated, codes.PermissionDenied:
		return fmt.Errorf("%s: %w: %w", providerName, ai.ErrNotConfigured, err)
	}
	return ai.Unavailable(providerName, err)
}

func blockText(b *visionpb.Block) string {
	var sb strings.Builder
	for _, p := range b.Paragraphs {
		if p == nil {
			continue
		}
		for _, w := range p.Words {
			if w == nil {
				continue
			}
			if sb.Len() > 0 {
				sb.WriteByte(' ')
			}
			for _, s := range w.Symbols {
				if s != nil {
					sb.WriteString(s.Text)
				}
			}
		}
	}
	return sb.String()
}

func vertices(bp *visionpb.BoundingPoly) [][2]float64 {
	if bp == nil {
		return nil
	}
	if len(bp.NormalizedVertices) > 0 {
		out := make([][2]float64, 0, len(bp.NormalizedVertices))
		for _, v := range bp.NormalizedVertices {
			if v == nil {
				continue
			}
			out = append(out, [2]float64{float64(v.X), float64(v.Y)})
		}
		return out
	}
	out := make([][2]float64, 0, len(bp.Vertices))
	for _, v := range bp.Vertices {
		if v == nil {
			continue
		}
		out = append(out, [2]float64{float64(v.X), float64(v.Y)})
	}
	return out
}
