package gcpvision

import (
	"context"
	"errors"
	"testing"

	vision "cloud.google.com/go/vision/v2/apiv1"
	visionpb "cloud.google.com/go/vision/v2/apiv1/visionpb"
	gax "github.com/googleapis/gax-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	statuspb "google.golang.org/genproto/googleapis/rpc/status"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/jahnavitry-tech/ScanItKnowItprod/internal/domain/ai"
)

type fakeAnnotator struct {
	resp *visionpb.BatchAnnotateImagesResponse
	err  error
	got  *visionpb.BatchAnnotateImagesRequest
}

func (f *fakeAnnotator) BatchAnnotateImages(_ context.Context, req *visionpb.BatchAnnotateImagesRequest, _ ...gax.CallOption) (*visionpb.BatchAnnotateImagesResponse, error) {
	f.got = req
	return f.resp, f.err
}

func (f *fakeAnnotator) Close() error { return nil }

func TestVisionClientSatisfiesAnnotator(t *testing.T) {
	assert.Implements(t, (*annotator)(nil), new(vision.ImageAnnotatorClient))
}

func word(s string) *visionpb.Word {
	w := &visionpb.Word{}
	for _, r := range s {
		w.Symbols = append(w.Symbols, &visionpb.Symbol{Text: string(r)})
	}
	return w
}

func TestExtractText_CollectsBlocks(t *testing.T) {
	fake := &fakeAnnotator{resp: &visionpb.BatchAnnotateImagesResponse{
		Responses: []*visionpb.AnnotateImageResponse{{
			FullTextAnnotation: &visionpb.TextAnnotation{
				Text: "ACME OATS\nIngredients: oats, honey\n",
				Pages: []*visionpb.Page{{Blocks: []*visionpb.Block{{
					Confidence: 0.9,
					Paragraphs: []*visionpb.Paragraph{{Words: []*visionpb.Word{word("ACME"), word("OATS")}}},
					BoundingBox: &visionpb.BoundingPoly{Vertices: []*visionpb.Vertex{
						{X: 1, Y: 2}, {X: 3, Y: 2}, {X: 3, Y: 4}, {X: 1, Y: 4},
					}},
				}}}},
			},
		}},
	}}
	o := &OCR{client: fake}

	res, err := o.ExtractText(context.Background(), ai.Image{Data: []byte("jpeg")})

	require.NoError(t, err)
	assert.Equal(t, "ACME OATS\nIngredients: oats, honey", res.Text)
	require.Len(t, res.Blocks, 1)
	assert.Equal(t, "ACME OATS", res.Blocks[0].Text)
	assert.InDelta(t, 0.9, res.Blocks[0].Confidence, 1e-6)
	assert.Equal(t, [][2]float64{{1, 2}, {3, 2}, {3, 4}, {1, 4}}, res.Blocks[0].Vertices)
	assert.Equal(t, visionpb.Feature_DOCUMENT_TEXT_DETECTION, fake.got.Requests[0].Features[0].Type)
}

func TestExtractText_NoText(t *testing.T) {
	o := &OCR{client: &fakeAnnotator{resp: &visionpb.BatchAnnotateImagesResponse{
		Responses: []*visionpb.AnnotateImageResponse{{}},
	}}}

	res, err := o.ExtractText(context.Background(), ai.Image{Data: []byte("jpeg")})

	require.NoError(t, err)
	assert.Empty(t, res.Text)
}

func TestExtractText_Errors(t *testing.T) {
	tests := []struct {
		name string
		fake *fakeAnnotator
		want error
	}{
		{"quota", &fakeAnnotator{err: status.Error(codes.ResourceExhausted, "quota")}, ai.ErrRateLimited},
		{"auth", &fakeAnnotator{err: status.Error(codes.PermissionDenied, "nope")}, ai.ErrNotConfigured},
		{"network", &fakeAnnotator{err: errors.New("dial tcp: refused")}, ai.ErrUnavailable},
		{"per-image", &fakeAnnotator{resp: &visionpb.BatchAnnotateImagesResponse{
			Responses: []*visionpb.AnnotateImageResponse{{Error: &statuspb.Status{Code: int32(codes.Internal), Message: "bad image"}}},
		}}, ai.ErrUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := &OCR{client: tt.fake}
			_, err := o.ExtractText(context.Background(), ai.Image{Data: []byte("x")})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestExtractText_Unconfigured(t *testing.T) {
	var o *OCR
	_, err := o.ExtractText(context.Background(), ai.Image{Data: []byte("x")})
	assert.ErrorIs(t, err, ai.ErrNotConfigured)
}

func TestClientOptions(t *testing.T) {
	assert.Empty(t, ClientOptions(""))
	assert.Len(t, ClientOptions(`{"type":"service_account"}`), 1)
	assert.Len(t, ClientOptions("/etc/gcp/key.json"), 1)
}
