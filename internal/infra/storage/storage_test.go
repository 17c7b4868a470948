package storage

import (
	"context"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestDataURLStore(t *testing.T) {
	u, err := DataURLStore{}.Put(context.Background(), "ignored", []byte("abc"), "image/webp")
	require.NoError(t, err)
	assert.Equal(t, "data:image/webp;base64,YWJj", u)

	u, err = DataURLStore{}.Put(context.Background(), "ignored", pngHeader, "")
	require.NoError(t, err)
	assert.Contains(t, u, "data:image/png;base64,")
}

func TestDataURLStore_InlineLimit(t *testing.T) {
	s := DataURLStore{MaxBytes: 4}
	_, err := s.Put(context.Background(), "ignored", []byte("abcde"), "image/png")
	assert.ErrorIs(t, err, ErrTooLarge)

	u, err := s.Put(context.Background(), "ignored", []byte("abcd"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "data:image/png;base64,YWJjZA==", u)
}

func TestDetectContentType(t *testing.T) {
	assert.Equal(t, "image/png", DetectContentType(pngHeader))
	assert.Equal(t, "image/jpeg", DetectContentType([]byte("plain text")))
}

// offlineMinio needs no server: with a fixed region presigning is local.
func offlineMinio(t *testing.T, ttl time.Duration) *MinioStore {
	t.Helper()
	cli, err := minio.New("127.0.0.1:9000", &minio.Options{
		Creds:  credentials.NewStaticV4("access", "secret", ""),
		Region: "us-east-1",
	})
	require.NoError(t, err)
	return &MinioStore{client: cli, bucketName: "product-images", region: "us-east-1", PresignTTL: ttl}
}

func TestMinioLink_PresignsOnEveryRead(t *testing.T) {
	s := offlineMinio(t, time.Hour)
	ref := s.ref("uploads/abc.jpg")
	assert.Equal(t, "s3://product-images/uploads/abc.jpg", ref)

	u, err := s.Link(context.Background(), ref)

	require.NoError(t, err)
	assert.Contains(t, u, "/product-images/uploads/abc.jpg?")
	assert.Contains(t, u, "X-Amz-Expires=3600")
}

func TestMinioLink_PassesOtherValuesThrough(t *testing.T) {
	s := offlineMinio(t, time.Hour)
	for _, ref := range []string{
		"data:image/png;base64,YWJj",
		"https://cdn.test/a.jpg",
		"s3://other-bucket/uploads/abc.jpg",
	} {
		u, err := s.Link(context.Background(), ref)
		require.NoError(t, err)
		assert.Equal(t, ref, u)
	}
}
