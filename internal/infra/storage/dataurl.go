// Package storage holds analysis.ImageStore implementations.
package storage

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrTooLarge is returned when an image exceeds the inline limit.
var ErrTooLarge = errors.New("image too large to inline")

// DataURLStore keeps nothing; the image travels inline as a data: URL.
// MaxBytes limits the raw image size; zero means no limit.
type DataURLStore struct {
	MaxBytes int
}

func (s DataURLStore) Put(_ context.Context, _ string, data []byte, contentType string) (string, error) {
	if s.MaxBytes > 0 && len(data) > s.MaxBytes {
		return "", fmt.Errorf("%w: %d bytes, limit %d", ErrTooLarge, len(data), s.MaxBytes)
	}
	if contentType == "" {
		contentType = DetectContentType(data)
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

// DetectContentType sniffs an image MIME type, defaulting to image/jpeg.
func DetectContentType(data []byte) string {
	ct := http.DetectContentType(data)
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	if !strings.HasPrefix(ct, "image/") {
		return "image/jpeg"
	}
	return ct
}
