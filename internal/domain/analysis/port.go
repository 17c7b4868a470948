package analysis

import (
	"context"
	"encoding/json"
)

// Repository adalah port penyimpanan record analisis.
type Repository interface {
	Create(ctx context.Context, r *Record) error
	// Get returns ErrNotFound for unknown ids.
	Get(ctx context.Context, id ID) (*Record, error)
	// SetFacet writes one facet slot atomically and returns the value now stored.
	// Without overwrite the write only happens if the slot is empty; an existing
	// value wins and is returned unchanged.
	SetFacet(ctx context.Context, id ID, f Facet, data json.RawMessage, overwrite bool) (json.RawMessage, error)
	Ping(ctx context.Context) error
}

// ImageStore adalah port penyimpanan gambar upload.
type ImageStore interface {
	// Put stores the image under key and returns the URL clients should use.
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// ImageLinker is implemented by image stores whose Put returns a lasting
// reference rather than a URL. Link turns the reference into a URL clients
// can fetch now.
type ImageLinker interface {
	Link(ctx context.Context, ref string) (string, error)
}
