// Package embedding turns query text into vectors for similarity search.
package embedding

import (
	"context"
	"errors"
)

// ErrMissingAPIKey is returned when a remote embedder is configured without credentials.
var ErrMissingAPIKey = errors.New("embedding: missing API key")

// Embedder produces vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
	Close() error
}
