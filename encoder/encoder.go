// Package encoder defines the text and image embedding interfaces and
// implementations used for zero-shot classification.
package encoder

import (
	"context"
	"errors"
)

// Common errors.
var (
	// ErrEmptyInput is returned when the input text or image is empty.
	ErrEmptyInput = errors.New("encoder: empty input")
)

// TextEncoder converts text into a dense float32 embedding vector. It must be
// deterministic for fixed model weights.
type TextEncoder interface {
	// EncodeText returns the embedding vector for a single text.
	EncodeText(ctx context.Context, text string) ([]float32, error)

	// EncodeTextBatch returns embedding vectors for multiple texts, in order.
	// Implementations may split large batches into smaller calls transparently.
	EncodeTextBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the dimensionality of the output vectors.
	Dimension() int
}

// ImageEncoder converts an encoded image (JPEG or PNG bytes) into a dense
// float32 embedding vector in the same space as the paired TextEncoder.
type ImageEncoder interface {
	EncodeImage(ctx context.Context, image []byte) ([]float32, error)
	EncodeImageBatch(ctx context.Context, images [][]byte) ([][]float32, error)
	Dimension() int
}

// encodeOneByOne implements a batch call on top of a single-item encode.
func encodeOneByOne[T any](ctx context.Context, items []T, one func(context.Context, T) ([]float32, error)) ([][]float32, error) {
	out := make([][]float32, len(items))
	for i, item := range items {
		vec, err := one(ctx, item)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}
