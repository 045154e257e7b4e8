// Package classifier implements zero-shot label scoring: a label embedding
// index built once per run, and a scorer that ranks labels by embedding
// similarity to an image.
package classifier

import (
	"context"
	"fmt"
	"math"

	"github.com/klejdi94/clipbench/core"
	"github.com/klejdi94/clipbench/encoder"
	"github.com/klejdi94/clipbench/template"
)

// Normalization selects how the label embedding matrix is normalized.
type Normalization string

const (
	// NormPerLabel L2-normalizes each label row independently. This is the
	// standard zero-shot CLIP behavior and the default.
	NormPerLabel Normalization = "per-label"

	// NormPerDim divides each column by its norm computed across labels,
	// the legacy axis some published runs used. Almost certainly a bug in
	// those runs; kept selectable so old numbers remain reproducible.
	NormPerDim Normalization = "per-dim"
)

// LabelIndex holds an ordered label vocabulary and its matching embedding
// matrix. Row i embeds vocabulary label i; predictions are recovered by
// indexing the vocabulary with the arg-max row.
type LabelIndex struct {
	vocab  *core.Vocabulary
	matrix [][]float32
	dim    int
}

// IndexConfig configures BuildLabelIndex.
type IndexConfig struct {
	Template      string        // label prompt template; empty uses the default
	Engine        *template.Engine
	Normalization Normalization // empty uses NormPerLabel
}

// BuildLabelIndex renders one prompt per vocabulary label, encodes all
// prompts through the text encoder, and normalizes the resulting matrix.
// Called once per evaluation run.
func BuildLabelIndex(ctx context.Context, vocab *core.Vocabulary, enc encoder.TextEncoder, cfg IndexConfig) (*LabelIndex, error) {
	if vocab == nil || vocab.Len() == 0 {
		return nil, core.ErrEmptyVocabulary
	}
	eng := cfg.Engine
	if eng == nil {
		eng = template.NewEngine()
	}
	prompts, err := eng.RenderAll(cfg.Template, vocab.Labels())
	if err != nil {
		return nil, fmt.Errorf("label index render: %w", err)
	}
	matrix, err := enc.EncodeTextBatch(ctx, prompts)
	if err != nil {
		return nil, fmt.Errorf("label index encode: %w", err)
	}
	if len(matrix) != vocab.Len() {
		return nil, fmt.Errorf("label index: got %d embeddings for %d labels", len(matrix), vocab.Len())
	}
	dim := len(matrix[0])
	for i, row := range matrix {
		if len(row) != dim {
			return nil, fmt.Errorf("label %q: %w: got %d, want %d", vocab.Label(i), core.ErrDimensionMismatch, len(row), dim)
		}
	}
	norm := cfg.Normalization
	if norm == "" {
		norm = NormPerLabel
	}
	switch norm {
	case NormPerLabel:
		normalizePerLabel(matrix)
	case NormPerDim:
		normalizePerDim(matrix, dim)
	default:
		return nil, fmt.Errorf("label index: unknown normalization %q", norm)
	}
	return &LabelIndex{vocab: vocab, matrix: matrix, dim: dim}, nil
}

// NewLabelIndex wraps an already-computed embedding matrix; rows must match
// the vocabulary order. No normalization is applied.
func NewLabelIndex(vocab *core.Vocabulary, matrix [][]float32) (*LabelIndex, error) {
	if vocab == nil || vocab.Len() == 0 {
		return nil, core.ErrEmptyVocabulary
	}
	if len(matrix) != vocab.Len() {
		return nil, fmt.Errorf("label index: %d rows for %d labels", len(matrix), vocab.Len())
	}
	dim := len(matrix[0])
	for i, row := range matrix {
		if len(row) != dim {
			return nil, fmt.Errorf("label %q: %w", vocab.Label(i), core.ErrDimensionMismatch)
		}
	}
	return &LabelIndex{vocab: vocab, matrix: matrix, dim: dim}, nil
}

// normalizePerLabel divides each row by its own L2 norm.
func normalizePerLabel(matrix [][]float32) {
	for _, row := range matrix {
		var sum float64
		for _, v := range row {
			sum += float64(v) * float64(v)
		}
		n := math.Sqrt(sum)
		if n == 0 {
			continue
		}
		for i := range row {
			row[i] = float32(float64(row[i]) / n)
		}
	}
}

// normalizePerDim divides each column by the L2 norm of that column across
// all labels (the legacy axis).
func normalizePerDim(matrix [][]float32, dim int) {
	norms := make([]float64, dim)
	for _, row := range matrix {
		for j, v := range row {
			norms[j] += float64(v) * float64(v)
		}
	}
	for j := range norms {
		norms[j] = math.Sqrt(norms[j])
	}
	for _, row := range matrix {
		for j := range row {
			if norms[j] == 0 {
				continue
			}
			row[j] = float32(float64(row[j]) / norms[j])
		}
	}
}

// Vocabulary returns the label vocabulary.
func (ix *LabelIndex) Vocabulary() *core.Vocabulary {
	return ix.vocab
}

// Labels returns the ordered class names.
func (ix *LabelIndex) Labels() []string {
	return ix.vocab.Labels()
}

// Dimension returns the embedding dimensionality.
func (ix *LabelIndex) Dimension() int {
	return ix.dim
}

// Len returns the number of labels.
func (ix *LabelIndex) Len() int {
	return ix.vocab.Len()
}

// Row returns the embedding row for label i. The returned slice is shared;
// callers must not mutate it.
func (ix *LabelIndex) Row(i int) []float32 {
	return ix.matrix[i]
}
