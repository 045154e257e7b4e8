// Package dataset provides labeled image datasets for evaluation runs:
// JSONL manifests, class-directory layouts, blob-backed manifests, and an
// in-memory implementation for tests.
package dataset

import (
	"context"
	"fmt"

	"github.com/klejdi94/clipbench/core"
)

// Dataset is an indexable labeled image collection. Labels are available
// without loading image bytes, so the vocabulary can be extracted up front.
type Dataset interface {
	Len() int
	Label(i int) string
	Sample(ctx context.Context, i int) (core.Sample, error)
}

// ExtractVocabulary builds the label vocabulary (deduplicated, sorted) from
// the dataset's ground-truth labels.
func ExtractVocabulary(ds Dataset) *core.Vocabulary {
	labels := make([]string, ds.Len())
	for i := range labels {
		labels[i] = ds.Label(i)
	}
	return core.NewVocabulary(labels)
}

// Batches returns the [start, end) bounds of each fixed-size batch over n
// items. The last batch may be short.
func Batches(n, size int) [][2]int {
	if n <= 0 || size <= 0 {
		return nil
	}
	out := make([][2]int, 0, (n+size-1)/size)
	for start := 0; start < n; start += size {
		end := start + size
		if end > n {
			end = n
		}
		out = append(out, [2]int{start, end})
	}
	return out
}

// InMemory is a Dataset held entirely in memory.
type InMemory struct {
	samples []core.Sample
}

// NewInMemory wraps pre-loaded samples.
func NewInMemory(samples []core.Sample) *InMemory {
	return &InMemory{samples: samples}
}

func (m *InMemory) Len() int { return len(m.samples) }

func (m *InMemory) Label(i int) string { return m.samples[i].Label }

func (m *InMemory) Sample(ctx context.Context, i int) (core.Sample, error) {
	if i < 0 || i >= len(m.samples) {
		return core.Sample{}, fmt.Errorf("dataset: index %d out of range [0,%d)", i, len(m.samples))
	}
	return m.samples[i], nil
}
