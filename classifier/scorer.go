package classifier

import (
	"fmt"
	"math"

	"github.com/klejdi94/clipbench/core"
)

// Scorer computes per-label similarity scores for image embeddings against a
// fixed label index. It holds no mutable state and is safe for concurrent use.
type Scorer struct {
	index *LabelIndex
}

// NewScorer creates a scorer over the given label index.
func NewScorer(index *LabelIndex) *Scorer {
	return &Scorer{index: index}
}

// Score returns the raw similarity scores (dot products) of one image
// embedding against every label row, in vocabulary order.
func (s *Scorer) Score(image []float32) ([]float64, error) {
	if len(image) != s.index.Dimension() {
		return nil, fmt.Errorf("scorer: %w: image has %d dims, labels have %d",
			core.ErrDimensionMismatch, len(image), s.index.Dimension())
	}
	scores := make([]float64, s.index.Len())
	for i := 0; i < s.index.Len(); i++ {
		row := s.index.Row(i)
		var dot float64
		for j := range row {
			dot += float64(image[j]) * float64(row[j])
		}
		scores[i] = dot
	}
	return scores, nil
}

// Classify scores one image embedding and returns the arg-max prediction with
// its softmax confidence and the full label-probability mapping. Ties resolve
// to the lowest index.
func (s *Scorer) Classify(image []float32) (*core.Prediction, error) {
	scores, err := s.Score(image)
	if err != nil {
		return nil, err
	}
	probs := Softmax(scores)
	best := argmax(probs)
	mapping := make(map[string]float64, len(probs))
	for i, p := range probs {
		mapping[s.index.vocab.Label(i)] = p
	}
	return &core.Prediction{
		Index:         best,
		Label:         s.index.vocab.Label(best),
		Confidence:    probs[best],
		Probabilities: mapping,
	}, nil
}

// ClassifyBatch classifies a batch of image embeddings, preserving order.
func (s *Scorer) ClassifyBatch(images [][]float32) ([]*core.Prediction, error) {
	out := make([]*core.Prediction, len(images))
	for i, img := range images {
		p, err := s.Classify(img)
		if err != nil {
			return nil, fmt.Errorf("batch item %d: %w", i, err)
		}
		out[i] = p
	}
	return out, nil
}

// Softmax converts scores into a probability distribution. The row max is
// subtracted before exponentiating for numerical stability, which also makes
// the result invariant to adding a constant to every score.
func Softmax(scores []float64) []float64 {
	if len(scores) == 0 {
		return nil
	}
	max := scores[0]
	for _, v := range scores[1:] {
		if v > max {
			max = v
		}
	}
	out := make([]float64, len(scores))
	var sum float64
	for i, v := range scores {
		out[i] = math.Exp(v - max)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

// argmax returns the index of the largest value; ties go to the lowest index.
func argmax(vals []float64) int {
	best := 0
	for i, v := range vals[1:] {
		if v > vals[best] {
			best = i + 1
		}
	}
	return best
}
