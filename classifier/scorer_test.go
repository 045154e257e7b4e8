package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klejdi94/clipbench/core"
)

func unitIndex(t *testing.T, labels []string, matrix [][]float32) *LabelIndex {
	t.Helper()
	ix, err := NewLabelIndex(core.NewVocabulary(labels), matrix)
	require.NoError(t, err)
	return ix
}

func TestSoftmax_SumsToOne(t *testing.T) {
	probs := Softmax([]float64{1.5, -2.0, 0.3, 7.1})
	var sum float64
	for _, p := range probs {
		sum += p
	}
	assert.InDelta(t, 1.0, sum, 1e-12)
}

func TestSoftmax_ShiftInvariant(t *testing.T) {
	a := Softmax([]float64{1, 2, 3})
	b := Softmax([]float64{101, 102, 103})
	for i := range a {
		assert.InDelta(t, a[i], b[i], 1e-12)
	}
}

func TestSoftmax_LargeScoresStable(t *testing.T) {
	probs := Softmax([]float64{1000, 999})
	assert.False(t, probs[0] != probs[0], "NaN in softmax output")
	assert.Greater(t, probs[0], probs[1])
}

func TestClassify_TieBreaksToLowestIndex(t *testing.T) {
	ix := unitIndex(t, []string{"cat", "dog"}, [][]float32{{1, 0}, {0, 1}})
	s := NewScorer(ix)
	p, err := s.Classify([]float32{1.0, 1.0})
	require.NoError(t, err)
	assert.Equal(t, 0, p.Index)
	assert.Equal(t, "cat", p.Label)
}

func TestClassify_CatDogScenario(t *testing.T) {
	ix := unitIndex(t, []string{"cat", "dog"}, [][]float32{{1, 0}, {0, 1}})
	s := NewScorer(ix)

	scores, err := s.Score([]float32{0.9, 0.1})
	require.NoError(t, err)
	assert.InDelta(t, 0.9, scores[0], 1e-6)
	assert.InDelta(t, 0.1, scores[1], 1e-6)

	p, err := s.Classify([]float32{0.9, 0.1})
	require.NoError(t, err)
	assert.Equal(t, "cat", p.Label)
	assert.InDelta(t, 0.69, p.Confidence, 0.005)
	assert.InDelta(t, 0.31, p.Probabilities["dog"], 0.005)
}

func TestClassify_ShapeMismatchFatal(t *testing.T) {
	ix := unitIndex(t, []string{"cat", "dog"}, [][]float32{{1, 0}, {0, 1}})
	s := NewScorer(ix)
	_, err := s.Classify([]float32{1, 2, 3})
	assert.ErrorIs(t, err, core.ErrDimensionMismatch)
}

func TestClassifyBatch_PreservesOrder(t *testing.T) {
	ix := unitIndex(t, []string{"cat", "dog"}, [][]float32{{1, 0}, {0, 1}})
	s := NewScorer(ix)
	preds, err := s.ClassifyBatch([][]float32{{0.9, 0.1}, {0.2, 0.8}})
	require.NoError(t, err)
	require.Len(t, preds, 2)
	assert.Equal(t, "cat", preds[0].Label)
	assert.Equal(t, "dog", preds[1].Label)
}
