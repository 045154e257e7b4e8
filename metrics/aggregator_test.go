package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klejdi94/clipbench/core"
)

func classByLabel(t *testing.T, perClass []core.ClassMetrics, label string) core.ClassMetrics {
	t.Helper()
	for _, c := range perClass {
		if c.Label == label {
			return c
		}
	}
	t.Fatalf("label %q not in per-class report", label)
	return core.ClassMetrics{}
}

func TestAggregator_AllCorrect(t *testing.T) {
	agg := NewAggregator(core.NewVocabulary([]string{"cat", "dog"}))
	require.NoError(t, agg.Add(
		[]string{"cat", "dog", "cat"},
		[]string{"cat", "dog", "cat"},
	))

	r := agg.Reduce()
	assert.Equal(t, 1.0, r.Summary.Accuracy)
	assert.Equal(t, 1.0, r.Summary.Precision)
	assert.Equal(t, 1.0, r.Summary.Recall)
	assert.Equal(t, 1.0, r.Summary.F1)
}

func TestAggregator_AllWrong(t *testing.T) {
	agg := NewAggregator(core.NewVocabulary([]string{"cat", "dog"}))
	require.NoError(t, agg.Add(
		[]string{"cat", "dog"},
		[]string{"dog", "cat"},
	))

	r := agg.Reduce()
	assert.Equal(t, 0.0, r.Summary.Accuracy)
	assert.Equal(t, 0.0, r.Summary.Precision)
	assert.Equal(t, 0.0, r.Summary.Recall)
	assert.Equal(t, 0.0, r.Summary.F1)
}

func TestAggregator_WeightedMetrics(t *testing.T) {
	agg := NewAggregator(core.NewVocabulary([]string{"cat", "dog"}))
	require.NoError(t, agg.Add(
		[]string{"cat", "dog", "cat", "dog"},
		[]string{"cat", "dog", "dog", "dog"},
	))

	r := agg.Reduce()
	assert.InDelta(t, 0.75, r.Summary.Accuracy, 1e-9)
	assert.InDelta(t, 5.0/6.0, r.Summary.Precision, 1e-9)
	assert.InDelta(t, 0.75, r.Summary.Recall, 1e-9)
	assert.InDelta(t, (2*(2.0/3.0)+2*0.8)/4.0, r.Summary.F1, 1e-9)

	cat := classByLabel(t, r.PerClass, "cat")
	assert.InDelta(t, 1.0, cat.Precision, 1e-9)
	assert.InDelta(t, 0.5, cat.Recall, 1e-9)
	assert.InDelta(t, 2.0/3.0, cat.F1, 1e-9)
	assert.Equal(t, 2, cat.Support)

	dog := classByLabel(t, r.PerClass, "dog")
	assert.InDelta(t, 2.0/3.0, dog.Precision, 1e-9)
	assert.InDelta(t, 1.0, dog.Recall, 1e-9)
	assert.InDelta(t, 0.8, dog.F1, 1e-9)
	assert.Equal(t, 2, dog.Support)
}

func TestAggregator_ConfusionMatrix(t *testing.T) {
	agg := NewAggregator(core.NewVocabulary([]string{"cat", "dog"}))
	require.NoError(t, agg.Add(
		[]string{"cat", "dog", "cat", "dog"},
		[]string{"cat", "dog", "dog", "dog"},
	))

	r := agg.Reduce()
	require.Equal(t, []string{"cat", "dog"}, r.Labels)
	// Rows are true labels, columns predicted.
	assert.Equal(t, [][]int{{1, 1}, {0, 2}}, r.Confusion)
}

func TestAggregator_ZeroSupportLabelInReport(t *testing.T) {
	agg := NewAggregator(core.NewVocabulary([]string{"bird", "cat", "dog"}))
	require.NoError(t, agg.Add(
		[]string{"cat", "dog"},
		[]string{"cat", "dog"},
	))

	r := agg.Reduce()
	require.Len(t, r.PerClass, 3)
	bird := classByLabel(t, r.PerClass, "bird")
	assert.Equal(t, 0, bird.Support)
	assert.Equal(t, 0.0, bird.Precision)
	assert.Equal(t, 0.0, bird.Recall)
	assert.Equal(t, 0.0, bird.F1)

	// Zero-support classes carry zero weight, so the averages are unaffected.
	assert.Equal(t, 1.0, r.Summary.Precision)
	assert.Equal(t, 1.0, r.Summary.Recall)
	assert.Equal(t, 1.0, r.Summary.F1)
}

func TestAggregator_LabelsOutsideVocabulary(t *testing.T) {
	agg := NewAggregator(core.NewVocabulary([]string{"cat"}))
	require.NoError(t, agg.Add(
		[]string{"cat", "ferret"},
		[]string{"cat", "cat"},
	))

	r := agg.Reduce()
	assert.Equal(t, []string{"cat", "ferret"}, r.Labels)
	ferret := classByLabel(t, r.PerClass, "ferret")
	assert.Equal(t, 1, ferret.Support)
	assert.Equal(t, 0.0, ferret.Recall)
}

func TestAggregator_BatchLengthMismatch(t *testing.T) {
	agg := NewAggregator(core.NewVocabulary([]string{"cat"}))
	err := agg.Add([]string{"cat", "cat"}, []string{"cat"})
	assert.ErrorIs(t, err, core.ErrBatchMismatch)
	assert.Equal(t, 0, agg.Count())
}

func TestAggregator_AccumulatesAcrossBatches(t *testing.T) {
	agg := NewAggregator(core.NewVocabulary([]string{"cat", "dog"}))
	require.NoError(t, agg.Add([]string{"cat"}, []string{"cat"}))
	require.NoError(t, agg.Add([]string{"dog"}, []string{"cat"}))
	agg.AddPrediction("dog", &core.Prediction{Label: "dog"})

	assert.Equal(t, 3, agg.Count())
	r := agg.Reduce()
	assert.InDelta(t, 2.0/3.0, r.Summary.Accuracy, 1e-9)

	trueSeq, predSeq := agg.Sequences()
	assert.Equal(t, []string{"cat", "dog", "dog"}, trueSeq)
	assert.Equal(t, []string{"cat", "cat", "dog"}, predSeq)
}

func TestAggregator_EmptyReduce(t *testing.T) {
	agg := NewAggregator(core.NewVocabulary([]string{"cat"}))
	r := agg.Reduce()
	assert.Equal(t, 0.0, r.Summary.Accuracy)
	require.Len(t, r.PerClass, 1)
	assert.Equal(t, 0, r.PerClass[0].Support)
}
