// Package metrics aggregates zero-shot predictions into standard
// classification metrics: accuracy, support-weighted precision/recall/F1,
// a per-class report, and a confusion matrix.
package metrics

import (
	"sort"

	"github.com/klejdi94/clipbench/core"
)

// Aggregator collects true and predicted labels across batches and reduces
// them into aggregate metrics after the full dataset pass.
type Aggregator struct {
	vocab   *core.Vocabulary
	trueSeq []string
	predSeq []string
}

// NewAggregator creates an aggregator. The vocabulary fixes the minimum label
// set of the per-class report; labels seen only at Add time are included too.
func NewAggregator(vocab *core.Vocabulary) *Aggregator {
	return &Aggregator{vocab: vocab}
}

// Add accumulates one batch of (true, predicted) label pairs, in dataset
// iteration order. The two slices must have equal length.
func (a *Aggregator) Add(trueLabels, predLabels []string) error {
	if len(trueLabels) != len(predLabels) {
		return core.ErrBatchMismatch
	}
	a.trueSeq = append(a.trueSeq, trueLabels...)
	a.predSeq = append(a.predSeq, predLabels...)
	return nil
}

// AddPrediction accumulates a single sample.
func (a *Aggregator) AddPrediction(trueLabel string, pred *core.Prediction) {
	a.trueSeq = append(a.trueSeq, trueLabel)
	a.predSeq = append(a.predSeq, pred.Label)
}

// Count returns the number of samples accumulated so far.
func (a *Aggregator) Count() int {
	return len(a.trueSeq)
}

// Sequences returns copies of the accumulated true and predicted label
// sequences, in dataset order.
func (a *Aggregator) Sequences() (trueLabels, predLabels []string) {
	return append([]string(nil), a.trueSeq...), append([]string(nil), a.predSeq...)
}

// Result is the reduced output of a full dataset pass.
type Result struct {
	Summary   core.Summary
	PerClass  []core.ClassMetrics
	Labels    []string // report label order
	Confusion [][]int  // rows = true, cols = predicted, in Labels order
}

// Reduce computes the final metrics. Every label in the vocabulary appears in
// the per-class report, as does any label seen only in predictions; classes
// with zero true instances get zero precision/recall/F1 and contribute zero
// weight to the weighted averages.
func (a *Aggregator) Reduce() *Result {
	labels := a.reportLabels()
	index := make(map[string]int, len(labels))
	for i, l := range labels {
		index[l] = i
	}

	n := len(labels)
	confusion := make([][]int, n)
	for i := range confusion {
		confusion[i] = make([]int, n)
	}
	tp := make([]int, n)
	fp := make([]int, n)
	fn := make([]int, n)
	correct := 0
	for i := range a.trueSeq {
		ti, tok := index[a.trueSeq[i]]
		pi, pok := index[a.predSeq[i]]
		if tok && pok {
			confusion[ti][pi]++
		}
		if a.trueSeq[i] == a.predSeq[i] {
			correct++
			if tok {
				tp[ti]++
			}
			continue
		}
		if tok {
			fn[ti]++
		}
		if pok {
			fp[pi]++
		}
	}

	perClass := make([]core.ClassMetrics, n)
	var weightedP, weightedR, weightedF float64
	total := len(a.trueSeq)
	for i, label := range labels {
		support := tp[i] + fn[i]
		var p, r, f float64
		if tp[i]+fp[i] > 0 {
			p = float64(tp[i]) / float64(tp[i]+fp[i])
		}
		if support > 0 {
			r = float64(tp[i]) / float64(support)
		}
		if p+r > 0 {
			f = 2 * p * r / (p + r)
		}
		perClass[i] = core.ClassMetrics{
			Label:     label,
			Precision: p,
			Recall:    r,
			F1:        f,
			Support:   support,
		}
		weightedP += float64(support) * p
		weightedR += float64(support) * r
		weightedF += float64(support) * f
	}

	var summary core.Summary
	if total > 0 {
		summary.Accuracy = float64(correct) / float64(total)
		summary.Precision = weightedP / float64(total)
		summary.Recall = weightedR / float64(total)
		summary.F1 = weightedF / float64(total)
	}
	return &Result{
		Summary:   summary,
		PerClass:  perClass,
		Labels:    labels,
		Confusion: confusion,
	}
}

// reportLabels returns the union of the vocabulary and every label seen in
// the accumulated sequences, sorted.
func (a *Aggregator) reportLabels() []string {
	seen := make(map[string]bool)
	var labels []string
	add := func(l string) {
		if l == "" || seen[l] {
			return
		}
		seen[l] = true
		labels = append(labels, l)
	}
	if a.vocab != nil {
		for _, l := range a.vocab.Labels() {
			add(l)
		}
	}
	for _, l := range a.trueSeq {
		add(l)
	}
	for _, l := range a.predSeq {
		add(l)
	}
	sort.Strings(labels)
	return labels
}
