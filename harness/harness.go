// Package harness drives a full zero-shot evaluation run: build the label
// index once, iterate the dataset in fixed-size batches, encode, score,
// aggregate, and produce a Report.
package harness

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/klejdi94/clipbench/classifier"
	"github.com/klejdi94/clipbench/core"
	"github.com/klejdi94/clipbench/dataset"
	"github.com/klejdi94/clipbench/encoder"
	"github.com/klejdi94/clipbench/metrics"
	"github.com/klejdi94/clipbench/runlog"
	"github.com/klejdi94/clipbench/template"
)

// DefaultBatchSize is the batch size used when Run.BatchSize is zero.
const DefaultBatchSize = 32

// Run configures one evaluation. Model, Dataset, Text and Image are required;
// everything else has a usable zero value.
type Run struct {
	Model   string
	Dataset dataset.Dataset
	Text    encoder.TextEncoder
	Image   encoder.ImageEncoder

	Template      string // label prompt template; empty uses the engine default
	Engine        *template.Engine
	BatchSize     int
	Normalization classifier.Normalization

	RunLog runlog.Store // optional; batch records are best-effort
	Logf   func(format string, args ...interface{})
}

// Execute runs the evaluation synchronously, batch by batch. Any encoder or
// dataset error aborts the run. The returned report carries the summary
// metrics, per-class report, confusion matrix and raw label sequences.
func (r *Run) Execute(ctx context.Context) (*core.Report, error) {
	if r.Model == "" {
		return nil, errors.New("harness: model name required")
	}
	if r.Dataset == nil {
		return nil, errors.New("harness: dataset required")
	}
	if r.Text == nil || r.Image == nil {
		return nil, errors.New("harness: text and image encoders required")
	}
	batchSize := r.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	started := time.Now()
	runID := newRunID()
	vocab := dataset.ExtractVocabulary(r.Dataset)

	index, err := classifier.BuildLabelIndex(ctx, vocab, r.Text, classifier.IndexConfig{
		Template:      r.Template,
		Engine:        r.Engine,
		Normalization: r.Normalization,
	})
	if err != nil {
		return nil, fmt.Errorf("harness: %w", err)
	}
	r.logf("run %s: model %s, %d samples, %d labels, batch size %d",
		runID, r.Model, r.Dataset.Len(), vocab.Len(), batchSize)

	scorer := classifier.NewScorer(index)
	agg := metrics.NewAggregator(vocab)
	bounds := dataset.Batches(r.Dataset.Len(), batchSize)
	for bi, b := range bounds {
		batchStart := time.Now()
		err := r.runBatch(ctx, scorer, agg, b[0], b[1])
		r.record(ctx, runlog.RunRecord{
			Model:     r.Model,
			RunID:     runID,
			Batch:     bi,
			Samples:   b[1] - b[0],
			LatencyMs: time.Since(batchStart).Milliseconds(),
			Success:   err == nil,
		})
		if err != nil {
			return nil, fmt.Errorf("harness batch %d: %w", bi, err)
		}
	}

	result := agg.Reduce()
	trueSeq, predSeq := agg.Sequences()
	report := &core.Report{
		Model:     r.Model,
		RunID:     runID,
		Summary:   result.Summary,
		PerClass:  result.PerClass,
		Labels:    result.Labels,
		Confusion: result.Confusion,
		True:      trueSeq,
		Predicted: predSeq,
		Samples:   agg.Count(),
		Batches:   len(bounds),
		Duration:  time.Since(started),
		CreatedAt: time.Now(),
	}
	r.logf("run %s: accuracy %.4f over %d samples in %s",
		runID, report.Summary.Accuracy, report.Samples, report.Duration.Round(time.Millisecond))
	return report, nil
}

// runBatch loads samples [start, end), encodes the images and accumulates
// predictions.
func (r *Run) runBatch(ctx context.Context, scorer *classifier.Scorer, agg *metrics.Aggregator, start, end int) error {
	images := make([][]byte, 0, end-start)
	trueLabels := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		s, err := r.Dataset.Sample(ctx, i)
		if err != nil {
			return err
		}
		images = append(images, s.Image)
		trueLabels = append(trueLabels, s.Label)
	}
	embeddings, err := r.Image.EncodeImageBatch(ctx, images)
	if err != nil {
		return fmt.Errorf("encode images: %w", err)
	}
	if len(embeddings) != len(images) {
		return fmt.Errorf("encode images: got %d embeddings for %d images", len(embeddings), len(images))
	}
	preds, err := scorer.ClassifyBatch(embeddings)
	if err != nil {
		return err
	}
	predLabels := make([]string, len(preds))
	for i, p := range preds {
		predLabels[i] = p.Label
	}
	return agg.Add(trueLabels, predLabels)
}

func (r *Run) record(ctx context.Context, rec runlog.RunRecord) {
	if r.RunLog == nil {
		return
	}
	if err := r.RunLog.Record(ctx, rec); err != nil {
		r.logf("run log record failed: %v", err)
	}
}

func (r *Run) logf(format string, args ...interface{}) {
	if r.Logf != nil {
		r.Logf(format, args...)
	}
}

// newRunID returns a timestamped identifier with a random suffix.
func newRunID() string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return time.Now().UTC().Format("20060102T150405")
	}
	return time.Now().UTC().Format("20060102T150405") + "-" + hex.EncodeToString(buf)
}

// PrintSummary writes the summary metrics and per-class report to w, four
// decimal places each.
func PrintSummary(w io.Writer, report *core.Report) {
	fmt.Fprintf(w, "model:     %s\n", report.Model)
	fmt.Fprintf(w, "run:       %s\n", report.RunID)
	fmt.Fprintf(w, "samples:   %d\n", report.Samples)
	fmt.Fprintf(w, "accuracy:  %.4f\n", report.Summary.Accuracy)
	fmt.Fprintf(w, "precision: %.4f\n", report.Summary.Precision)
	fmt.Fprintf(w, "recall:    %.4f\n", report.Summary.Recall)
	fmt.Fprintf(w, "f1:        %.4f\n", report.Summary.F1)
	fmt.Fprintf(w, "\n%-20s %9s %9s %9s %9s\n", "label", "precision", "recall", "f1", "support")
	for _, c := range report.PerClass {
		fmt.Fprintf(w, "%-20s %9.4f %9.4f %9.4f %9d\n", c.Label, c.Precision, c.Recall, c.F1, c.Support)
	}
}

// Compare collects run summaries keyed by implementation name into a
// comparison ordered by name, ready for the comparison chart renderer.
func Compare(reports map[string]*core.Report) *core.Comparison {
	names := make([]string, 0, len(reports))
	for name := range reports {
		names = append(names, name)
	}
	sort.Strings(names)
	cmp := &core.Comparison{
		Names:     names,
		Summaries: make([]core.Summary, len(names)),
	}
	for i, name := range names {
		cmp.Summaries[i] = reports[name].Summary
	}
	return cmp
}
