// Package clipbench provides a Go library and CLI for evaluating pretrained
// dual-encoder (CLIP-style) embedding models as zero-shot image classifiers
// over a labeled dataset.
//
// Quick start:
//
//	run := clipbench.New("clip-vit-b32").
//		WithDataset(ds).
//		WithTextEncoder(text).
//		WithImageEncoder(image).
//		WithTemplate("a photo of a {{.label}}").
//		WithBatchSize(32).
//		Build()
//
//	report, err := run.Execute(context.Background())
package clipbench

import (
	"github.com/klejdi94/clipbench/classifier"
	"github.com/klejdi94/clipbench/core"
	"github.com/klejdi94/clipbench/dataset"
	"github.com/klejdi94/clipbench/encoder"
	"github.com/klejdi94/clipbench/harness"
	"github.com/klejdi94/clipbench/runlog"
	"github.com/klejdi94/clipbench/template"
)

var defaultEngine *template.Engine

func init() {
	defaultEngine = template.NewEngine()
}

// DefaultEngine returns the shared default template engine (used by Build
// when none is set).
func DefaultEngine() *template.Engine {
	return defaultEngine
}

// Builder constructs an evaluation Run via a fluent API.
type Builder struct {
	model         string
	ds            dataset.Dataset
	text          encoder.TextEncoder
	image         encoder.ImageEncoder
	tpl           string
	engine        *template.Engine
	batchSize     int
	normalization classifier.Normalization
	runLog        runlog.Store
	logf          func(format string, args ...interface{})
}

// New starts a new run builder for the given model name.
func New(model string) *Builder {
	return &Builder{model: model}
}

// WithDataset sets the labeled dataset to evaluate over.
func (b *Builder) WithDataset(ds dataset.Dataset) *Builder {
	b.ds = ds
	return b
}

// WithTextEncoder sets the text tower used to embed label prompts.
func (b *Builder) WithTextEncoder(enc encoder.TextEncoder) *Builder {
	b.text = enc
	return b
}

// WithImageEncoder sets the image tower used to embed dataset samples.
func (b *Builder) WithImageEncoder(enc encoder.ImageEncoder) *Builder {
	b.image = enc
	return b
}

// WithTemplate sets the label prompt template (supports Go text/template
// syntax with a {{.label}} variable).
func (b *Builder) WithTemplate(tpl string) *Builder {
	b.tpl = tpl
	return b
}

// WithEngine sets a custom template engine.
func (b *Builder) WithEngine(eng *template.Engine) *Builder {
	b.engine = eng
	return b
}

// WithBatchSize sets the dataset batch size (default 32).
func (b *Builder) WithBatchSize(n int) *Builder {
	b.batchSize = n
	return b
}

// WithNormalization selects the label matrix normalization axis.
func (b *Builder) WithNormalization(n classifier.Normalization) *Builder {
	b.normalization = n
	return b
}

// WithRunLog records per-batch timings to the given store.
func (b *Builder) WithRunLog(store runlog.Store) *Builder {
	b.runLog = store
	return b
}

// WithLogf sets the run's log function.
func (b *Builder) WithLogf(logf func(format string, args ...interface{})) *Builder {
	b.logf = logf
	return b
}

// Build produces the Run. If no engine is set, the default engine is used.
func (b *Builder) Build() *harness.Run {
	eng := b.engine
	if eng == nil {
		eng = defaultEngine
	}
	return &harness.Run{
		Model:         b.model,
		Dataset:       b.ds,
		Text:          b.text,
		Image:         b.image,
		Template:      b.tpl,
		Engine:        eng,
		BatchSize:     b.batchSize,
		Normalization: b.normalization,
		RunLog:        b.runLog,
		Logf:          b.logf,
	}
}

// Re-export core types for convenience.
type (
	// Report is the full result of one evaluation run.
	Report = core.Report
	// Summary holds the aggregate metrics of one run.
	Summary = core.Summary
	// Prediction is the outcome of scoring one image.
	Prediction = core.Prediction
	// Comparison holds summaries from several implementations.
	Comparison = core.Comparison
)

// Normalization variants (re-export from classifier).
const (
	NormPerLabel = classifier.NormPerLabel
	NormPerDim   = classifier.NormPerDim
)

// Compare collects reports keyed by implementation name into a comparison.
var Compare = harness.Compare
