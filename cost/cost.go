// Package cost provides token counting and cost estimation for remote
// embedding APIs. Embedding requests bill input tokens only.
package cost

import (
	"sync"
	"sync/atomic"
)

// TokenCounter estimates token count for text (e.g. ~4 chars per token for English).
type TokenCounter interface {
	CountTokens(text string) int
}

// SimpleCounter uses a rough heuristic: tokens ≈ runes/4.
type SimpleCounter struct{}

func (SimpleCounter) CountTokens(text string) int {
	n := 0
	for range text {
		n++
	}
	if n == 0 {
		return 0
	}
	return (n + 3) / 4
}

// Estimator estimates the cost of embedding a set of texts with one model.
type Estimator struct {
	model        string
	inputPer1K   float64
	tokenCounter TokenCounter
}

// EstimatorOption configures the estimator.
type EstimatorOption func(*Estimator)

// WithTokenCounter sets a custom token counter.
func WithTokenCounter(tc TokenCounter) EstimatorOption {
	return func(e *Estimator) {
		e.tokenCounter = tc
	}
}

// NewEstimator creates an estimator for a model with given pricing (per 1K
// input tokens, USD).
func NewEstimator(model string, inputPer1K float64, opts ...EstimatorOption) *Estimator {
	e := &Estimator{
		model:        model,
		inputPer1K:   inputPer1K,
		tokenCounter: SimpleCounter{},
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Estimate returns the estimated token count and cost in USD for embedding
// the given texts, e.g. the rendered label prompts of a run.
func (e *Estimator) Estimate(texts []string) (tokens int, totalUSD float64) {
	for _, t := range texts {
		tokens += e.tokenCounter.CountTokens(t)
	}
	totalUSD = (float64(tokens) / 1000) * e.inputPer1K
	return tokens, totalUSD
}

// Tracker records actual embedding usage per model across a run.
type Tracker struct {
	totalTokens  atomic.Uint64
	mu           sync.Mutex
	totalCostUSD float64
	modelPricing map[string]float64
}

// NewTracker creates a cost tracker. Register model pricing with RegisterModel.
func NewTracker() *Tracker {
	return &Tracker{modelPricing: make(map[string]float64)}
}

// RegisterModel sets pricing (per 1K input tokens) for a model.
func (t *Tracker) RegisterModel(model string, inputPer1K float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.modelPricing[model] = inputPer1K
}

// Record records token usage from an embedding response and returns the cost
// in USD. Unknown models are counted but cost zero.
func (t *Tracker) Record(model string, tokens int) float64 {
	t.totalTokens.Add(uint64(tokens))
	t.mu.Lock()
	defer t.mu.Unlock()
	per1K, ok := t.modelPricing[model]
	if !ok {
		return 0
	}
	cost := (float64(tokens) / 1000) * per1K
	t.totalCostUSD += cost
	return cost
}

// TotalTokens returns total input tokens recorded.
func (t *Tracker) TotalTokens() uint64 {
	return t.totalTokens.Load()
}

// TotalCostUSD returns total cost in USD.
func (t *Tracker) TotalCostUSD() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.totalCostUSD
}
