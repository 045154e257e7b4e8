// Package experiment provides A/B testing of label prompt templates.
package experiment

import (
	"math"
	"math/rand"
	"sync"
)

// OnWinnerFunc is called when an experiment has a statistically significant
// winner (once).
type OnWinnerFunc func(winnerName, template string)

// Experiment is an A/B test over prompt-template variants. Outcomes are
// per-sample prediction correctness, so an evaluation run doubles as the
// traffic source.
type Experiment struct {
	mu              sync.RWMutex
	name            string
	variants        []Variant
	successes       []int64
	totals          []int64
	minSampleSize   int64
	confidenceLevel float64
	onWinner        OnWinnerFunc
	winnerFired     bool
}

// Variant is one prompt template in an experiment.
type Variant struct {
	Name     string
	Template string
	Weight   float64
}

// NewExperiment creates a new experiment with the given name.
func NewExperiment(name string) *Experiment {
	return &Experiment{name: name, confidenceLevel: 0.95}
}

// Variant adds a template variant with weight (e.g. 0.5 for half the
// samples). Weights should sum to 1.
func (e *Experiment) Variant(name, template string, weight float64) *Experiment {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.variants = append(e.variants, Variant{Name: name, Template: template, Weight: weight})
	e.successes = append(e.successes, 0)
	e.totals = append(e.totals, 0)
	return e
}

// WithMinSampleSize sets the minimum total outcomes per variant before
// considering a winner.
func (e *Experiment) WithMinSampleSize(n int64) *Experiment {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.minSampleSize = n
	return e
}

// WithConfidenceLevel sets the required confidence for declaring a winner
// (e.g. 0.95).
func (e *Experiment) WithConfidenceLevel(c float64) *Experiment {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.confidenceLevel = c
	return e
}

// WithOnWinner sets a callback invoked once when HasWinner becomes true
// (e.g. to adopt the winning template for subsequent runs).
func (e *Experiment) WithOnWinner(cb OnWinnerFunc) *Experiment {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onWinner = cb
	return e
}

// Next picks a variant by weight and returns its template and name. Returns
// empty strings when no variants are registered.
func (e *Experiment) Next() (template, name string) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if len(e.variants) == 0 {
		return "", ""
	}
	weights := make([]float64, len(e.variants))
	for i := range e.variants {
		weights[i] = e.variants[i].Weight
	}
	v := e.variants[selectWeightedIndex(weights)]
	return v.Template, v.Name
}

func selectWeightedIndex(weights []float64) int {
	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	if sum <= 0 {
		return 0
	}
	r := rand.Float64() * sum
	for i, w := range weights {
		r -= w
		if r <= 0 {
			return i
		}
	}
	return len(weights) - 1
}

// RecordOutcome records whether the variant's prediction was correct for one
// sample. If HasWinner becomes true and WithOnWinner was set, the callback is
// invoked once.
func (e *Experiment) RecordOutcome(variantName string, correct bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.variants {
		if e.variants[i].Name == variantName {
			e.totals[i]++
			if correct {
				e.successes[i]++
			}
			if !e.winnerFired && e.onWinner != nil {
				if idx, ok := e.winnerLocked(); ok && e.sampledEnoughLocked() {
					e.winnerFired = true
					name := e.variants[idx].Name
					tpl := e.variants[idx].Template
					e.mu.Unlock()
					e.onWinner(name, tpl)
					e.mu.Lock()
				}
			}
			return
		}
	}
}

// HasWinner returns true if min sample size is met and one variant is
// statistically significantly better.
func (e *Experiment) HasWinner() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if len(e.variants) < 2 || !e.sampledEnoughLocked() {
		return false
	}
	_, ok := e.winnerLocked()
	return ok
}

func (e *Experiment) sampledEnoughLocked() bool {
	for _, t := range e.totals {
		if t < e.minSampleSize {
			return false
		}
	}
	return true
}

func (e *Experiment) winnerLocked() (int, bool) {
	bestIdx := -1
	bestRate := -1.0
	for i := range e.variants {
		if e.totals[i] == 0 {
			continue
		}
		rate := float64(e.successes[i]) / float64(e.totals[i])
		if rate > bestRate {
			bestRate = rate
			bestIdx = i
		}
	}
	if bestIdx < 0 {
		return 0, false
	}
	// Simple significance: best rate must be above others with margin (approximate z-test).
	for i := range e.variants {
		if i == bestIdx || e.totals[i] == 0 {
			continue
		}
		p2 := float64(e.successes[i]) / float64(e.totals[i])
		se := math.Sqrt(bestRate*(1-bestRate)/float64(e.totals[bestIdx]) + p2*(1-p2)/float64(e.totals[i]))
		if se > 0 && (bestRate-p2)/se < 1.96 {
			return bestIdx, false
		}
	}
	return bestIdx, true
}

// GetWinner returns the name of the winning variant and true if there is one.
func (e *Experiment) GetWinner() (string, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	idx, ok := e.winnerLocked()
	if !ok {
		return "", false
	}
	return e.variants[idx].Name, true
}

// Template returns the template for a variant name, or "" if unknown.
func (e *Experiment) Template(variantName string) string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for i := range e.variants {
		if e.variants[i].Name == variantName {
			return e.variants[i].Template
		}
	}
	return ""
}

// Stats returns per-variant success counts and totals.
func (e *Experiment) Stats() (names []string, successes, totals []int64) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names = make([]string, len(e.variants))
	successes = make([]int64, len(e.variants))
	totals = make([]int64, len(e.variants))
	for i := range e.variants {
		names[i] = e.variants[i].Name
		successes[i] = e.successes[i]
		totals[i] = e.totals[i]
	}
	return names, successes, totals
}
