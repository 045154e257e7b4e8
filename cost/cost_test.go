package cost

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSimpleCounter(t *testing.T) {
	c := SimpleCounter{}
	assert.Equal(t, 0, c.CountTokens(""))
	assert.Equal(t, 1, c.CountTokens("cat"))
	assert.Equal(t, 5, c.CountTokens("a photo of a cat"))
}

func TestEstimator(t *testing.T) {
	e := NewEstimator("text-embedding-3-small", 0.02)
	tokens, usd := e.Estimate([]string{
		"a photo of a cat",
		"a photo of a dog",
	})
	assert.Equal(t, 10, tokens)
	assert.InDelta(t, 0.0002, usd, 1e-9)
}

type wordCounter struct{}

func (wordCounter) CountTokens(text string) int {
	if text == "" {
		return 0
	}
	n := 1
	for _, r := range text {
		if r == ' ' {
			n++
		}
	}
	return n
}

func TestEstimator_CustomCounter(t *testing.T) {
	e := NewEstimator("m", 1.0, WithTokenCounter(wordCounter{}))
	tokens, _ := e.Estimate([]string{"a photo of a cat"})
	assert.Equal(t, 5, tokens)
}

func TestTracker(t *testing.T) {
	tr := NewTracker()
	tr.RegisterModel("text-embedding-3-small", 0.02)

	cost := tr.Record("text-embedding-3-small", 1000)
	assert.InDelta(t, 0.02, cost, 1e-9)
	assert.Equal(t, 0.0, tr.Record("unknown-model", 500))

	assert.Equal(t, uint64(1500), tr.TotalTokens())
	assert.InDelta(t, 0.02, tr.TotalCostUSD(), 1e-9)
}
