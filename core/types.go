package core

import "time"

// Sample is one dataset record: an encoded image and its ground-truth label.
type Sample struct {
	Image []byte // raw encoded image bytes (JPEG or PNG)
	Path  string // source path or object key, used in error messages
	Label string
}

// Prediction is the outcome of scoring one image against the label index.
type Prediction struct {
	Index         int                `json:"index"`
	Label         string             `json:"label"`
	Confidence    float64            `json:"confidence"`
	Probabilities map[string]float64 `json:"probabilities"`
}

// Summary holds the aggregate metrics of one evaluation run.
// Precision, recall and F1 are support-weighted averages over all classes.
type Summary struct {
	Accuracy  float64 `json:"accuracy"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1_score"`
}

// ClassMetrics is the per-class row of a classification report.
type ClassMetrics struct {
	Label     string  `json:"label"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1_score"`
	Support   int     `json:"support"`
}

// Report is the full result of one evaluation run. It is what the results
// stores persist and the renderers consume.
type Report struct {
	Model     string         `json:"model"`
	RunID     string         `json:"run_id"`
	Summary   Summary        `json:"summary"`
	PerClass  []ClassMetrics `json:"per_class"`
	Labels    []string       `json:"labels"`
	Confusion [][]int        `json:"confusion"` // rows = true label, cols = predicted label
	True      []string       `json:"true"`      // in dataset iteration order
	Predicted []string       `json:"predicted"` // same order as True
	Samples   int            `json:"samples"`
	Batches   int            `json:"batches"`
	Duration  time.Duration  `json:"duration"`
	CreatedAt time.Time      `json:"created_at"`
}

// Copy returns a deep copy of the report.
func (r *Report) Copy() *Report {
	q := *r
	q.PerClass = append([]ClassMetrics(nil), r.PerClass...)
	q.Labels = append([]string(nil), r.Labels...)
	q.True = append([]string(nil), r.True...)
	q.Predicted = append([]string(nil), r.Predicted...)
	q.Confusion = make([][]int, len(r.Confusion))
	for i, row := range r.Confusion {
		q.Confusion[i] = append([]int(nil), row...)
	}
	return &q
}

// Comparison holds summaries from several implementations for side-by-side
// reporting. Names and Summaries are index-aligned.
type Comparison struct {
	Names     []string  `json:"names"`
	Summaries []Summary `json:"summaries"`
}
