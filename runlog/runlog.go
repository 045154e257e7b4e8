// Package runlog provides per-batch run recording and aggregate queries for
// evaluation observability.
package runlog

import (
	"context"
	"sync"
	"time"
)

// RunRecord is a single recorded evaluation batch (model, run id, batch
// index, size, latency, success).
type RunRecord struct {
	Model     string
	RunID     string
	Batch     int
	Samples   int
	LatencyMs int64
	Success   bool
	At        time.Time
}

// Store is the interface for recording and querying evaluation batches.
type Store interface {
	Record(ctx context.Context, r RunRecord) error
	Query(ctx context.Context, q Query) ([]Aggregate, error)
}

// Query filters and groups batch records for aggregation.
type Query struct {
	Model   string
	RunID   string
	From    time.Time
	To      time.Time
	GroupBy string // "model", "run", "day", "hour"
	Limit   int
}

// Aggregate is a bucketed aggregate (e.g. per model or per day).
type Aggregate struct {
	Key          string // e.g. model name or "2026-08-23"
	Batches      int64
	SuccessCount int64
	AvgLatencyMs float64
	TotalSamples int64
}

// groupKey returns the aggregation bucket for a record under q.GroupBy.
func groupKey(groupBy string, r RunRecord) string {
	switch groupBy {
	case "model":
		return r.Model
	case "run":
		return r.Model + "@" + r.RunID
	case "day":
		return r.At.Format("2006-01-02")
	case "hour":
		return r.At.Format("2006-01-02-15")
	default:
		return "all"
	}
}

// aggregate folds records into buckets; shared by the memory and Redis stores.
func aggregate(records []RunRecord, q Query) []Aggregate {
	agg := make(map[string]*Aggregate)
	for _, r := range records {
		if q.Model != "" && r.Model != q.Model {
			continue
		}
		if q.RunID != "" && r.RunID != q.RunID {
			continue
		}
		if !q.From.IsZero() && r.At.Before(q.From) {
			continue
		}
		if !q.To.IsZero() && r.At.After(q.To) {
			continue
		}
		k := groupKey(q.GroupBy, r)
		if agg[k] == nil {
			agg[k] = &Aggregate{Key: k}
		}
		a := agg[k]
		a.Batches++
		if r.Success {
			a.SuccessCount++
		}
		a.AvgLatencyMs = (a.AvgLatencyMs*float64(a.Batches-1) + float64(r.LatencyMs)) / float64(a.Batches)
		a.TotalSamples += int64(r.Samples)
	}
	out := make([]Aggregate, 0, len(agg))
	for _, a := range agg {
		out = append(out, *a)
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// MemoryStore is an in-memory implementation (bounded slice, no persistence).
type MemoryStore struct {
	mu      sync.RWMutex
	max     int
	records []RunRecord
}

// NewMemoryStore creates an in-memory store that keeps at most max records
// (0 = unbounded).
func NewMemoryStore(max int) *MemoryStore {
	return &MemoryStore{max: max, records: make([]RunRecord, 0, 256)}
}

// Record implements Store.
func (m *MemoryStore) Record(ctx context.Context, r RunRecord) error {
	if r.At.IsZero() {
		r.At = time.Now()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, r)
	if m.max > 0 && len(m.records) > m.max {
		m.records = m.records[len(m.records)-m.max:]
	}
	return nil
}

// Query implements Store.
func (m *MemoryStore) Query(ctx context.Context, q Query) ([]Aggregate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return aggregate(m.records, q), nil
}
