package results

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/klejdi94/clipbench/core"
)

// MemoryStore is an in-memory report store (testing and single-process use).
type MemoryStore struct {
	mu      sync.RWMutex
	reports map[string]map[string]*core.Report // model -> run id -> report
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		reports: make(map[string]map[string]*core.Report),
	}
}

// Store saves a report. Overwrites if model+run id already exists.
func (m *MemoryStore) Store(ctx context.Context, report *core.Report) error {
	if report == nil {
		return fmt.Errorf("report is nil")
	}
	if report.Model == "" || report.RunID == "" {
		return fmt.Errorf("report model and run id are required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.reports[report.Model] == nil {
		m.reports[report.Model] = make(map[string]*core.Report)
	}
	// Copy so caller cannot mutate stored report
	m.reports[report.Model][report.RunID] = report.Copy()
	return nil
}

// Get returns a report by model and run id.
func (m *MemoryStore) Get(ctx context.Context, model, runID string) (*core.Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	runs, ok := m.reports[model]
	if !ok {
		return nil, core.ErrReportNotFound
	}
	r, ok := runs[runID]
	if !ok {
		return nil, core.ErrReportNotFound
	}
	return r.Copy(), nil
}

// Latest returns the model's most recent report by CreatedAt.
func (m *MemoryStore) Latest(ctx context.Context, model string) (*core.Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	runs, ok := m.reports[model]
	if !ok || len(runs) == 0 {
		return nil, core.ErrReportNotFound
	}
	var latest *core.Report
	for _, r := range runs {
		if latest == nil || r.CreatedAt.After(latest.CreatedAt) {
			latest = r
		}
	}
	return latest.Copy(), nil
}

// List returns reports matching the filter, newest first.
func (m *MemoryStore) List(ctx context.Context, filter Filter) ([]*core.Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var all []*core.Report
	for model, runs := range m.reports {
		if len(filter.Models) > 0 && !contains(filter.Models, model) {
			continue
		}
		for _, r := range runs {
			all = append(all, r)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	limit := filter.Limit
	if limit <= 0 {
		limit = 1000
	}
	offset := filter.Offset
	if offset > len(all) {
		offset = len(all)
	}
	all = all[offset:]
	if len(all) > limit {
		all = all[:limit]
	}
	out := make([]*core.Report, len(all))
	for i, r := range all {
		out[i] = r.Copy()
	}
	return out, nil
}

// Delete removes a report.
func (m *MemoryStore) Delete(ctx context.Context, model, runID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	runs, ok := m.reports[model]
	if !ok {
		return core.ErrReportNotFound
	}
	if _, ok := runs[runID]; !ok {
		return core.ErrReportNotFound
	}
	delete(runs, runID)
	if len(runs) == 0 {
		delete(m.reports, model)
	}
	return nil
}
