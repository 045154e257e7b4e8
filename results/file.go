// Package results file-based storage implementation.
package results

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klejdi94/clipbench/core"
)

// FileStore stores reports as JSON files in a directory.
// File names: {model}_{runID}.json (sanitized).
type FileStore struct {
	dir string
}

// NewFileStore creates a file-based store rooted at dir.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("file store: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func sanitize(s string) string {
	s = strings.ReplaceAll(s, string(filepath.Separator), "_")
	return strings.ReplaceAll(s, ":", "_")
}

func (f *FileStore) filename(model, runID string) string {
	return filepath.Join(f.dir, sanitize(model)+"_"+sanitize(runID)+".json")
}

// Store saves a report as a JSON file.
func (f *FileStore) Store(ctx context.Context, report *core.Report) error {
	if report == nil || report.Model == "" || report.RunID == "" {
		return fmt.Errorf("file store: report model and run id required")
	}
	payload, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("file store encode: %w", err)
	}
	return os.WriteFile(f.filename(report.Model, report.RunID), payload, 0644)
}

// Get reads a report from disk.
func (f *FileStore) Get(ctx context.Context, model, runID string) (*core.Report, error) {
	data, err := os.ReadFile(f.filename(model, runID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, core.ErrReportNotFound
		}
		return nil, err
	}
	var r core.Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("file store decode: %w", err)
	}
	return &r, nil
}

// Latest returns the model's most recent report by CreatedAt (scans directory).
func (f *FileStore) Latest(ctx context.Context, model string) (*core.Report, error) {
	reports, err := f.List(ctx, Filter{Models: []string{model}})
	if err != nil {
		return nil, err
	}
	if len(reports) == 0 {
		return nil, core.ErrReportNotFound
	}
	return reports[0], nil
}

// List lists reports matching the filter (scans directory), newest first.
func (f *FileStore) List(ctx context.Context, filter Filter) ([]*core.Report, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, err
	}
	var all []*core.Report
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(f.dir, e.Name()))
		if err != nil {
			continue
		}
		var r core.Report
		if err := json.Unmarshal(data, &r); err != nil {
			continue
		}
		if len(filter.Models) > 0 && !contains(filter.Models, r.Model) {
			continue
		}
		all = append(all, &r)
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
	return all, nil
}

// Delete removes the report file.
func (f *FileStore) Delete(ctx context.Context, model, runID string) error {
	path := f.filename(model, runID)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return core.ErrReportNotFound
		}
		return err
	}
	return os.Remove(path)
}
