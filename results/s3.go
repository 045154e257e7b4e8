// Package results S3-compatible storage via BlobStore interface.
package results

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/klejdi94/clipbench/core"
)

// BlobStore is a minimal key-value store for S3-compatible backends (e.g.
// AWS S3, MinIO).
type BlobStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, body []byte) error
	List(ctx context.Context, prefix string) ([]string, error)
	Delete(ctx context.Context, key string) error
}

// S3Store stores reports using a BlobStore.
// Keys: prefix/report/model/runID.json.
type S3Store struct {
	store  BlobStore
	prefix string
}

// NewS3Store creates a store using the given BlobStore (e.g. from
// results/s3blob) and key prefix.
func NewS3Store(store BlobStore, prefix string) *S3Store {
	prefix = strings.Trim(prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	return &S3Store{store: store, prefix: prefix}
}

func (s *S3Store) reportKey(model, runID string) string {
	return s.prefix + "report/" + model + "/" + runID + ".json"
}

// Store saves a report to the blob store.
func (s *S3Store) Store(ctx context.Context, report *core.Report) error {
	if report == nil || report.Model == "" || report.RunID == "" {
		return fmt.Errorf("s3 store: report model and run id required")
	}
	data, err := json.Marshal(report)
	if err != nil {
		return err
	}
	return s.store.Put(ctx, s.reportKey(report.Model, report.RunID), data)
}

// Get retrieves a report by model and run id.
func (s *S3Store) Get(ctx context.Context, model, runID string) (*core.Report, error) {
	data, err := s.store.Get(ctx, s.reportKey(model, runID))
	if err != nil {
		return nil, core.ErrReportNotFound
	}
	var r core.Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// Latest returns the model's most recent report by CreatedAt.
func (s *S3Store) Latest(ctx context.Context, model string) (*core.Report, error) {
	reports, err := s.List(ctx, Filter{Models: []string{model}})
	if err != nil {
		return nil, err
	}
	if len(reports) == 0 {
		return nil, core.ErrReportNotFound
	}
	return reports[0], nil
}

// List returns reports matching the filter by listing the report prefix,
// newest first.
func (s *S3Store) List(ctx context.Context, filter Filter) ([]*core.Report, error) {
	keys, err := s.store.List(ctx, s.prefix+"report/")
	if err != nil {
		return nil, err
	}
	var all []*core.Report
	for _, key := range keys {
		if !strings.HasSuffix(key, ".json") {
			continue
		}
		trim := strings.TrimPrefix(key, s.prefix+"report/")
		parts := strings.SplitN(trim, "/", 2)
		if len(parts) != 2 {
			continue
		}
		model := parts[0]
		if len(filter.Models) > 0 && !contains(filter.Models, model) {
			continue
		}
		r, err := s.Get(ctx, model, strings.TrimSuffix(parts[1], ".json"))
		if err != nil {
			continue
		}
		all = append(all, r)
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

// Delete removes a report.
func (s *S3Store) Delete(ctx context.Context, model, runID string) error {
	key := s.reportKey(model, runID)
	if _, err := s.store.Get(ctx, key); err != nil {
		return core.ErrReportNotFound
	}
	return s.store.Delete(ctx, key)
}
