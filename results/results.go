// Package results provides persistence backends for evaluation reports.
package results

import (
	"context"

	"github.com/klejdi94/clipbench/core"
)

// Filter limits which reports are returned by List.
type Filter struct {
	Models []string
	Limit  int
	Offset int
}

// Store persists evaluation reports keyed by (model, run id).
type Store interface {
	Store(ctx context.Context, report *core.Report) error
	Get(ctx context.Context, model, runID string) (*core.Report, error)
	Latest(ctx context.Context, model string) (*core.Report, error)
	List(ctx context.Context, filter Filter) ([]*core.Report, error)
	Delete(ctx context.Context, model, runID string) error
}

func contains(slice []string, s string) bool {
	for _, v := range slice {
		if v == s {
			return true
		}
	}
	return false
}
