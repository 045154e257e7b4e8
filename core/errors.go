// Package core provides fundamental types and interfaces for the clipbench toolkit.
package core

import (
	"errors"
	"fmt"
)

// Sentinel errors for evaluation operations.
var (
	ErrReportNotFound    = errors.New("report not found")
	ErrEmptyVocabulary   = errors.New("empty label vocabulary")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	ErrBatchMismatch     = errors.New("true and predicted batch lengths differ")
)

// ValidationError carries field-level validation context for dataset records.
type ValidationError struct {
	Field   string
	Record  int
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("record %d: field %q: %s", e.Record, e.Field, e.Message)
}
