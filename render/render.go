// Package render draws evaluation results to image files: a confusion-matrix
// heatmap, a per-run metrics bar chart, and a cross-implementation comparison
// chart. The scoring and metrics packages have no I/O side effects; all
// chart output happens here.
package render

import (
	"github.com/klejdi94/clipbench/core"
)

// Renderer renders one run report to an image file at path. The file format
// follows the path extension (.png, .svg, .pdf).
type Renderer interface {
	Render(report *core.Report, path string) error
}

// ComparisonRenderer renders a cross-implementation comparison to an image
// file at path.
type ComparisonRenderer interface {
	RenderComparison(cmp *core.Comparison, path string) error
}
