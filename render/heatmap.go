package render

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/klejdi94/clipbench/core"
)

// Heatmap renders a report's confusion matrix as a heatmap, true labels on
// the vertical axis and predicted labels on the horizontal.
type Heatmap struct {
	Title string
}

// NewHeatmap creates a confusion-matrix renderer.
func NewHeatmap() *Heatmap {
	return &Heatmap{}
}

// confusionGrid adapts a confusion matrix to plotter.GridXYZ. Rows are drawn
// top-down so the first label sits at the top, matching the usual report
// orientation.
type confusionGrid struct {
	labels []string
	counts [][]int
}

func (g confusionGrid) Dims() (c, r int) { return len(g.labels), len(g.labels) }

func (g confusionGrid) Z(c, r int) float64 {
	return float64(g.counts[len(g.labels)-1-r][c])
}

func (g confusionGrid) X(c int) float64 { return float64(c) }

func (g confusionGrid) Y(r int) float64 { return float64(r) }

// Render implements Renderer.
func (h *Heatmap) Render(report *core.Report, path string) error {
	n := len(report.Labels)
	if n == 0 || len(report.Confusion) != n {
		return fmt.Errorf("render heatmap: report has no confusion matrix")
	}
	grid := confusionGrid{labels: report.Labels, counts: report.Confusion}
	hm := plotter.NewHeatMap(grid, palette.Heat(12, 1))

	p := plot.New()
	p.Title.Text = h.Title
	if p.Title.Text == "" {
		p.Title.Text = fmt.Sprintf("%s confusion matrix", report.Model)
	}
	p.X.Label.Text = "predicted"
	p.Y.Label.Text = "true"

	xTicks := make([]plot.Tick, n)
	yTicks := make([]plot.Tick, n)
	for i, label := range report.Labels {
		xTicks[i] = plot.Tick{Value: float64(i), Label: label}
		yTicks[i] = plot.Tick{Value: float64(n - 1 - i), Label: label}
	}
	p.X.Tick.Marker = plot.ConstantTicks(xTicks)
	p.Y.Tick.Marker = plot.ConstantTicks(yTicks)
	p.Add(hm)

	if err := p.Save(6*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("render heatmap: %w", err)
	}
	return nil
}
