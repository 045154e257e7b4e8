package render

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/klejdi94/clipbench/core"
)

var metricNames = []string{"accuracy", "precision", "recall", "f1"}

func summaryValues(s core.Summary) plotter.Values {
	return plotter.Values{s.Accuracy, s.Precision, s.Recall, s.F1}
}

// MetricsBars renders one run's summary metrics as a bar chart.
type MetricsBars struct {
	Title string
}

// NewMetricsBars creates a summary-metrics renderer.
func NewMetricsBars() *MetricsBars {
	return &MetricsBars{}
}

// Render implements Renderer.
func (m *MetricsBars) Render(report *core.Report, path string) error {
	bars, err := plotter.NewBarChart(summaryValues(report.Summary), vg.Points(40))
	if err != nil {
		return fmt.Errorf("render metrics: %w", err)
	}
	bars.LineStyle.Width = 0
	bars.Color = plotutil.Color(0)

	p := plot.New()
	p.Title.Text = m.Title
	if p.Title.Text == "" {
		p.Title.Text = fmt.Sprintf("%s (%d samples)", report.Model, report.Samples)
	}
	p.Y.Label.Text = "score"
	p.Y.Min, p.Y.Max = 0, 1
	p.Add(bars)
	p.NominalX(metricNames...)

	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("render metrics: %w", err)
	}
	return nil
}

// ComparisonBars renders a grouped bar chart of summary metrics across
// implementations, one group per metric with one bar per implementation.
type ComparisonBars struct {
	Title string
}

// NewComparisonBars creates a comparison renderer.
func NewComparisonBars() *ComparisonBars {
	return &ComparisonBars{Title: "zero-shot comparison"}
}

// RenderComparison implements ComparisonRenderer.
func (c *ComparisonBars) RenderComparison(cmp *core.Comparison, path string) error {
	if len(cmp.Names) == 0 {
		return fmt.Errorf("render comparison: no implementations")
	}

	p := plot.New()
	p.Title.Text = c.Title
	p.Y.Label.Text = "score"
	p.Y.Min, p.Y.Max = 0, 1

	w := vg.Points(18)
	offset := -w * vg.Length(len(cmp.Names)-1) / 2
	for i, name := range cmp.Names {
		bars, err := plotter.NewBarChart(summaryValues(cmp.Summaries[i]), w)
		if err != nil {
			return fmt.Errorf("render comparison: %w", err)
		}
		bars.LineStyle.Width = 0
		bars.Color = plotutil.Color(i)
		bars.Offset = offset + w*vg.Length(i)
		p.Add(bars)
		p.Legend.Add(name, bars)
	}
	p.Legend.Top = true
	p.NominalX(metricNames...)

	if err := p.Save(8*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("render comparison: %w", err)
	}
	return nil
}
