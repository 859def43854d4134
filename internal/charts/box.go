package charts

import (
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/wcharczuk/go-chart/v2"

	"github.com/KaramelBytes/edadash/internal/analysis"
	"github.com/KaramelBytes/edadash/internal/anomaly"
)

// BoxStats is one box of a box plot. The whiskers reach the most extreme
// values inside the 1.5·IQR fences; everything beyond is drawn as a point.
type BoxStats struct {
	Label                     string
	Low, Q1, Median, Q3, High float64
	Outliers                  []float64
}

// BoxOf summarises values, skipping NaN. ok is false when nothing is left.
func BoxOf(label string, values []float64) (b BoxStats, ok bool) {
	f := anomaly.ComputeFences(values)
	if f.N == 0 {
		return BoxStats{Label: label}, false
	}
	sorted := make([]float64, 0, f.N)
	for _, v := range values {
		if !math.IsNaN(v) {
			sorted = append(sorted, v)
		}
	}
	sort.Float64s(sorted)
	b = BoxStats{
		Label:  label,
		Q1:     f.Q1,
		Median: analysis.Quantile(sorted, 0.5),
		Q3:     f.Q3,
		Low:    math.Inf(1),
		High:   math.Inf(-1),
	}
	for _, v := range sorted {
		if f.IsOutlier(v) {
			b.Outliers = append(b.Outliers, v)
			continue
		}
		b.Low, b.High = math.Min(b.Low, v), math.Max(b.High, v)
	}
	return b, true
}

// Box renders one box per entry, side by side.
func Box(w io.Writer, boxes []BoxStats, o Options) error {
	if len(boxes) == 0 {
		return Empty(w, o)
	}
	ticks := []chart.Tick{{Value: -0.5}}
	var ys []float64
	for i, b := range boxes {
		ticks = append(ticks, chart.Tick{Value: float64(i), Label: b.Label})
		ys = append(ys, b.Low, b.High)
		ys = append(ys, b.Outliers...)
	}
	ticks = append(ticks, chart.Tick{Value: float64(len(boxes)) - 0.5})

	width, height := o.size()
	graph := chart.Chart{
		Title:      o.Title,
		Background: background,
		Width:      width,
		Height:     height,
		XAxis:      chart.XAxis{Name: o.XLabel, Ticks: ticks},
		YAxis: chart.YAxis{
			Name:           o.YLabel,
			Range:          padded(ys),
			ValueFormatter: floatFormatter,
		},
		Series: []chart.Series{boxSeries{boxes: boxes}},
	}
	if err := graph.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render box plot: %w", err)
	}
	return nil
}

type boxSeries struct {
	boxes []BoxStats
}

func (boxSeries) GetName() string           { return "" }
func (boxSeries) GetYAxis() chart.YAxisType { return chart.YAxisPrimary }
func (boxSeries) GetStyle() chart.Style     { return chart.Style{} }
func (boxSeries) Validate() error           { return nil }

func (bs boxSeries) Render(r chart.Renderer, canvas chart.Box, xrange, yrange chart.Range, _ chart.Style) {
	y := func(v float64) int { return canvas.Bottom - yrange.Translate(v) }
	line := func(x0, y0, x1, y1 int, s chart.Style) {
		s.GetStrokeOptions().WriteDrawingOptionsToRenderer(r)
		r.MoveTo(x0, y0)
		r.LineTo(x1, y1)
		r.Stroke()
		r.ResetStyle()
	}
	for i, b := range bs.boxes {
		color := chart.GetDefaultColor(i)
		stroke := chart.Style{StrokeColor: color, StrokeWidth: 1.5}
		cx := canvas.Left + xrange.Translate(float64(i))
		half := xrange.Translate(float64(i)+0.25) - xrange.Translate(float64(i))
		if half < 2 {
			half = 2
		}

		line(cx, y(b.Low), cx, y(b.Q1), stroke)
		line(cx, y(b.Q3), cx, y(b.High), stroke)
		line(cx-half/2, y(b.Low), cx+half/2, y(b.Low), stroke)
		line(cx-half/2, y(b.High), cx+half/2, y(b.High), stroke)
		chart.Draw.Box(r, chart.Box{Top: y(b.Q3), Bottom: y(b.Q1), Left: cx - half, Right: cx + half},
			chart.Style{FillColor: color.WithAlpha(80), StrokeColor: color, StrokeWidth: 1.5})
		line(cx-half, y(b.Median), cx+half, y(b.Median), chart.Style{StrokeColor: color, StrokeWidth: 2.5})

		dots := chart.Style{FillColor: color, StrokeColor: color, StrokeWidth: 1}
		for _, v := range b.Outliers {
			dots.WriteDrawingOptionsToRenderer(r)
			r.Circle(2, cx, y(v))
			r.FillStroke()
			r.ResetStyle()
		}
	}
}
