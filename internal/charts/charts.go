// Package charts renders the dashboard figures as PNG images.
package charts

import (
	"fmt"
	"io"
	"math"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// Options are the shared presentation settings of a chart.
type Options struct {
	Title  string
	XLabel string
	YLabel string
	Width  int
	Height int
}

func (o Options) size() (int, int) {
	w, h := o.Width, o.Height
	if w <= 0 {
		w = 900
	}
	if h <= 0 {
		h = 450
	}
	return w, h
}

var background = chart.Style{
	Padding:     chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
	FillColor:   drawing.ColorWhite,
	StrokeColor: drawing.ColorFromHex("efefef"),
	StrokeWidth: 1,
}

// Bucket is one histogram bin, [Lo, Hi) except for the last bin which is closed.
type Bucket struct {
	Lo, Hi float64
	Count  int
}

// Bin splits values into equal-width bins, skipping NaN. A constant input
// yields a single bucket.
func Bin(values []float64, bins int) []Bucket {
	if bins <= 0 {
		bins = 30
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	n := 0
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		lo, hi = math.Min(lo, v), math.Max(hi, v)
		n++
	}
	if n == 0 {
		return nil
	}
	if lo == hi {
		return []Bucket{{Lo: lo, Hi: hi, Count: n}}
	}
	width := (hi - lo) / float64(bins)
	out := make([]Bucket, bins)
	for i := range out {
		out[i].Lo = lo + float64(i)*width
		out[i].Hi = lo + float64(i+1)*width
	}
	out[bins-1].Hi = hi
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		i := int((v - lo) / width)
		if i >= bins {
			i = bins - 1
		}
		out[i].Count++
	}
	return out
}

// Histogram renders the distribution of values.
func Histogram(w io.Writer, values []float64, bins int, o Options) error {
	buckets := Bin(values, bins)
	labels := make([]string, len(buckets))
	counts := make([]float64, len(buckets))
	for i, b := range buckets {
		labels[i] = fmt.Sprintf("%.4g", b.Lo)
		counts[i] = float64(b.Count)
	}
	if o.YLabel == "" {
		o.YLabel = "Count"
	}
	return Bar(w, labels, counts, o)
}

// Bar renders one bar per label.
func Bar(w io.Writer, labels []string, values []float64, o Options) error {
	if len(values) == 0 {
		return Empty(w, o)
	}
	width, height := o.size()
	maxVal := 0.0
	bars := make([]chart.Value, len(values))
	for i, v := range values {
		if v > maxVal {
			maxVal = v
		}
		bars[i] = chart.Value{Value: v, Label: labels[i]}
	}
	if maxVal <= 0 {
		maxVal = 1
	}
	barWidth := (width - 80) / (len(bars) * 2)
	if barWidth < 2 {
		barWidth = 2
	}
	if barWidth > 60 {
		barWidth = 60
	}
	graph := chart.BarChart{
		Title:      o.Title,
		Background: background,
		Width:      width,
		Height:     height,
		BarWidth:   barWidth,
		BarSpacing: barWidth,
		Bars:       bars,
		YAxis: chart.YAxis{
			Name:  o.YLabel,
			Range: &chart.ContinuousRange{Min: 0, Max: maxVal * 1.05},
		},
	}
	if err := graph.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render bar chart: %w", err)
	}
	return nil
}

// Pie renders shares of a whole, e.g. the class distribution.
func Pie(w io.Writer, labels []string, values []float64, o Options) error {
	var slices []chart.Value
	for i, v := range values {
		if v > 0 {
			slices = append(slices, chart.Value{Value: v, Label: fmt.Sprintf("%s (%.0f)", labels[i], v)})
		}
	}
	if len(slices) == 0 {
		return Empty(w, o)
	}
	width, height := o.size()
	graph := chart.PieChart{
		Title:      o.Title,
		Background: background,
		Width:      width,
		Height:     height,
		Values:     slices,
	}
	if err := graph.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render pie chart: %w", err)
	}
	return nil
}

// Line renders y against x as a connected series.
func Line(w io.Writer, x, y []float64, o Options) error {
	if len(x) == 0 || len(x) != len(y) {
		return Empty(w, o)
	}
	series := chart.ContinuousSeries{
		Name:    o.YLabel,
		XValues: x,
		YValues: y,
		Style: chart.Style{
			StrokeColor: drawing.ColorBlue,
			StrokeWidth: 2,
			DotColor:    drawing.ColorBlue,
			DotWidth:    3,
		},
	}
	return renderXY(w, []chart.Series{series}, x, y, o, false)
}

// Scatter renders points coloured by group. name labels each group in the legend.
func Scatter(w io.Writer, x, y []float64, groups []int, name func(int) string, o Options) error {
	if len(x) == 0 || len(x) != len(y) || len(groups) != len(x) {
		return Empty(w, o)
	}
	byGroup := map[int][2][]float64{}
	maxGroup := 0
	for i, g := range groups {
		p := byGroup[g]
		p[0] = append(p[0], x[i])
		p[1] = append(p[1], y[i])
		byGroup[g] = p
		if g > maxGroup {
			maxGroup = g
		}
	}
	var series []chart.Series
	for g := 0; g <= maxGroup; g++ {
		p, ok := byGroup[g]
		if !ok {
			continue
		}
		color := chart.GetDefaultColor(g)
		series = append(series, chart.ContinuousSeries{
			Name:    name(g),
			XValues: p[0],
			YValues: p[1],
			Style: chart.Style{
				StrokeWidth: chart.Disabled,
				DotWidth:    3,
				DotColor:    color,
			},
		})
	}
	return renderXY(w, series, x, y, o, true)
}

func renderXY(w io.Writer, series []chart.Series, x, y []float64, o Options, legend bool) error {
	width, height := o.size()
	graph := chart.Chart{
		Title:      o.Title,
		Background: background,
		Width:      width,
		Height:     height,
		XAxis: chart.XAxis{
			Name:           o.XLabel,
			Range:          padded(x),
			ValueFormatter: floatFormatter,
		},
		YAxis: chart.YAxis{
			Name:           o.YLabel,
			Range:          padded(y),
			ValueFormatter: floatFormatter,
		},
		Series: series,
	}
	if legend {
		graph.Elements = []chart.Renderable{chart.Legend(&graph)}
	}
	if err := graph.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}

// Empty renders a blank chart carrying a "no data" note.
func Empty(w io.Writer, o Options) error {
	width, height := o.size()
	graph := chart.Chart{
		Title:      o.Title,
		Background: background,
		Width:      width,
		Height:     height,
		XAxis:      chart.XAxis{Range: &chart.ContinuousRange{Min: 0, Max: 1}},
		YAxis:      chart.YAxis{Range: &chart.ContinuousRange{Min: 0, Max: 1}},
		Series: []chart.Series{
			chart.AnnotationSeries{
				Annotations: []chart.Value2{{XValue: 0.5, YValue: 0.5, Label: "no data for the current filters"}},
			},
		},
	}
	if err := graph.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render empty chart: %w", err)
	}
	return nil
}

// padded returns a range covering vals with a small margin, never of zero width.
func padded(vals []float64) *chart.ContinuousRange {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range vals {
		if math.IsNaN(v) {
			continue
		}
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}
	if math.IsInf(lo, 1) {
		return &chart.ContinuousRange{Min: 0, Max: 1}
	}
	if lo == hi {
		return &chart.ContinuousRange{Min: lo - 1, Max: hi + 1}
	}
	pad := (hi - lo) * 0.05
	return &chart.ContinuousRange{Min: lo - pad, Max: hi + pad}
}

func floatFormatter(v interface{}) string {
	if vf, ok := v.(float64); ok {
		return fmt.Sprintf("%.4g", vf)
	}
	return ""
}
