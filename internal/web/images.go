package web

import (
	"bytes"
	"fmt"
	"log"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/KaramelBytes/edadash/internal/analysis"
	"github.com/KaramelBytes/edadash/internal/anomaly"
	"github.com/KaramelBytes/edadash/internal/charts"
	"github.com/KaramelBytes/edadash/internal/features"
	"github.com/KaramelBytes/edadash/internal/fraud"
	"github.com/KaramelBytes/edadash/internal/marketing"
)

type chartFunc func(b *bytes.Buffer, title string) error

func (s *Server) handleFraudChart(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	title, ok := fraudChartTitles[name]
	if !ok {
		http.NotFound(w, r)
		return
	}
	st, err := s.fraudFor(sessionFrom(r), r.URL.Query())
	if err != nil && !unavailable(err) {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	s.png(w, title, func(b *bytes.Buffer, title string) error {
		o := charts.Options{Title: title}
		if st == nil {
			return charts.Empty(b, o)
		}
		return fraudChart(b, name, st, s.cfg.Seed, o)
	})
}

var fraudChartTitles = map[string]string{
	"amount":          "Amount distribution",
	"amount-by-class": "Amount by class",
	"anomalies":       "Amount outliers",
	"classes":         "Class distribution",
	"hourly-rate":     "Fraud rate by hour",
	"hourly-frauds":   "Frauds by hour",
}

// Point groups of the outlier scatter.
var anomalyGroups = []string{"Normal", "Fraud", "Outlier", "Fraud outlier"}

// anomalyPoints places every sampled row at (time in hours, amount), or at its
// row position when there is no time column, grouped by class and outlier flag.
func anomalyPoints(st *fraudState, seed int64) (x, y []float64, groups []int, xLabel string) {
	p := st.Prepared
	view := fraud.SampleForDisplay(st.View, st.Sample, seed)
	amounts, _ := view.Floats(p.Amount)
	labels, _ := view.Floats(p.Label)
	hours, hasHours := view.Floats(fraud.TimeHours)
	hasHours = hasHours && p.HasTime()
	xLabel = "Row"
	if hasHours {
		xLabel = "Time (hours)"
	}
	var fences anomaly.Fences
	if st.Analysis.Outliers != nil {
		fences = st.Analysis.Outliers.Fences
	}
	for i, v := range amounts {
		if math.IsNaN(v) {
			continue
		}
		xv := float64(i)
		if hasHours {
			if math.IsNaN(hours[i]) {
				continue
			}
			xv = hours[i]
		}
		g := 0
		if labels[i] == 1 {
			g = 1
		}
		if fences.IsOutlier(v) {
			g += 2
		}
		x, y, groups = append(x, xv), append(y, v), append(groups, g)
	}
	return x, y, groups, xLabel
}

func fraudChart(b *bytes.Buffer, name string, st *fraudState, seed int64, o charts.Options) error {
	a := st.Analysis
	switch name {
	case "amount":
		view := fraud.SampleForDisplay(st.View, st.Sample, seed)
		amounts, _ := view.Floats(st.Prepared.Amount)
		o.XLabel = st.Prepared.Amount
		return charts.Histogram(b, amounts, 30, o)
	case "amount-by-class":
		var boxes []charts.BoxStats
		for _, cs := range []struct {
			name  string
			class float64
		}{{"Normal", 0}, {"Fraud", 1}} {
			vals := classAmounts(st, cs.class)
			if b, ok := charts.BoxOf(cs.name, vals); ok {
				boxes = append(boxes, b)
			}
		}
		o.YLabel = st.Prepared.Amount
		return charts.Box(b, boxes, o)
	case "anomalies":
		x, y, groups, xLabel := anomalyPoints(st, seed)
		o.XLabel, o.YLabel = xLabel, st.Prepared.Amount
		return charts.Scatter(b, x, y, groups, func(g int) string { return anomalyGroups[g] }, o)
	case "classes":
		normal, fr := a.ClassCounts()
		return charts.Pie(b, []string{"Normal", "Fraud"}, []float64{float64(normal), float64(fr)}, o)
	case "hourly-rate":
		x := make([]float64, len(a.Hourly))
		y := make([]float64, len(a.Hourly))
		for i, h := range a.Hourly {
			x[i], y[i] = float64(h.Hour), h.Rate*100
		}
		o.XLabel, o.YLabel = "Hour", "Fraud rate (%)"
		return charts.Line(b, x, y, o)
	default:
		labels := make([]string, len(a.Hourly))
		counts := make([]float64, len(a.Hourly))
		for i, h := range a.Hourly {
			labels[i], counts[i] = strconv.Itoa(h.Hour), float64(h.Frauds)
		}
		o.YLabel = "Frauds"
		return charts.Bar(b, labels, counts, o)
	}
}

var marketingChartTitles = map[string]string{
	"sizes":      "Customers per segment",
	"projection": "Segments (PCA projection)",
	"spending":   "Total spending distribution",
	"categories": "Mean spending per category",
}

// classAmounts returns the view's amounts of one label class.
func classAmounts(st *fraudState, class float64) []float64 {
	amounts, _ := st.View.Floats(st.Prepared.Amount)
	labels, _ := st.View.Floats(st.Prepared.Label)
	var out []float64
	for i, v := range amounts {
		if labels[i] == class {
			out = append(out, v)
		}
	}
	return out
}

// categoryMeans averages every spend column, skipping missing values.
func categoryMeans(res *marketing.Result) (names []string, means []float64) {
	for _, c := range res.Derived.SpendColumns {
		vals, ok := res.Table.Floats(c)
		if !ok {
			continue
		}
		d := analysis.Describe(vals)
		if d.Count == 0 {
			continue
		}
		names, means = append(names, c), append(means, d.Mean)
	}
	return names, means
}

func (s *Server) handleMarketingChart(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	title, ok := marketingChartTitles[name]
	if !ok {
		http.NotFound(w, r)
		return
	}
	res, _, err := s.marketingFor(r, sessionFrom(r))
	if err != nil && !unavailable(err) {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	s.png(w, title, func(b *bytes.Buffer, title string) error {
		o := charts.Options{Title: title}
		if res == nil || !res.Available {
			return charts.Empty(b, o)
		}
		return marketingChart(b, name, res, o)
	})
}

func marketingChart(b *bytes.Buffer, name string, res *marketing.Result, o charts.Options) error {
	switch name {
	case "sizes":
		sizes := res.Sizes()
		labels := make([]string, len(sizes))
		vals := make([]float64, len(sizes))
		for id, n := range sizes {
			labels[id], vals[id] = res.SegmentLabel(id), float64(n)
		}
		o.YLabel = "Customers"
		return charts.Bar(b, labels, vals, o)
	case "projection":
		p := res.Projection
		o.XLabel, o.YLabel = "PC1", "PC2"
		if len(p.Explained) == 2 {
			o.XLabel = fmt.Sprintf("PC1 (%.1f%%)", p.Explained[0]*100)
			o.YLabel = fmt.Sprintf("PC2 (%.1f%%)", p.Explained[1]*100)
		}
		return charts.Scatter(b, p.X, p.Y, res.Segmentation.Labels, res.SegmentLabel, o)
	case "categories":
		names, means := categoryMeans(res)
		o.YLabel = "Mean spending"
		return charts.Bar(b, names, means, o)
	default:
		spend, ok := res.Table.Floats(features.TotalSpending)
		if !ok {
			return charts.Empty(b, o)
		}
		o.XLabel = features.TotalSpending
		return charts.Histogram(b, spend, 30, o)
	}
}

// png renders into a buffer first so a failed chart never sends a partial image.
func (s *Server) png(w http.ResponseWriter, title string, draw chartFunc) {
	var b bytes.Buffer
	if err := draw(&b, title); err != nil {
		log.Printf("[Server] chart %q: %v", title, err)
		http.Error(w, "chart rendering failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = b.WriteTo(w)
}
