// Package anomaly flags outliers with Tukey's 1.5·IQR fences.
package anomaly

import (
	"math"
	"sort"

	"github.com/KaramelBytes/edadash/internal/analysis"
	"github.com/KaramelBytes/edadash/internal/dataset"
)

// FlagColumn is the 0/1 column added by Flag.
const FlagColumn = "Is_Outlier"

// Multiplier scales the IQR to place the fences.
const Multiplier = 1.5

// Fences are the IQR outlier bounds of a column.
type Fences struct {
	Q1, Q3       float64
	IQR          float64
	Lower, Upper float64
	// N is the number of non-missing values the fences were computed from.
	N int
}

// ComputeFences ignores NaN values and uses linear interpolation between
// order statistics for the quartiles.
func ComputeFences(values []float64) Fences {
	sorted := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			sorted = append(sorted, v)
		}
	}
	sort.Float64s(sorted)
	f := Fences{N: len(sorted)}
	if len(sorted) == 0 {
		return f
	}
	f.Q1 = analysis.Quantile(sorted, 0.25)
	f.Q3 = analysis.Quantile(sorted, 0.75)
	f.IQR = f.Q3 - f.Q1
	f.Lower = f.Q1 - Multiplier*f.IQR
	f.Upper = f.Q3 + Multiplier*f.IQR
	return f
}

// IsOutlier reports whether v lies strictly outside the fences.
// Missing values are never outliers.
func (f Fences) IsOutlier(v float64) bool {
	if math.IsNaN(v) || f.N == 0 {
		return false
	}
	return v < f.Lower || v > f.Upper
}

// Result summarises the outliers of one column.
type Result struct {
	Column string
	Fences Fences
	// Rows are the outlier row indices in table order.
	Rows  []int
	Count int
	Total int
	Rate  float64
	// LabelRate is the mean of the label column over the outliers; it is
	// only meaningful when HasLabel is set.
	LabelRate float64
	HasLabel  bool
}

// Detect finds the outliers of column in t. When label names an existing
// column, the label mean over the outlier rows is reported as well.
func Detect(t *dataset.Table, column, label string) (*Result, error) {
	vals, ok := t.Floats(column)
	if !ok {
		return nil, &dataset.MissingColumnError{Role: "outlier", Candidates: []string{column}}
	}
	r := &Result{Column: column, Fences: ComputeFences(vals), Total: t.Rows()}
	for i, v := range vals {
		if r.Fences.IsOutlier(v) {
			r.Rows = append(r.Rows, i)
		}
	}
	r.Count = len(r.Rows)
	if r.Total > 0 {
		r.Rate = float64(r.Count) / float64(r.Total)
	}
	if lv, ok := t.Floats(label); ok && label != "" {
		r.HasLabel = true
		var sum float64
		var n int
		for _, i := range r.Rows {
			if !math.IsNaN(lv[i]) {
				sum += lv[i]
				n++
			}
		}
		if n > 0 {
			r.LabelRate = sum / float64(n)
		}
	}
	return r, nil
}

// Flag adds the Is_Outlier column (1 for outliers, 0 otherwise).
func Flag(t *dataset.Table, r *Result) error {
	flags := make([]float64, t.Rows())
	for _, i := range r.Rows {
		flags[i] = 1
	}
	return t.SetFloats(FlagColumn, flags)
}

// Subset returns a copy of the outlier rows.
func Subset(t *dataset.Table, r *Result) *dataset.Table {
	return t.Select(append([]int{}, r.Rows...))
}
