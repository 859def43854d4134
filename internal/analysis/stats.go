package analysis

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"
)

// Quantile returns the q-th quantile of an ascending slice using linear
// interpolation between the closest ranks (h = (n-1)q).
func Quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}

// Round rounds v half away from zero to precision decimals.
func Round(v float64, precision int) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	p := math.Pow(10, float64(precision))
	return math.Round(v*p) / p
}

// Description is the classic count/mean/std/min/quartiles/max summary.
type Description struct {
	Count int
	Mean  float64
	Std   float64
	Min   float64
	Q25   float64
	Q50   float64
	Q75   float64
	Max   float64
}

// Describe summarises values, skipping NaN. Std is the sample standard
// deviation and is NaN with fewer than two values; every statistic is NaN
// for an empty input.
func Describe(values []float64) Description {
	data := present(values)
	d := Description{Count: len(data)}
	if len(data) == 0 {
		nan := math.NaN()
		d.Mean, d.Std, d.Min, d.Q25, d.Q50, d.Q75, d.Max = nan, nan, nan, nan, nan, nan, nan
		return d
	}
	sort.Float64s(data)
	d.Mean, _ = stats.Mean(data)
	d.Std = math.NaN()
	if len(data) > 1 {
		d.Std, _ = stats.StandardDeviationSample(data)
	}
	d.Min, _ = stats.Min(data)
	d.Max, _ = stats.Max(data)
	d.Q25 = Quantile(data, 0.25)
	d.Q50 = Quantile(data, 0.5)
	d.Q75 = Quantile(data, 0.75)
	return d
}

// Rounded returns a copy with every statistic rounded to precision decimals.
func (d Description) Rounded(precision int) Description {
	d.Mean = Round(d.Mean, precision)
	d.Std = Round(d.Std, precision)
	d.Min = Round(d.Min, precision)
	d.Q25 = Round(d.Q25, precision)
	d.Q50 = Round(d.Q50, precision)
	d.Q75 = Round(d.Q75, precision)
	d.Max = Round(d.Max, precision)
	return d
}

// Values lists the statistics in display order, matching DescribeLabels.
func (d Description) Values() []float64 {
	return []float64{float64(d.Count), d.Mean, d.Std, d.Min, d.Q25, d.Q50, d.Q75, d.Max}
}

// DescribeLabels are the row labels of a description table.
var DescribeLabels = []string{"count", "mean", "std", "min", "25%", "50%", "75%", "max"}

func present(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}
