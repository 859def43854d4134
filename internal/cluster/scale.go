package cluster

import (
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/edadash/internal/dataset"
)

// Scaler holds per-feature standardization parameters.
type Scaler struct {
	Features []string
	Median   []float64
	Mean     []float64
	Scale    []float64
}

// Transform fills missing values with the training median and standardizes.
func (s *Scaler) Transform(row []float64) []float64 {
	out := make([]float64, len(row))
	for j, v := range row {
		if math.IsNaN(v) {
			v = s.Median[j]
		}
		out[j] = (v - s.Mean[j]) / s.Scale[j]
	}
	return out
}

// usableFeatures keeps the features that exist and hold at least one number.
func usableFeatures(t *dataset.Table, features []string) ([]string, [][]float64) {
	var names []string
	var cols [][]float64
	for _, f := range features {
		vals, ok := t.Floats(f)
		if !ok {
			continue
		}
		present := false
		for _, v := range vals {
			if !math.IsNaN(v) {
				present = true
				break
			}
		}
		if !present {
			continue
		}
		names = append(names, f)
		cols = append(cols, vals)
	}
	return names, cols
}

// fitTransform median-fills each column, then scales it to zero mean and
// unit population variance. A constant column keeps scale 1 and becomes
// all zeros. The result is row-major.
func fitTransform(names []string, cols [][]float64) (*Scaler, [][]float64) {
	n := 0
	if len(cols) > 0 {
		n = len(cols[0])
	}
	sc := &Scaler{
		Features: names,
		Median:   make([]float64, len(cols)),
		Mean:     make([]float64, len(cols)),
		Scale:    make([]float64, len(cols)),
	}
	filled := make([][]float64, len(cols))
	for j, col := range cols {
		present := make([]float64, 0, len(col))
		for _, v := range col {
			if !math.IsNaN(v) {
				present = append(present, v)
			}
		}
		med, err := stats.Median(present)
		if err != nil || math.IsNaN(med) {
			med = 0
		}
		f := make([]float64, len(col))
		for i, v := range col {
			if math.IsNaN(v) {
				v = med
			}
			f[i] = v
		}
		mean, std := stat.PopMeanStdDev(f, nil)
		if std == 0 || math.IsNaN(std) {
			std = 1
		}
		sc.Median[j], sc.Mean[j], sc.Scale[j] = med, mean, std
		filled[j] = f
	}
	x := make([][]float64, n)
	for i := range x {
		row := make([]float64, len(cols))
		for j := range cols {
			row[j] = (filled[j][i] - sc.Mean[j]) / sc.Scale[j]
		}
		x[i] = row
	}
	return sc, x
}
