package cluster

import (
	"errors"
	"math"
	"math/rand"
)

// Model is a fitted K-Means model.
type Model struct {
	Centroids  [][]float64
	Inertia    float64
	Iterations int
}

// Predict returns the index of the nearest centroid. Ties go to the lower id.
func (m *Model) Predict(row []float64) int {
	best, bestD := 0, math.Inf(1)
	for c, cen := range m.Centroids {
		if d := sqDist(row, cen); d < bestD {
			best, bestD = c, d
		}
	}
	return best
}

// KMeans clusters the rows of x into k groups. It runs opts.NInit k-means++
// initialisations drawn from a source seeded with opts.Seed and keeps the
// lowest-inertia result. A cluster that loses all its points keeps its last
// centroid and stays empty.
func KMeans(x [][]float64, k int, opts Options) (*Model, []int, error) {
	opts = opts.withDefaults()
	n := len(x)
	if n == 0 {
		return nil, nil, ErrNoRows
	}
	if k <= 0 {
		return nil, nil, errors.New("k must be positive")
	}
	if k > n {
		k = n
	}
	rng := rand.New(rand.NewSource(opts.Seed))
	var best *Model
	var bestLabels []int
	for run := 0; run < opts.NInit; run++ {
		centroids := seedPlusPlus(x, k, rng)
		m, labels := lloyd(x, centroids, opts.MaxIter, opts.Tol)
		if best == nil || m.Inertia < best.Inertia {
			best, bestLabels = m, labels
		}
	}
	return best, bestLabels, nil
}

func seedPlusPlus(x [][]float64, k int, rng *rand.Rand) [][]float64 {
	n := len(x)
	centroids := make([][]float64, 0, k)
	centroids = append(centroids, clone(x[rng.Intn(n)]))
	d2 := make([]float64, n)
	for i := range x {
		d2[i] = sqDist(x[i], centroids[0])
	}
	for len(centroids) < k {
		var total float64
		for _, d := range d2 {
			total += d
		}
		idx := 0
		if total == 0 {
			idx = rng.Intn(n)
		} else {
			r := rng.Float64() * total
			for i, d := range d2 {
				r -= d
				if r <= 0 {
					idx = i
					break
				}
				idx = i
			}
		}
		c := clone(x[idx])
		centroids = append(centroids, c)
		for i := range x {
			if d := sqDist(x[i], c); d < d2[i] {
				d2[i] = d
			}
		}
	}
	return centroids
}

func lloyd(x [][]float64, centroids [][]float64, maxIter int, tol float64) (*Model, []int) {
	n, k := len(x), len(centroids)
	dim := len(x[0])
	labels := make([]int, n)
	m := &Model{Centroids: centroids}
	for it := 1; it <= maxIter; it++ {
		m.Iterations = it
		for i, row := range x {
			labels[i] = m.Predict(row)
		}
		sums := make([][]float64, k)
		counts := make([]int, k)
		for c := range sums {
			sums[c] = make([]float64, dim)
		}
		for i, row := range x {
			c := labels[i]
			counts[c]++
			for j, v := range row {
				sums[c][j] += v
			}
		}
		var shift float64
		for c := range centroids {
			if counts[c] == 0 {
				continue
			}
			for j := range sums[c] {
				sums[c][j] /= float64(counts[c])
			}
			shift += sqDist(centroids[c], sums[c])
			centroids[c] = sums[c]
		}
		if shift <= tol {
			break
		}
	}
	m.Inertia = 0
	for i, row := range x {
		labels[i] = m.Predict(row)
		m.Inertia += sqDist(row, centroids[labels[i]])
	}
	return m, labels
}

func sqDist(a, b []float64) float64 {
	var s float64
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	return s
}

func clone(v []float64) []float64 { return append([]float64(nil), v...) }
