package cluster

import (
	"gonum.org/v1/gonum/floats"

	"github.com/KaramelBytes/edadash/internal/dataset"
)

// Silhouette returns the mean silhouette coefficient of a labeling. Points in
// singleton clusters score 0. ok is false when the score is undefined: fewer
// than two distinct labels, or every point in its own cluster.
func Silhouette(x [][]float64, labels []int) (score float64, ok bool) {
	n := len(x)
	if n == 0 || len(labels) != n {
		return 0, false
	}
	size := map[int]int{}
	for _, l := range labels {
		size[l]++
	}
	if len(size) < 2 || len(size) == n {
		return 0, false
	}
	var total float64
	for i := 0; i < n; i++ {
		own := labels[i]
		if size[own] == 1 {
			continue
		}
		sum := map[int]float64{}
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			sum[labels[j]] += floats.Distance(x[i], x[j], 2)
		}
		a := sum[own] / float64(size[own]-1)
		b := -1.0
		for l, s := range sum {
			if l == own {
				continue
			}
			if m := s / float64(size[l]); b < 0 || m < b {
				b = m
			}
		}
		den := a
		if b > den {
			den = b
		}
		if den > 0 {
			total += (b - a) / den
		}
	}
	return total / float64(n), true
}

// sampledSilhouette scores a labeling on at most limit rows picked
// deterministically from seed.
func sampledSilhouette(x [][]float64, labels []int, limit int, seed int64) (float64, bool) {
	if limit <= 0 || limit >= len(x) {
		return Silhouette(x, labels)
	}
	idx := dataset.SampleIndices(len(x), limit, seed)
	sx := make([][]float64, len(idx))
	sl := make([]int, len(idx))
	for j, i := range idx {
		sx[j], sl[j] = x[i], labels[i]
	}
	return Silhouette(sx, sl)
}
