// Package cluster standardizes numeric features and partitions rows with
// K-Means, optionally choosing k by silhouette score.
package cluster

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/KaramelBytes/edadash/internal/dataset"
)

// Column is the name of the cluster-id column added to segmented tables.
const Column = "Cluster"

var (
	// ErrNoNumericFeatures means none of the requested features hold numbers.
	ErrNoNumericFeatures = errors.New("no numeric features to segment on")
	// ErrNoRows means the table is empty.
	ErrNoRows = errors.New("no rows to segment")
)

// Options configures segmentation.
type Options struct {
	K       int
	Seed    int64
	NInit   int
	MaxIter int
	Tol     float64
	// KMin and KMax bound the automatic search.
	KMin int
	KMax int
	// SilhouetteSample caps the rows used to score a candidate k; 0 uses all.
	SilhouetteSample int
}

// DefaultOptions returns the settings used by the dashboards.
func DefaultOptions() Options {
	return Options{K: 4, Seed: 42, NInit: 10, MaxIter: 300, Tol: 1e-4, KMin: 2, KMax: 7, SilhouetteSample: 2000}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.K <= 0 {
		o.K = d.K
	}
	if o.NInit <= 0 {
		o.NInit = d.NInit
	}
	if o.MaxIter <= 0 {
		o.MaxIter = d.MaxIter
	}
	if o.Tol <= 0 {
		o.Tol = d.Tol
	}
	if o.KMin <= 0 {
		o.KMin = d.KMin
	}
	if o.KMax <= 0 {
		o.KMax = d.KMax
	}
	return o
}

// Segmentation is the outcome of clustering a table.
type Segmentation struct {
	Features []string
	K        int
	Labels   []int
	Model    *Model
	Scaler   *Scaler
	// X is the standardized matrix, row-major.
	X [][]float64
	// Silhouette is set when it could be computed.
	Silhouette   float64
	SilhouetteOK bool
	// Scores maps each candidate k to its silhouette (auto mode only).
	Scores map[int]float64
}

// Sizes returns the member count per cluster id 0..K-1.
func (s *Segmentation) Sizes() []int {
	out := make([]int, s.K)
	for _, l := range s.Labels {
		if l >= 0 && l < len(out) {
			out[l]++
		}
	}
	return out
}

// Segment clusters t on features with a fixed k and adds the Cluster column.
func Segment(t *dataset.Table, features []string, opts Options) (*Segmentation, error) {
	opts = opts.withDefaults()
	names, sc, x, err := prepare(t, features)
	if err != nil {
		return nil, err
	}
	seg, err := fit(x, opts.K, opts)
	if err != nil {
		return nil, err
	}
	seg.Features, seg.Scaler, seg.X = names, sc, x
	seg.Silhouette, seg.SilhouetteOK = sampledSilhouette(x, seg.Labels, opts.SilhouetteSample, opts.Seed)
	if err := label(t, seg); err != nil {
		return nil, err
	}
	return seg, nil
}

// SegmentAuto tries every k in [KMin, KMax] (capped at rows-1) and keeps the
// one with the highest silhouette. Ties go to the smaller k. When fewer than
// three rows are available it falls back to Segment.
func SegmentAuto(ctx context.Context, t *dataset.Table, features []string, opts Options) (*Segmentation, error) {
	opts = opts.withDefaults()
	names, sc, x, err := prepare(t, features)
	if err != nil {
		return nil, err
	}
	kmax := opts.KMax
	if kmax > len(x)-1 {
		kmax = len(x) - 1
	}
	if kmax < opts.KMin {
		return Segment(t, features, opts)
	}

	candidates := make([]*Segmentation, kmax-opts.KMin+1)
	g, ctx := errgroup.WithContext(ctx)
	for i := range candidates {
		k := opts.KMin + i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			seg, err := fit(x, k, opts)
			if err != nil {
				return fmt.Errorf("k=%d: %w", k, err)
			}
			seg.Silhouette, seg.SilhouetteOK = sampledSilhouette(x, seg.Labels, opts.SilhouetteSample, opts.Seed)
			candidates[i] = seg
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	best, scores := pickBest(candidates)
	best.Features, best.Scaler, best.X, best.Scores = names, sc, x, scores
	if err := label(t, best); err != nil {
		return nil, err
	}
	return best, nil
}

// pickBest returns the candidate with the highest silhouette and the score of
// every candidate that has one. candidates must be in ascending k order so a
// tie keeps the smaller k. Without any score the first candidate is returned.
func pickBest(candidates []*Segmentation) (*Segmentation, map[int]float64) {
	scores := make(map[int]float64, len(candidates))
	var best *Segmentation
	for _, c := range candidates {
		if !c.SilhouetteOK {
			continue
		}
		scores[c.K] = c.Silhouette
		if best == nil || c.Silhouette > best.Silhouette {
			best = c
		}
	}
	if best == nil {
		best = candidates[0]
	}
	return best, scores
}

// ScoreKeys returns the evaluated k values in ascending order.
func (s *Segmentation) ScoreKeys() []int {
	keys := make([]int, 0, len(s.Scores))
	for k := range s.Scores {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

func prepare(t *dataset.Table, features []string) ([]string, *Scaler, [][]float64, error) {
	names, cols := usableFeatures(t, features)
	if len(names) == 0 {
		return nil, nil, nil, ErrNoNumericFeatures
	}
	if t.Rows() == 0 {
		return nil, nil, nil, ErrNoRows
	}
	sc, x := fitTransform(names, cols)
	return names, sc, x, nil
}

func fit(x [][]float64, k int, opts Options) (*Segmentation, error) {
	model, labels, err := KMeans(x, k, opts)
	if err != nil {
		return nil, err
	}
	return &Segmentation{K: len(model.Centroids), Labels: labels, Model: model}, nil
}

func label(t *dataset.Table, seg *Segmentation) error {
	ids := make([]float64, len(seg.Labels))
	for i, l := range seg.Labels {
		ids[i] = float64(l)
	}
	return t.SetFloats(Column, ids)
}
