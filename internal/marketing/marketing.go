// Package marketing runs the customer segmentation path: feature
// derivation, clustering, per-cluster profiles and the 2-D projection.
package marketing

import (
	"context"
	"errors"
	"fmt"

	"github.com/KaramelBytes/edadash/internal/analysis"
	"github.com/KaramelBytes/edadash/internal/cluster"
	"github.com/KaramelBytes/edadash/internal/dataset"
	"github.com/KaramelBytes/edadash/internal/features"
	"github.com/KaramelBytes/edadash/internal/schema"
)

// SegmentColumn holds the display name of each row's cluster.
const SegmentColumn = "Segment_Name"

// Options configures Run.
type Options struct {
	Cluster cluster.Options
	// Auto selects k by silhouette instead of using Cluster.K.
	Auto    bool
	Profile analysis.ProfileOptions
}

// DefaultOptions segments into four clusters with the dashboard defaults.
func DefaultOptions() Options {
	return Options{Cluster: cluster.DefaultOptions(), Profile: analysis.DefaultProfileOptions()}
}

// Result is the outcome of a segmentation run. When Available is false,
// Reason explains why and the other fields are empty.
type Result struct {
	Available    bool
	Reason       string
	Table        *dataset.Table
	Derived      *features.Derived
	Segmentation *cluster.Segmentation
	Profile      *analysis.Profile
	Projection   *cluster.Projection
	// Names maps cluster ids to segment names when there are enough names.
	Names []string
}

// Sizes returns the member count per cluster.
func (r *Result) Sizes() []int {
	if r.Segmentation == nil {
		return nil
	}
	return r.Segmentation.Sizes()
}

// SegmentLabel returns the display name of a cluster id.
func (r *Result) SegmentLabel(id int) string {
	if id >= 0 && id < len(r.Names) {
		return r.Names[id]
	}
	return fmt.Sprintf("Cluster %d", id)
}

// Run segments a copy of t. Tables without usable features produce an
// unavailable result rather than an error.
func Run(ctx context.Context, t *dataset.Table, s schema.Schema, opts Options) (*Result, error) {
	s = s.WithDefaults()
	tbl := t.Clone()
	res := &Result{Table: tbl}

	res.Derived = features.Derive(tbl, s)
	if !res.Derived.Available() {
		res.Reason = "no usable features for segmentation"
		return res, nil
	}

	var seg *cluster.Segmentation
	var err error
	if opts.Auto {
		seg, err = cluster.SegmentAuto(ctx, tbl, res.Derived.Features, opts.Cluster)
	} else {
		seg, err = cluster.Segment(tbl, res.Derived.Features, opts.Cluster)
	}
	if err != nil {
		if errors.Is(err, cluster.ErrNoNumericFeatures) || errors.Is(err, cluster.ErrNoRows) {
			res.Reason = err.Error()
			return res, nil
		}
		return nil, fmt.Errorf("segmentation: %w", err)
	}
	res.Segmentation = seg
	res.Available = true

	if seg.K <= len(s.SegmentNames) {
		res.Names = s.SegmentNames[:seg.K]
		names := make([]string, len(seg.Labels))
		for i, l := range seg.Labels {
			names[i] = res.SegmentLabel(l)
		}
		if err := tbl.SetStrings(SegmentColumn, names); err != nil {
			return nil, err
		}
	}

	res.Profile = analysis.ProfileBy(tbl, cluster.Column, seg.Features, opts.Profile)
	proj, err := cluster.Project(seg.X)
	if err != nil {
		return nil, fmt.Errorf("projection: %w", err)
	}
	res.Projection = proj
	return res, nil
}

// Status is a one-line description of a loaded customer table.
func Status(t *dataset.Table, s schema.Schema) string {
	s = s.WithDefaults()
	spend := s.SpendColumns(t.Names())
	return fmt.Sprintf("loaded %d customers (%d spend columns)", t.Rows(), len(spend))
}
