package analysis

import (
	"math"
	"sort"
	"strconv"

	"github.com/montanaflynn/stats"

	"github.com/KaramelBytes/edadash/internal/dataset"
)

// ProfileOptions selects the statistics computed per group and feature.
// The mean is always included.
type ProfileOptions struct {
	Precision int
	Std       bool
	Median    bool
	Count     bool
}

// DefaultProfileOptions returns mean/std/count rounded to two decimals.
func DefaultProfileOptions() ProfileOptions {
	return ProfileOptions{Precision: 2, Std: true, Count: true}
}

// FeatureStats holds the aggregates of one feature inside one group.
type FeatureStats struct {
	Mean   float64
	Std    float64
	Median float64
	Count  int
}

// Group is one row of a profile.
type Group struct {
	ID    float64
	Size  int
	Stats map[string]FeatureStats
}

// Label formats the group id without a trailing ".0" for whole numbers.
func (g Group) Label() string {
	return strconv.FormatFloat(g.ID, 'f', -1, 64)
}

// Profile is a per-group aggregate table.
type Profile struct {
	GroupColumn string
	Features    []string
	Options     ProfileOptions
	Groups      []Group
}

// Empty reports whether the profile has no groups.
func (p *Profile) Empty() bool { return p == nil || len(p.Groups) == 0 }

// ProfileBy groups t by the numeric column groupCol and aggregates features
// per group. Groups are ordered by ascending id; rows with a missing group
// id are skipped. A missing group column yields an empty profile.
func ProfileBy(t *dataset.Table, groupCol string, features []string, opts ProfileOptions) *Profile {
	p := &Profile{GroupColumn: groupCol, Options: opts}
	keys, ok := t.Floats(groupCol)
	if !ok {
		return p
	}
	cols := map[string][]float64{}
	for _, f := range features {
		if f == groupCol {
			continue
		}
		if v, ok := t.Floats(f); ok {
			cols[f] = v
			p.Features = append(p.Features, f)
		}
	}

	members := map[float64][]int{}
	for i, k := range keys {
		if math.IsNaN(k) {
			continue
		}
		members[k] = append(members[k], i)
	}
	ids := make([]float64, 0, len(members))
	for k := range members {
		ids = append(ids, k)
	}
	sort.Float64s(ids)

	for _, id := range ids {
		rows := members[id]
		g := Group{ID: id, Size: len(rows), Stats: make(map[string]FeatureStats, len(p.Features))}
		for _, f := range p.Features {
			vals := make([]float64, 0, len(rows))
			for _, i := range rows {
				if v := cols[f][i]; !math.IsNaN(v) {
					vals = append(vals, v)
				}
			}
			g.Stats[f] = aggregate(vals, opts)
		}
		p.Groups = append(p.Groups, g)
	}
	return p
}

func aggregate(vals []float64, opts ProfileOptions) FeatureStats {
	fs := FeatureStats{Count: len(vals), Mean: math.NaN(), Std: math.NaN(), Median: math.NaN()}
	if len(vals) == 0 {
		return fs
	}
	fs.Mean, _ = stats.Mean(vals)
	fs.Mean = Round(fs.Mean, opts.Precision)
	if opts.Std && len(vals) > 1 {
		sd, _ := stats.StandardDeviationSample(vals)
		fs.Std = Round(sd, opts.Precision)
	}
	if opts.Median {
		md, _ := stats.Median(vals)
		fs.Median = Round(md, opts.Precision)
	}
	return fs
}

// Header returns the flat column names used by Records.
func (p *Profile) Header() []string {
	h := []string{p.GroupColumn, "Size"}
	for _, f := range p.Features {
		h = append(h, f+" mean")
		if p.Options.Std {
			h = append(h, f+" std")
		}
		if p.Options.Median {
			h = append(h, f+" median")
		}
		if p.Options.Count {
			h = append(h, f+" count")
		}
	}
	return h
}

// Records returns one string row per group, aligned with Header.
func (p *Profile) Records() [][]string {
	out := make([][]string, 0, len(p.Groups))
	for _, g := range p.Groups {
		row := []string{g.Label(), strconv.Itoa(g.Size)}
		for _, f := range p.Features {
			s := g.Stats[f]
			row = append(row, formatStat(s.Mean))
			if p.Options.Std {
				row = append(row, formatStat(s.Std))
			}
			if p.Options.Median {
				row = append(row, formatStat(s.Median))
			}
			if p.Options.Count {
				row = append(row, strconv.Itoa(s.Count))
			}
		}
		out = append(out, row)
	}
	return out
}

func formatStat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
