// Package analysis builds descriptive summaries of record tables: column
// overviews, correlations, per-group profiles and their text renderings.
package analysis

import (
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/edadash/internal/dataset"
)

// Options controls the dataset overview.
type Options struct {
	// SampleRows determines how many example rows to include in the report.
	SampleRows int
	// Correlations computes Pearson correlations among numeric columns.
	Correlations bool
	// TopValues caps the categories listed per categorical column.
	TopValues int
}

// DefaultOptions returns reasonable defaults for dataset analysis.
func DefaultOptions() Options {
	return Options{SampleRows: 5, Correlations: true, TopValues: 8}
}

// Report is a markdown-friendly analysis of a tabular dataset.
type Report struct {
	Name     string
	Rows     int
	Cols     []ColumnSummary
	Samples  [][]string
	Warnings []string
	Corr     *CorrMatrix
}

// ColumnSummary captures inferred type and statistics per column.
type ColumnSummary struct {
	Name    string
	Kind    string // numeric|datetime|categorical
	NonNull int
	Missing int
	Unique  int
	// Numeric stats
	Min  float64
	Max  float64
	Mean float64
	Std  float64
	// Categorical top values
	TopValues []CategoryCount
}

type CategoryCount struct {
	Value string
	Count int
}

// CorrMatrix holds a symmetric Pearson correlation matrix across numeric columns.
type CorrMatrix struct {
	Columns []string
	Values  [][]float64 // row-major, Values[i][j]
}

// PairCorr is a simple correlation pair summary.
type PairCorr struct {
	A, B string
	R    float64
}

// Overview summarises every column of t.
func Overview(t *dataset.Table, opt Options) *Report {
	if opt.SampleRows <= 0 {
		opt.SampleRows = 5
	}
	if opt.TopValues <= 0 {
		opt.TopValues = 8
	}
	rep := &Report{Rows: t.Rows()}
	if t.Source != "" {
		rep.Name = filepath.Base(t.Source)
	}
	names := t.Names()
	var numeric []string
	for _, name := range names {
		c, _ := t.Column(name)
		s := ColumnSummary{Name: name, Kind: c.Kind.String()}
		uniq := map[string]int{}
		for i := 0; i < t.Rows(); i++ {
			if c.Missing(i) {
				s.Missing++
				continue
			}
			s.NonNull++
			uniq[t.Format(i, name)]++
		}
		s.Unique = len(uniq)
		switch c.Kind {
		case dataset.Numeric:
			if s.NonNull > 0 {
				d := Describe(c.Nums)
				s.Min, s.Max, s.Mean = d.Min, d.Max, d.Mean
				if !math.IsNaN(d.Std) {
					s.Std = d.Std
				}
				numeric = append(numeric, name)
			}
		case dataset.Categorical:
			s.TopValues = topValues(uniq, opt.TopValues)
		}
		rep.Cols = append(rep.Cols, s)
	}
	for i := 0; i < t.Rows() && i < opt.SampleRows; i++ {
		row := make([]string, len(names))
		for j, n := range names {
			row[j] = t.Format(i, n)
		}
		rep.Samples = append(rep.Samples, row)
	}
	if opt.Correlations && len(numeric) >= 2 {
		rep.Corr = Correlations(t, numeric)
	}
	if t.Rows() == 0 {
		rep.Warnings = append(rep.Warnings, "table has no rows")
	}
	return rep
}

func topValues(counts map[string]int, limit int) []CategoryCount {
	tops := make([]CategoryCount, 0, len(counts))
	for k, v := range counts {
		tops = append(tops, CategoryCount{Value: k, Count: v})
	}
	sort.Slice(tops, func(i, j int) bool {
		if tops[i].Count == tops[j].Count {
			return tops[i].Value < tops[j].Value
		}
		return tops[i].Count > tops[j].Count
	})
	if len(tops) > limit {
		tops = tops[:limit]
	}
	return tops
}

// Correlations computes pairwise Pearson coefficients over rows where both
// columns are present. Undefined coefficients (constant columns, fewer than
// two shared rows) are reported as 0.
func Correlations(t *dataset.Table, columns []string) *CorrMatrix {
	vals := make([][]float64, len(columns))
	for i, c := range columns {
		vals[i], _ = t.Floats(c)
	}
	n := len(columns)
	m := make([][]float64, n)
	for i := range m {
		m[i] = make([]float64, n)
		m[i][i] = 1
	}
	for a := 0; a < n; a++ {
		for b := a + 1; b < n; b++ {
			var xs, ys []float64
			for i := range vals[a] {
				x, y := vals[a][i], vals[b][i]
				if math.IsNaN(x) || math.IsNaN(y) {
					continue
				}
				xs = append(xs, x)
				ys = append(ys, y)
			}
			var r float64
			if len(xs) >= 2 {
				r = stat.Correlation(xs, ys, nil)
			}
			if math.IsNaN(r) || math.IsInf(r, 0) {
				r = 0
			}
			m[a][b], m[b][a] = r, r
		}
	}
	return &CorrMatrix{Columns: append([]string(nil), columns...), Values: m}
}

// TopPairs lists the off-diagonal pairs ordered by |r|, at most limit.
func (c *CorrMatrix) TopPairs(limit int) []PairCorr {
	var pairs []PairCorr
	n := len(c.Columns)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			pairs = append(pairs, PairCorr{A: c.Columns[i], B: c.Columns[j], R: c.Values[i][j]})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		ai := math.Abs(pairs[i].R)
		aj := math.Abs(pairs[j].R)
		if ai == aj {
			return pairs[i].A+pairs[i].B < pairs[j].A+pairs[j].B
		}
		return ai > aj
	})
	if limit > 0 && len(pairs) > limit {
		pairs = pairs[:limit]
	}
	return pairs
}

// Markdown renders a compact report suitable for the terminal or the dashboard.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("## Dataset summary\n\n")
	if r.Name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", r.Name))
	}
	b.WriteString(fmt.Sprintf("Rows: %d\n", r.Rows))
	b.WriteString(fmt.Sprintf("Columns: %d\n\n", len(r.Cols)))

	b.WriteString("## Schema\n\n")
	for _, c := range r.Cols {
		total := c.NonNull + c.Missing
		missPct := 0.0
		if total > 0 {
			missPct = float64(c.Missing) * 100.0 / float64(total)
		}
		b.WriteString(fmt.Sprintf("- %s: %s (non-null %d, missing %.1f%%, unique %d)", safeName(c.Name), c.Kind, c.NonNull, missPct, c.Unique))
		switch c.Kind {
		case "numeric":
			if c.NonNull > 0 {
				b.WriteString(fmt.Sprintf(": min %.4g, max %.4g, mean %.4g, std %.4g", c.Min, c.Max, c.Mean, c.Std))
			}
		case "categorical":
			if len(c.TopValues) > 0 {
				b.WriteString(": top ")
				for i, kv := range c.TopValues {
					if i > 0 {
						b.WriteString(", ")
					}
					b.WriteString(fmt.Sprintf("%s(%d)", safeVal(kv.Value), kv.Count))
				}
			}
		}
		b.WriteString("\n")
	}
	if r.Corr != nil && len(r.Corr.Columns) >= 2 {
		b.WriteString("\n## Correlations\n\n")
		for _, p := range r.Corr.TopPairs(10) {
			b.WriteString(fmt.Sprintf("- %s ~ %s: r=%.3f\n", p.A, p.B, p.R))
		}
	}
	if len(r.Samples) > 0 {
		b.WriteString("\n## Sample rows\n\n")
		b.WriteString("| ")
		for i, c := range r.Cols {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString(safeVal(safeName(c.Name)))
		}
		b.WriteString(" |\n| ")
		for i := range r.Cols {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString("---")
		}
		b.WriteString(" |\n")
		for _, row := range r.Samples {
			b.WriteString("| ")
			for i := range r.Cols {
				if i > 0 {
					b.WriteString(" | ")
				}
				val := ""
				if i < len(row) {
					val = row[i]
				}
				if len(val) > 80 {
					val = val[:77] + "..."
				}
				b.WriteString(safeVal(val))
			}
			b.WriteString(" |\n")
		}
	}
	if len(r.Warnings) > 0 {
		b.WriteString("\n## Notes\n\n")
		for _, w := range r.Warnings {
			b.WriteString("- ")
			b.WriteString(w)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
