// Package fraud implements the transaction fraud analysis: label and amount
// resolution, time features, filters and the per-view statistics.
package fraud

import (
	"fmt"
	"math"

	"github.com/KaramelBytes/edadash/internal/dataset"
	"github.com/KaramelBytes/edadash/internal/schema"
)

// Derived time columns.
const (
	TimeHours = "Time_Hours"
	Hour      = "Hour"
	Day       = "Day"
)

// Options configures Prepare.
type Options struct {
	// MaxRows downsamples larger tables; 0 keeps every row.
	MaxRows int
	Seed    int64
}

// DefaultOptions caps the table at 50 000 rows drawn with seed 42.
func DefaultOptions() Options { return Options{MaxRows: 50000, Seed: 42} }

// Prepared is a transaction table ready for filtering and analysis.
type Prepared struct {
	Table  *dataset.Table
	Amount string
	Label  string
	// Time is the source time column, empty when absent.
	Time string
	// SourceRows is the row count before downsampling.
	SourceRows int
}

// HasTime reports whether the time-derived columns exist.
func (p *Prepared) HasTime() bool { return p.Time != "" }

// Prepare validates and enriches a copy of t. The first label candidate
// present is renamed to the canonical label name. Both amount and label are
// coerced to numbers; a missing one is a MissingColumnError.
func Prepare(t *dataset.Table, s schema.Schema, opts Options) (*Prepared, error) {
	s = s.WithDefaults()
	names := t.Names()
	amount, ok := schema.First(names, s.AmountColumns)
	if !ok {
		return nil, &dataset.MissingColumnError{Role: "amount", Candidates: s.AmountColumns}
	}
	labelSrc, ok := schema.First(names, s.LabelColumns)
	if !ok {
		return nil, &dataset.MissingColumnError{Role: "fraud label", Candidates: s.LabelColumns}
	}

	tbl := t.Clone()
	p := &Prepared{Amount: amount, Label: s.LabelName, SourceRows: tbl.Rows()}
	if opts.MaxRows > 0 && tbl.Rows() > opts.MaxRows {
		tbl = tbl.Sample(opts.MaxRows, opts.Seed)
	}
	if labelSrc != s.LabelName {
		tbl.Rename(labelSrc, s.LabelName)
	}
	tbl.Coerce(s.LabelName)
	tbl.Coerce(amount)

	if tc, ok := schema.First(tbl.Names(), s.TimeColumns); ok {
		tbl.Coerce(tc)
		secs, _ := tbl.Floats(tc)
		hours := make([]float64, len(secs))
		hour := make([]float64, len(secs))
		day := make([]float64, len(secs))
		for i, v := range secs {
			if math.IsNaN(v) {
				hours[i], hour[i], day[i] = math.NaN(), math.NaN(), math.NaN()
				continue
			}
			hours[i] = v / 3600
			hour[i] = hourOfDay(v)
			day[i] = math.Floor(v / 86400)
		}
		derived := []struct {
			name string
			vals []float64
		}{{TimeHours, hours}, {Hour, hour}, {Day, day}}
		for _, d := range derived {
			if err := tbl.SetFloats(d.name, d.vals); err != nil {
				return nil, fmt.Errorf("derive %s: %w", d.name, err)
			}
		}
		p.Time = tc
	}
	p.Table = tbl
	return p, nil
}

// hourOfDay maps elapsed seconds to an hour in 0..23, also for negative offsets.
func hourOfDay(secs float64) float64 {
	return math.Mod(math.Mod(math.Floor(secs/3600), 24)+24, 24)
}

// Status is a one-line description of the loaded transactions.
func (p *Prepared) Status() string {
	total := p.Table.Rows()
	frauds := countFrauds(p.Table, p.Label)
	rate := 0.0
	if total > 0 {
		rate = float64(frauds) * 100 / float64(total)
	}
	msg := fmt.Sprintf("loaded %d transactions (%d frauds, %.2f%%)", total, frauds, rate)
	if p.SourceRows > total {
		msg += fmt.Sprintf(", sampled from %d", p.SourceRows)
	}
	return msg
}

func countFrauds(t *dataset.Table, label string) int {
	vals, ok := t.Floats(label)
	if !ok {
		return 0
	}
	n := 0
	for _, v := range vals {
		if v == 1 {
			n++
		}
	}
	return n
}
