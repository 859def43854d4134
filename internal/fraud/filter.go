package fraud

import (
	"math"

	"github.com/KaramelBytes/edadash/internal/dataset"
)

// Range is an inclusive numeric interval.
type Range struct {
	Min, Max float64
}

// Contains reports whether v lies in the range. NaN never does.
func (r Range) Contains(v float64) bool {
	return !math.IsNaN(v) && v >= r.Min && v <= r.Max
}

// Filter restricts a view by amount and elapsed hours. Nil ranges are open.
type Filter struct {
	Amount *Range
	Hours  *Range
}

// Bounds are the slider extents of a prepared table.
type Bounds struct {
	Amount Range
	Hours  Range
	// HasHours is false when the table has no time column.
	HasHours bool
}

// Bounds returns the min/max of the amount and elapsed-hours columns.
func (p *Prepared) Bounds() Bounds {
	b := Bounds{Amount: extent(p.Table, p.Amount)}
	if p.HasTime() {
		b.Hours = extent(p.Table, TimeHours)
		b.HasHours = true
	}
	return b
}

func extent(t *dataset.Table, col string) Range {
	vals, _ := t.Floats(col)
	r := Range{Min: math.Inf(1), Max: math.Inf(-1)}
	for _, v := range vals {
		if math.IsNaN(v) {
			continue
		}
		r.Min = math.Min(r.Min, v)
		r.Max = math.Max(r.Max, v)
	}
	if math.IsInf(r.Min, 1) {
		return Range{}
	}
	return r
}

// Apply returns a filtered copy of the prepared table.
func (p *Prepared) Apply(f Filter) *dataset.Table {
	amounts, _ := p.Table.Floats(p.Amount)
	var hours []float64
	if f.Hours != nil && p.HasTime() {
		hours, _ = p.Table.Floats(TimeHours)
	}
	return p.Table.Filter(func(i int) bool {
		if f.Amount != nil && !f.Amount.Contains(amounts[i]) {
			return false
		}
		if hours != nil && !f.Hours.Contains(hours[i]) {
			return false
		}
		return true
	})
}
