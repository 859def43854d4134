package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"math/rand"
	"sort"
	"strconv"
	"time"
)

// Kind is the inferred type of a column, attached once at load time.
type Kind int

const (
	Numeric Kind = iota
	Categorical
	Temporal
)

func (k Kind) String() string {
	switch k {
	case Numeric:
		return "numeric"
	case Categorical:
		return "categorical"
	case Temporal:
		return "datetime"
	default:
		return "unknown"
	}
}

// Column holds one column of a Table. Raw always keeps the source text;
// Nums is populated for numeric columns (NaN = missing) and Times for
// temporal columns (zero time = missing).
type Column struct {
	Name  string
	Kind  Kind
	Raw   []string
	Nums  []float64
	Times []time.Time
}

// Missing reports whether row i has no value.
func (c *Column) Missing(i int) bool {
	switch c.Kind {
	case Numeric:
		return math.IsNaN(c.Nums[i])
	case Temporal:
		return c.Times[i].IsZero()
	default:
		return IsMissingToken(c.Raw[i])
	}
}

func (c *Column) clone(rows []int) *Column {
	out := &Column{Name: c.Name, Kind: c.Kind}
	if rows == nil {
		out.Raw = append([]string(nil), c.Raw...)
		if c.Nums != nil {
			out.Nums = append([]float64(nil), c.Nums...)
		}
		if c.Times != nil {
			out.Times = append([]time.Time(nil), c.Times...)
		}
		return out
	}
	out.Raw = make([]string, len(rows))
	for j, i := range rows {
		out.Raw[j] = c.Raw[i]
	}
	if c.Nums != nil {
		out.Nums = make([]float64, len(rows))
		for j, i := range rows {
			out.Nums[j] = c.Nums[i]
		}
	}
	if c.Times != nil {
		out.Times = make([]time.Time, len(rows))
		for j, i := range rows {
			out.Times[j] = c.Times[i]
		}
	}
	return out
}

// Table is an in-memory record table: ordered rows, ordered typed columns.
// It is owned by a single caller; derived columns are added in place.
type Table struct {
	// Source is the file the table was loaded from, if any.
	Source    string
	Delimiter rune

	cols  []*Column
	index map[string]int
	rows  int
}

// New builds a table from a header and string records, inferring column kinds.
func New(header []string, records [][]string, opt ParseOptions) *Table {
	t := &Table{index: make(map[string]int, len(header)), rows: len(records)}
	for j, name := range header {
		raw := make([]string, len(records))
		for i, rec := range records {
			if j < len(rec) {
				raw[i] = rec[j]
			}
		}
		t.addColumn(inferColumn(name, raw, opt))
	}
	return t
}

// Rows returns the number of rows.
func (t *Table) Rows() int { return t.rows }

// Names returns column names in table order.
func (t *Table) Names() []string {
	out := make([]string, len(t.cols))
	for i, c := range t.cols {
		out[i] = c.Name
	}
	return out
}

// Column returns the named column.
func (t *Table) Column(name string) (*Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.cols[i], true
}

// Has reports whether the column exists.
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// NumericNames returns the numeric columns in table order.
func (t *Table) NumericNames() []string {
	var out []string
	for _, c := range t.cols {
		if c.Kind == Numeric {
			out = append(out, c.Name)
		}
	}
	return out
}

// Floats returns the numeric values of a column. Non-numeric columns are
// coerced on the fly without changing the table; failures become NaN.
func (t *Table) Floats(name string) ([]float64, bool) {
	c, ok := t.Column(name)
	if !ok {
		return nil, false
	}
	if c.Kind == Numeric {
		return c.Nums, true
	}
	out := make([]float64, t.rows)
	for i, s := range c.Raw {
		out[i] = coerceFloat(s)
	}
	return out, true
}

// Coerce converts a column to numeric in place. Values that do not parse
// become NaN. Temporal columns are converted to Unix seconds.
func (t *Table) Coerce(name string) bool {
	c, ok := t.Column(name)
	if !ok {
		return false
	}
	if c.Kind == Numeric {
		return true
	}
	nums := make([]float64, t.rows)
	for i, s := range c.Raw {
		if c.Kind == Temporal && !c.Times[i].IsZero() {
			nums[i] = float64(c.Times[i].Unix())
			continue
		}
		nums[i] = coerceFloat(s)
	}
	c.Kind = Numeric
	c.Nums = nums
	c.Times = nil
	return true
}

// SetFloats adds or replaces a numeric column.
func (t *Table) SetFloats(name string, vals []float64) error {
	if len(vals) != t.rows {
		return fmt.Errorf("column %q: %d values for %d rows", name, len(vals), t.rows)
	}
	raw := make([]string, len(vals))
	for i, v := range vals {
		raw[i] = formatFloat(v)
	}
	t.put(&Column{Name: name, Kind: Numeric, Raw: raw, Nums: append([]float64(nil), vals...)})
	return nil
}

// SetStrings adds or replaces a categorical column.
func (t *Table) SetStrings(name string, vals []string) error {
	if len(vals) != t.rows {
		return fmt.Errorf("column %q: %d values for %d rows", name, len(vals), t.rows)
	}
	t.put(&Column{Name: name, Kind: Categorical, Raw: append([]string(nil), vals...)})
	return nil
}

// Rename renames a column. Renaming onto an existing name replaces it.
func (t *Table) Rename(from, to string) bool {
	i, ok := t.index[from]
	if !ok {
		return false
	}
	if from == to {
		return true
	}
	if j, exists := t.index[to]; exists {
		t.drop(j)
		i = t.index[from]
	}
	delete(t.index, from)
	t.cols[i].Name = to
	t.index[to] = i
	return true
}

// Select returns a copy holding only the given rows, in the given order.
func (t *Table) Select(rows []int) *Table {
	out := &Table{Source: t.Source, Delimiter: t.Delimiter, index: make(map[string]int, len(t.cols)), rows: len(rows)}
	if rows == nil {
		rows = []int{}
	}
	for _, c := range t.cols {
		out.addColumn(c.clone(rows))
	}
	return out
}

// Filter returns a copy holding the rows for which keep returns true.
func (t *Table) Filter(keep func(i int) bool) *Table {
	rows := make([]int, 0, t.rows)
	for i := 0; i < t.rows; i++ {
		if keep(i) {
			rows = append(rows, i)
		}
	}
	return t.Select(rows)
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	out := &Table{Source: t.Source, Delimiter: t.Delimiter, index: make(map[string]int, len(t.cols)), rows: t.rows}
	for _, c := range t.cols {
		out.addColumn(c.clone(nil))
	}
	return out
}

// Sample returns n rows drawn without replacement using seed. The same seed
// and table always give the same rows; original row order is preserved.
// When n >= Rows the table is returned as a copy.
func (t *Table) Sample(n int, seed int64) *Table {
	if n < 0 || n >= t.rows {
		return t.Clone()
	}
	return t.Select(SampleIndices(t.rows, n, seed))
}

// SampleIndices picks n distinct indices out of [0,total) deterministically,
// sorted ascending.
func SampleIndices(total, n int, seed int64) []int {
	if n >= total {
		out := make([]int, total)
		for i := range out {
			out[i] = i
		}
		return out
	}
	rng := rand.New(rand.NewSource(seed))
	perm := rng.Perm(total)[:n]
	sort.Ints(perm)
	return perm
}

// Format returns the display text of a cell.
func (t *Table) Format(row int, name string) string {
	c, ok := t.Column(name)
	if !ok || row < 0 || row >= t.rows {
		return ""
	}
	switch c.Kind {
	case Numeric:
		return formatFloat(c.Nums[row])
	default:
		if IsMissingToken(c.Raw[row]) {
			return ""
		}
		return c.Raw[row]
	}
}

// WriteCSV writes the table with a header row using a comma delimiter.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	names := t.Names()
	if err := cw.Write(names); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	rec := make([]string, len(names))
	for i := 0; i < t.rows; i++ {
		for j, n := range names {
			rec[j] = t.Format(i, n)
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func (t *Table) addColumn(c *Column) {
	t.index[c.Name] = len(t.cols)
	t.cols = append(t.cols, c)
}

func (t *Table) put(c *Column) {
	if i, ok := t.index[c.Name]; ok {
		t.cols[i] = c
		return
	}
	t.addColumn(c)
}

func (t *Table) drop(i int) {
	delete(t.index, t.cols[i].Name)
	t.cols = append(t.cols[:i], t.cols[i+1:]...)
	for j := i; j < len(t.cols); j++ {
		t.index[t.cols[j].Name] = j
	}
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
