package analysis

import (
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
)

// KeyValue is one labelled metric, e.g. a summary row.
type KeyValue struct {
	Key   string
	Value string
}

// KeyValueTable renders metric/value pairs as a terminal table.
func KeyValueTable(title string, rows []KeyValue) string {
	t := table.NewWriter()
	if title != "" {
		t.SetTitle(title)
	}
	t.AppendHeader(table.Row{"Metric", "Value"})
	for _, r := range rows {
		t.AppendRow(table.Row{r.Key, r.Value})
	}
	t.SetStyle(table.StyleLight)
	return t.Render()
}

// DescribeTable renders one description column per named series.
func DescribeTable(names []string, descs []Description, precision int) string {
	t := table.NewWriter()
	header := table.Row{""}
	for _, n := range names {
		header = append(header, n)
	}
	t.AppendHeader(header)
	for i, label := range DescribeLabels {
		row := table.Row{label}
		for _, d := range descs {
			row = append(row, formatStat(d.Rounded(precision).Values()[i]))
		}
		t.AppendRow(row)
	}
	t.SetStyle(table.StyleLight)
	return t.Render()
}

func (p *Profile) writer() table.Writer {
	t := table.NewWriter()
	header := table.Row{}
	for _, h := range p.Header() {
		header = append(header, h)
	}
	t.AppendHeader(header)
	for _, rec := range p.Records() {
		row := make(table.Row, len(rec))
		for i, v := range rec {
			row[i] = v
		}
		t.AppendRow(row)
	}
	return t
}

// Text renders the profile as a terminal table.
func (p *Profile) Text() string {
	if p.Empty() {
		return "(no groups)"
	}
	t := p.writer()
	t.SetStyle(table.StyleLight)
	return t.Render()
}

// Markdown renders the profile as a Markdown table.
func (p *Profile) Markdown() string {
	if p.Empty() {
		return "_no groups_\n"
	}
	return p.writer().RenderMarkdown() + "\n"
}

// Counts renders a two-column count table, e.g. cluster sizes.
func Counts(keyHeader string, keys []string, counts []int) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{keyHeader, "Count"})
	for i, k := range keys {
		t.AppendRow(table.Row{k, strconv.Itoa(counts[i])})
	}
	t.SetStyle(table.StyleLight)
	return t.Render()
}
