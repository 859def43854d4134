package analysis

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/edadash/internal/dataset"
)

var csvRows = [][]string{
	{"1", "0,5", "alpha", "10"},
	{"1", "0,6", "alpha", "11"},
	{"0", "0,5", "beta", "9,5"},
	{"0", "0,75", "alpha", "10,5"},
	{"2", "", "gamma", "50"},
}

func fixture() *dataset.Table {
	t := dataset.New([]string{"Cluster", "Concentration", "Category", "Score"}, csvRows, dataset.ParseOptions{})
	t.Source = "/tmp/fixture.csv"
	return t
}

func TestQuantileLinear(t *testing.T) {
	s := []float64{10, 15, 20, 30, 1000}
	assert.Equal(t, 15.0, Quantile(s, 0.25))
	assert.Equal(t, 20.0, Quantile(s, 0.5))
	assert.Equal(t, 30.0, Quantile(s, 0.75))
	assert.Equal(t, 12.5, Quantile([]float64{10, 15}, 0.5))
	assert.Equal(t, 0.0, Quantile(nil, 0.5))
}

func TestRound(t *testing.T) {
	assert.Equal(t, 1.23, Round(1.2345, 2))
	assert.Equal(t, 3.0, Round(2.5, 0))
	assert.True(t, math.IsNaN(Round(math.NaN(), 2)))
}

func TestDescribe(t *testing.T) {
	d := Describe([]float64{10, 20, math.NaN(), 30, 1000, 15})
	assert.Equal(t, 5, d.Count)
	assert.InDelta(t, 215, d.Mean, 1e-9)
	assert.Equal(t, 10.0, d.Min)
	assert.Equal(t, 1000.0, d.Max)
	assert.Equal(t, 15.0, d.Q25)
	assert.Equal(t, 20.0, d.Q50)
	assert.Equal(t, 30.0, d.Q75)
	assert.InDelta(t, 438.89, d.Std, 0.01)

	single := Describe([]float64{4})
	assert.True(t, math.IsNaN(single.Std))
	empty := Describe(nil)
	assert.Equal(t, 0, empty.Count)
	assert.True(t, math.IsNaN(empty.Mean))
}

func TestProfileByOrdersGroupsAndRounds(t *testing.T) {
	tbl := fixture()
	p := ProfileBy(tbl, "Cluster", []string{"Concentration", "Score", "Cluster", "Nope"}, DefaultProfileOptions())

	require.Len(t, p.Groups, 3)
	assert.Equal(t, []string{"Concentration", "Score"}, p.Features)
	assert.Equal(t, []float64{0, 1, 2}, []float64{p.Groups[0].ID, p.Groups[1].ID, p.Groups[2].ID})
	assert.Equal(t, 0.63, p.Groups[0].Stats["Concentration"].Mean)
	assert.Equal(t, 10.5, p.Groups[1].Stats["Score"].Mean)
	assert.Equal(t, 0.71, p.Groups[1].Stats["Score"].Std)
	assert.Equal(t, 0, p.Groups[2].Stats["Concentration"].Count)

	assert.Equal(t, []string{"Cluster", "Size", "Concentration mean", "Concentration std", "Concentration count", "Score mean", "Score std", "Score count"}, p.Header())
	rec := p.Records()
	assert.Equal(t, []string{"2", "1", "", "", "0", "50", "", "1"}, rec[2])
}

func TestProfileByMissingGroupColumn(t *testing.T) {
	p := ProfileBy(fixture(), "Segment", []string{"Score"}, DefaultProfileOptions())
	assert.True(t, p.Empty())
	assert.Equal(t, "(no groups)", p.Text())
}

func TestOverviewAndMarkdown(t *testing.T) {
	rep := Overview(fixture(), DefaultOptions())
	assert.Equal(t, "fixture.csv", rep.Name)
	assert.Equal(t, 5, rep.Rows)
	require.Len(t, rep.Cols, 4)

	conc := rep.Cols[1]
	assert.Equal(t, "numeric", conc.Kind)
	assert.Equal(t, 4, conc.NonNull)
	assert.Equal(t, 1, conc.Missing)
	assert.Equal(t, 0.5, conc.Min)
	assert.Equal(t, 0.75, conc.Max)

	cat := rep.Cols[2]
	assert.Equal(t, "categorical", cat.Kind)
	assert.Equal(t, CategoryCount{Value: "alpha", Count: 3}, cat.TopValues[0])

	require.NotNil(t, rep.Corr)
	assert.Equal(t, []string{"Cluster", "Concentration", "Score"}, rep.Corr.Columns)
	for i := range rep.Corr.Values {
		assert.Equal(t, 1.0, rep.Corr.Values[i][i])
	}

	md := rep.Markdown()
	for _, want := range []string{"File: fixture.csv", "Rows: 5", "Concentration: numeric", "alpha(3)", "## Correlations", "| Cluster | Concentration | Category | Score |"} {
		assert.Contains(t, md, want)
	}
}

func TestCorrelationsConstantColumnIsZero(t *testing.T) {
	tbl := dataset.New([]string{"A", "B"}, [][]string{{"1", "5"}, {"2", "5"}, {"3", "5"}}, dataset.ParseOptions{})
	c := Correlations(tbl, []string{"A", "B"})
	assert.Equal(t, 0.0, c.Values[0][1])
}

func TestRenderTables(t *testing.T) {
	p := ProfileBy(fixture(), "Cluster", []string{"Score"}, ProfileOptions{Precision: 1})
	md := p.Markdown()
	assert.Contains(t, strings.ToLower(md), "| cluster | size | score mean |")

	kv := KeyValueTable("Summary", []KeyValue{{"Total Transactions", "5"}})
	assert.Contains(t, kv, "Total Transactions")

	desc := DescribeTable([]string{"Score"}, []Description{Describe([]float64{1, 2, 3})}, 2)
	assert.Contains(t, desc, "25%")
	assert.Contains(t, desc, "1.5")
}
