package web

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/edadash/internal/analysis"
	"github.com/KaramelBytes/edadash/internal/dataset"
	"github.com/KaramelBytes/edadash/internal/fraud"
	"github.com/KaramelBytes/edadash/internal/marketing"
	"github.com/KaramelBytes/edadash/internal/schema"
)

func testFraudState(t *testing.T, csv string) *fraudState {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(csv), "\n")
	var records [][]string
	for _, l := range lines[1:] {
		records = append(records, strings.Split(l, ","))
	}
	tbl := dataset.New(strings.Split(lines[0], ","), records, dataset.ParseOptions{})
	p, err := fraud.Prepare(tbl, schema.Default(), fraud.DefaultOptions())
	require.NoError(t, err)
	view := p.Apply(fraud.Filter{})
	a, err := p.Analyze(view)
	require.NoError(t, err)
	return &fraudState{Prepared: p, View: view, Analysis: a}
}

func TestAnomalyPointsGroupsByClassAndFence(t *testing.T) {
	st := testFraudState(t, transactionsCSV)
	x, y, groups, xLabel := anomalyPoints(st, 42)
	assert.Equal(t, "Time (hours)", xLabel)
	assert.Equal(t, []float64{0, 1, 2, 25, 26}, x)
	assert.Equal(t, []float64{10, 20, 30, 1000, 15}, y)
	assert.Equal(t, []int{0, 0, 0, 3, 0}, groups)
	assert.Equal(t, "Fraud outlier", anomalyGroups[groups[3]])
}

func TestAnomalyPointsWithoutTime(t *testing.T) {
	st := testFraudState(t, "Amount,Class\n10,1\n20,0\n30,0\n15,0\n2000,0\n")
	x, _, groups, xLabel := anomalyPoints(st, 42)
	assert.Equal(t, "Row", xLabel)
	assert.Equal(t, []float64{0, 1, 2, 3, 4}, x)
	assert.Equal(t, []int{1, 0, 0, 0, 2}, groups)
}

func TestClassAmounts(t *testing.T) {
	st := testFraudState(t, transactionsCSV)
	assert.Equal(t, []float64{1000}, classAmounts(st, 1))
	assert.Equal(t, []float64{10, 20, 30, 15}, classAmounts(st, 0))
}

func TestCategoryMeans(t *testing.T) {
	lines := strings.Split(strings.TrimSpace(customersCSV), "\n")
	var records [][]string
	for _, l := range lines[1:] {
		records = append(records, strings.Split(l, ";"))
	}
	tbl := dataset.New(strings.Split(lines[0], ";"), records, dataset.ParseOptions{})
	opts := marketing.DefaultOptions()
	opts.Cluster.K = 2
	opts.Cluster.NInit = 2
	res, err := marketing.Run(t.Context(), tbl, schema.Default(), opts)
	require.NoError(t, err)
	require.True(t, res.Available)

	names, means := categoryMeans(res)
	assert.Equal(t, []string{"MntWines", "MntFruits"}, names)
	require.Len(t, means, 2)
	assert.InDelta(t, 491.25, means[0], 1e-9)
	assert.InDelta(t, 213.375, means[1], 1e-9)
}

func TestProfileHeat(t *testing.T) {
	p := &analysis.Profile{
		Features: []string{"Recency", "Flat"},
		Groups: []analysis.Group{
			{ID: 0, Stats: map[string]analysis.FeatureStats{"Recency": {Mean: 1}, "Flat": {Mean: 5}}},
			{ID: 1, Stats: map[string]analysis.FeatureStats{"Recency": {Mean: 3}, "Flat": {Mean: 5}}},
		},
	}
	rows := profileHeat(p, func(id int) string { return []string{"Loyal", "Dormant"}[id] })
	require.Len(t, rows, 2)
	assert.Equal(t, "Loyal", rows[0].Label)
	assert.Equal(t, heatCell{Value: "1", Color: "#ffffff"}, rows[0].Cells[0])
	assert.Equal(t, heatCell{Value: "3", Color: "#ff3737"}, rows[1].Cells[0])
	assert.Equal(t, "#ffffff", rows[1].Cells[1].Color, "a constant feature stays unshaded")

	assert.Nil(t, profileHeat(&analysis.Profile{}, nil))
}
