package features

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/edadash/internal/dataset"
	"github.com/KaramelBytes/edadash/internal/schema"
)

func TestDeriveTotals(t *testing.T) {
	tbl := dataset.New(
		[]string{"MntA", "MntB", "NumWebPurchases", "Recency"},
		[][]string{{"100", "50", "3", "10"}, {"200", "75", "5", "20"}},
		dataset.ParseOptions{},
	)
	d := Derive(tbl, schema.Default())

	spend, ok := tbl.Floats(TotalSpending)
	require.True(t, ok)
	assert.Equal(t, []float64{150, 275}, spend)
	purchases, _ := tbl.Floats(TotalPurchases)
	assert.Equal(t, []float64{3, 5}, purchases)
	assert.Equal(t, []string{"Recency", TotalPurchases, TotalSpending}, d.Features)
	assert.False(t, d.Fallback)
}

func TestDeriveSkipsUnparseableValues(t *testing.T) {
	tbl := dataset.New(
		[]string{"MntX", "ID"},
		[][]string{{"10", "1"}, {"bad", "2"}, {"5", "3"}},
		dataset.ParseOptions{},
	)
	Derive(tbl, schema.Default())

	col, _ := tbl.Floats("MntX")
	assert.True(t, math.IsNaN(col[1]))
	spend, _ := tbl.Floats(TotalSpending)
	assert.Equal(t, []float64{10, 0, 5}, spend)

	var sum float64
	for _, v := range spend {
		sum += v
	}
	assert.Equal(t, 15.0, sum)
}

func TestDeriveFallbackToNumericColumns(t *testing.T) {
	tbl := dataset.New(
		[]string{"Name", "A", "B", "C", "D"},
		[][]string{{"x", "1", "2", "3", "4"}, {"y", "5", "6", "7", "8"}},
		dataset.ParseOptions{},
	)
	d := Derive(tbl, schema.Default())
	assert.Equal(t, []string{"A", "B", "C"}, d.Features)
	assert.True(t, d.Fallback)
	assert.False(t, tbl.Has(TotalSpending))
}

func TestDeriveNothingAvailable(t *testing.T) {
	tbl := dataset.New([]string{"Name", "City"}, [][]string{{"x", "Paris"}}, dataset.ParseOptions{})
	d := Derive(tbl, schema.Default())
	assert.False(t, d.Available())
}

func TestDeriveDropsAllMissingRecency(t *testing.T) {
	tbl := dataset.New(
		[]string{"MntA", "Recency"},
		[][]string{{"1", "n/a?"}, {"2", "?"}},
		dataset.ParseOptions{},
	)
	d := Derive(tbl, schema.Default())
	assert.Equal(t, []string{TotalSpending}, d.Features)
}

func TestDeriveRowWithUnparseableSpend(t *testing.T) {
	tbl := dataset.New(
		[]string{"MntA", "MntB", "MntC"},
		[][]string{{"10", "bad", "5"}},
		dataset.ParseOptions{},
	)
	Derive(tbl, schema.Default())

	b, _ := tbl.Column("MntB")
	assert.Equal(t, dataset.Numeric, b.Kind)
	assert.True(t, math.IsNaN(b.Nums[0]))
	spend, _ := tbl.Floats(TotalSpending)
	assert.Equal(t, []float64{15}, spend)
}
