package dataset

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestResolvePicksFirstSortedDeduplicated(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "zz_fraud.csv", "a,b\n1,2\n")
	writeFile(t, dir, "creditcard.csv", "a,b\n1,2\n")
	writeFile(t, dir, "bank_fraud.csv", "a,b\n1,2\n")

	got, err := Resolve(dir, []string{"*fraud*.csv", "*credit*.csv", "*bank*.csv", "creditcard.csv"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "bank_fraud.csv"), got)
}

func TestResolveNotFoundListsAvailable(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "other.csv", "a,b\n")

	_, err := Resolve(dir, []string{"*marketing*.csv"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFileNotFound))
	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, []string{"other.csv"}, nf.Available)
	assert.Contains(t, err.Error(), "other.csv")
}

func TestSniffLine(t *testing.T) {
	cases := map[string]rune{
		"a,b,c\n":       ',',
		"a;b;c\n":       ';',
		"a;b,c\n":       ',', // tie resolves to comma
		"a\tb\tc\n":     '\t',
		"ID;Year;Inc,1": ';',
		"single\n":      ',',
	}
	for line, want := range cases {
		assert.Equal(t, want, sniffLine(line), "line %q", line)
	}
}

func TestLoadSemicolonCSVInfersKinds(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "marketing_campaign.csv",
		"ID;Dt_Customer;Education;Income;Recency\n"+
			"1;2012-09-04;Graduation;58138;58\n"+
			"2;2014-03-08;PhD;;38\n"+
			"3;2013-08-21;Master;71613,5;26\n")

	tbl, err := Load(p, LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, ';', tbl.Delimiter)
	assert.Equal(t, 3, tbl.Rows())
	assert.Equal(t, []string{"ID", "Dt_Customer", "Education", "Income", "Recency"}, tbl.Names())

	kinds := map[string]Kind{}
	for _, n := range tbl.Names() {
		c, _ := tbl.Column(n)
		kinds[n] = c.Kind
	}
	assert.Equal(t, Numeric, kinds["ID"])
	assert.Equal(t, Temporal, kinds["Dt_Customer"])
	assert.Equal(t, Categorical, kinds["Education"])
	assert.Equal(t, Numeric, kinds["Income"])

	income, _ := tbl.Floats("Income")
	assert.Equal(t, 58138.0, income[0])
	assert.True(t, math.IsNaN(income[1]))
	assert.InDelta(t, 71613.5, income[2], 1e-9)
}

func TestLoadSingleColumnIsDelimiterFailure(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "broken.csv", "a|b|c\n1|2|3\n")

	_, err := Load(p, LoadOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDelimiterDetection))
}

func TestSniffedDelimiterReparseIsStable(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "data.csv", "Time;Amount;Class\n0;10;0\n1;20;0\n")

	first, err := Load(p, LoadOptions{})
	require.NoError(t, err)

	var sb strings.Builder
	require.NoError(t, first.WriteCSV(&sb))
	out := writeFile(t, dir, "roundtrip.csv", sb.String())

	again, err := Load(out, LoadOptions{Delimiter: ','})
	require.NoError(t, err)
	assert.Greater(t, len(again.Names()), 1)

	d, err := SniffDelimiter(out)
	require.NoError(t, err)
	assert.Equal(t, ',', d)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.csv"), LoadOptions{})
	assert.True(t, errors.Is(err, ErrFileNotFound))
}

func TestLoadMaxRows(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "rows.csv", "a,b\n1,2\n3,4\n5,6\n")
	tbl, err := Load(p, LoadOptions{MaxRows: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.Rows())
}

func TestLoadXLSX(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "customers.xlsx")
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"MntWines", "MntFruits", "Région"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{100, 50, "Île-de-France"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]interface{}{200, 75, "Bretagne"}))
	require.NoError(t, f.SaveAs(p))
	require.NoError(t, f.Close())

	tbl, err := Load(p, LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"MntWines", "MntFruits", "Region"}, tbl.Names())
	wines, _ := tbl.Floats("MntWines")
	assert.Equal(t, []float64{100, 200}, wines)
}

func TestNormalizeHeader(t *testing.T) {
	got := NormalizeHeader([]string{"\ufeffTime", " Amount ", "Montant dépensé", "Amount", ""})
	assert.Equal(t, []string{"Time", "Amount", "Montant depense", "Amount.1", "Unnamed: 4"}, got)
}

func TestParseNumber(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"10", 10, true},
		{"1.000,5", 1000.5, true},
		{"1,000.5", 1000.5, true},
		{"0,25", 0.25, true},
		{"12.5%", 12.5, true},
		{"-3e2", -300, true},
		{"bad", 0, false},
		{"Inf", 0, false},
		{"", 0, false},
	}
	for _, c := range cases {
		got, ok := ParseNumber(c.in, ParseOptions{})
		assert.Equal(t, c.ok, ok, c.in)
		if c.ok {
			assert.InDelta(t, c.want, got, 1e-9, c.in)
		}
	}
}
