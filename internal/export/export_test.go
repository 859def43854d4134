package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/KaramelBytes/edadash/internal/analysis"
	"github.com/KaramelBytes/edadash/internal/dataset"
)

func fixedClock() time.Time { return time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC) }

func table() *dataset.Table {
	return dataset.New([]string{"Amount", "Class"}, [][]string{{"10", "0"}, {"1000", "1"}}, dataset.ParseOptions{})
}

func TestExportCSV(t *testing.T) {
	e := Exporter{Dir: filepath.Join(t.TempDir(), "out"), Now: fixedClock}
	p, err := e.CSV("fraud_filtered", TableSheet("filtered", table()))
	require.NoError(t, err)
	assert.Equal(t, "fraud_filtered_20240501_093000.csv", filepath.Base(p))

	b, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "Amount,Class\n10,0\n1000,1\n", string(b))
}

func TestExportMetrics(t *testing.T) {
	var sb strings.Builder
	require.NoError(t, WriteCSV(&sb, MetricsSheet("summary", []analysis.KeyValue{{Key: "Fraud Rate (%)", Value: "50.00"}})))
	assert.Equal(t, "Metric,Value\nFraud Rate (%),50.00\n", sb.String())
}

func TestExportWorkbook(t *testing.T) {
	e := Exporter{Dir: t.TempDir(), Now: fixedClock}
	p, err := e.Workbook("fraud_report", []Sheet{
		TableSheet("filtered", table()),
		MetricsSheet("summary", []analysis.KeyValue{{Key: "Total Transactions", Value: "2"}}),
	})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(p, "fraud_report_20240501_093000.xlsx"))

	f, err := excelize.OpenFile(p)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"filtered", "summary"}, f.GetSheetList())
	rows, err := f.GetRows("filtered")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Amount", "Class"}, {"10", "0"}, {"1000", "1"}}, rows)
}

func TestSheetName(t *testing.T) {
	assert.Equal(t, "Sheet3", sheetName("", 2))
	assert.Len(t, sheetName(strings.Repeat("x", 40), 0), 31)
}
