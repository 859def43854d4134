// Package export writes tables and summaries as timestamped CSV files and
// XLSX workbooks.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/KaramelBytes/edadash/internal/analysis"
	"github.com/KaramelBytes/edadash/internal/dataset"
	"github.com/KaramelBytes/edadash/internal/utils"
)

// Sheet is a named rectangular table.
type Sheet struct {
	Name   string
	Header []string
	Rows   [][]string
}

// TableSheet converts a record table.
func TableSheet(name string, t *dataset.Table) Sheet {
	s := Sheet{Name: name, Header: t.Names()}
	for i := 0; i < t.Rows(); i++ {
		row := make([]string, len(s.Header))
		for j, c := range s.Header {
			row[j] = t.Format(i, c)
		}
		s.Rows = append(s.Rows, row)
	}
	return s
}

// MetricsSheet converts summary metrics.
func MetricsSheet(name string, kv []analysis.KeyValue) Sheet {
	s := Sheet{Name: name, Header: []string{"Metric", "Value"}}
	for _, m := range kv {
		s.Rows = append(s.Rows, []string{m.Key, m.Value})
	}
	return s
}

// ProfileSheet converts a per-group profile.
func ProfileSheet(name string, p *analysis.Profile) Sheet {
	return Sheet{Name: name, Header: p.Header(), Rows: p.Records()}
}

// WriteCSV writes a sheet as comma-separated text.
func WriteCSV(w io.Writer, s Sheet) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(s.Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := cw.WriteAll(s.Rows); err != nil {
		return fmt.Errorf("write rows: %w", err)
	}
	return nil
}

// WriteWorkbook writes one worksheet per sheet. Cells that parse as numbers
// are stored as numbers.
func WriteWorkbook(w io.Writer, sheets []Sheet) error {
	f := excelize.NewFile()
	defer f.Close()
	for i, s := range sheets {
		name := sheetName(s.Name, i)
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("new sheet %q: %w", name, err)
		}
		if err := writeRow(f, name, 1, s.Header); err != nil {
			return err
		}
		for r, row := range s.Rows {
			if err := writeRow(f, name, r+2, row); err != nil {
				return err
			}
		}
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, vals []string) error {
	cells := make([]interface{}, len(vals))
	for i, v := range vals {
		if x, err := strconv.ParseFloat(v, 64); err == nil {
			cells[i] = x
		} else {
			cells[i] = v
		}
	}
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}

// sheetName trims to Excel's 31 character limit and avoids empty names.
func sheetName(name string, i int) string {
	if name == "" {
		name = fmt.Sprintf("Sheet%d", i+1)
	}
	if len(name) > 31 {
		name = name[:31]
	}
	return name
}

// Exporter writes files into Dir with timestamped names.
type Exporter struct {
	Dir string
	Now func() time.Time
}

func (e Exporter) path(prefix, ext string) (string, error) {
	dir := e.Dir
	if dir == "" {
		dir = "."
	}
	if err := utils.EnsureDir(dir); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	return filepath.Join(dir, utils.TimestampedName(prefix, ext, now())), nil
}

// CSV writes s to <prefix>_YYYYMMDD_HHMMSS.csv and returns the path.
func (e Exporter) CSV(prefix string, s Sheet) (string, error) {
	p, err := e.path(prefix, "csv")
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := WriteCSV(&buf, s); err != nil {
		return "", err
	}
	if err := utils.SafeWriteFile(p, buf.Bytes()); err != nil {
		return "", err
	}
	return p, nil
}

// Workbook writes the sheets to <prefix>_YYYYMMDD_HHMMSS.xlsx and returns the path.
func (e Exporter) Workbook(prefix string, sheets []Sheet) (string, error) {
	p, err := e.path(prefix, "xlsx")
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := WriteWorkbook(&buf, sheets); err != nil {
		return "", err
	}
	if err := utils.SafeWriteFile(p, buf.Bytes()); err != nil {
		return "", err
	}
	return p, nil
}
