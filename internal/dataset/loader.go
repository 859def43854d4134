package dataset

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/mozillazg/go-unidecode"
	"github.com/xuri/excelize/v2"
)

// LoadOptions controls how a file is turned into a Table.
type LoadOptions struct {
	// Delimiter for CSV. If 0, it is sniffed from the first line.
	Delimiter rune
	// MaxRows truncates the table; 0 means unlimited.
	MaxRows int
	// Sheet selects an XLSX sheet by name; empty means the first sheet.
	Sheet string
	Parse ParseOptions
}

// Reader turns a file into header + records.
type Reader interface {
	CanRead(path string) bool
	Read(path string, opt LoadOptions) (header []string, records [][]string, delim rune, err error)
}

var readers = []Reader{csvReader{}, xlsxReader{}}

// Resolve expands the glob patterns inside dir and returns the first match
// after de-duplication and sorting. A pattern without glob metacharacters
// naming an existing file matches itself.
func Resolve(dir string, patterns []string) (string, error) {
	if dir == "" {
		dir = "."
	}
	seen := map[string]struct{}{}
	var files []string
	for _, p := range patterns {
		full := p
		if !filepath.IsAbs(p) {
			full = filepath.Join(dir, p)
		}
		matches, err := filepath.Glob(full)
		if err != nil {
			return "", fmt.Errorf("bad pattern %q: %w", p, err)
		}
		for _, m := range matches {
			if info, err := os.Stat(m); err != nil || info.IsDir() {
				continue
			}
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	if len(files) == 0 {
		return "", &NotFoundError{Dir: dir, Patterns: patterns, Available: listCSV(dir, 5)}
	}
	sort.Strings(files)
	return files[0], nil
}

func listCSV(dir string, limit int) []string {
	matches, _ := filepath.Glob(filepath.Join(dir, "*.csv"))
	sort.Strings(matches)
	out := make([]string, 0, limit)
	for _, m := range matches {
		if len(out) == limit {
			break
		}
		out = append(out, filepath.Base(m))
	}
	return out
}

// SniffDelimiter reads the first line of path and returns the candidate
// delimiter (',', ';' or tab) that occurs most often. Ties resolve to ','.
func SniffDelimiter(path string) (rune, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open: %w", err)
	}
	defer f.Close()
	line, err := bufio.NewReader(f).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("read first line: %w", err)
	}
	return sniffLine(line), nil
}

func sniffLine(line string) rune {
	best, bestN := ',', strings.Count(line, ",")
	for _, d := range []rune{';', '\t'} {
		if n := strings.Count(line, string(d)); n > bestN {
			best, bestN = d, n
		}
	}
	return best
}

// Load parses a CSV/TSV or XLSX file into a Table.
func Load(path string, opt LoadOptions) (*Table, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, &NotFoundError{Dir: filepath.Dir(path), Patterns: []string{filepath.Base(path)}, Available: listCSV(filepath.Dir(path), 5)}
		}
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	var rd Reader
	for _, r := range readers {
		if r.CanRead(path) {
			rd = r
			break
		}
	}
	if rd == nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), ErrUnsupported)
	}
	header, records, delim, err := rd.Read(path, opt)
	if err != nil {
		return nil, err
	}
	if opt.MaxRows > 0 && len(records) > opt.MaxRows {
		records = records[:opt.MaxRows]
	}
	t := New(NormalizeHeader(header), records, opt.Parse)
	t.Source = path
	t.Delimiter = delim
	return t, nil
}

// NormalizeHeader trims names, strips a UTF-8 BOM, transliterates non-ASCII
// text and de-duplicates repeated names with ".1", ".2" suffixes.
func NormalizeHeader(header []string) []string {
	out := make([]string, len(header))
	seen := map[string]int{}
	for i, h := range header {
		name := strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if !isASCII(name) {
			name = strings.TrimSpace(unidecode.Unidecode(name))
		}
		if name == "" {
			name = "Unnamed: " + strconv.Itoa(i)
		}
		if n, ok := seen[name]; ok {
			seen[name] = n + 1
			name = name + "." + strconv.Itoa(n+1)
		} else {
			seen[name] = 0
		}
		out[i] = name
	}
	return out
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

type csvReader struct{}

func (csvReader) CanRead(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".csv" || ext == ".tsv" || ext == ".txt"
}

func (csvReader) Read(path string, opt LoadOptions) ([]string, [][]string, rune, error) {
	delim := opt.Delimiter
	if delim == 0 {
		if strings.EqualFold(filepath.Ext(path), ".tsv") {
			delim = '\t'
		} else {
			d, err := SniffDelimiter(path)
			if err != nil {
				return nil, nil, 0, err
			}
			delim = d
		}
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	r := csv.NewReader(f)
	r.Comma = delim
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.LazyQuotes = true

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, delim, fmt.Errorf("%s: empty file", filepath.Base(path))
		}
		return nil, nil, delim, fmt.Errorf("read header: %w", err)
	}
	if len(header) == 1 {
		return nil, nil, delim, &DelimiterError{Path: filepath.Base(path), Delimiter: delim, Header: header[0]}
	}
	var records [][]string
	for {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, nil, delim, fmt.Errorf("read row %d: %w", len(records)+1, err)
		}
		records = append(records, rec)
		if opt.MaxRows > 0 && len(records) >= opt.MaxRows {
			break
		}
	}
	return header, records, delim, nil
}

type xlsxReader struct{}

func (xlsxReader) CanRead(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".xlsx")
}

func (xlsxReader) Read(path string, opt LoadOptions) ([]string, [][]string, rune, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()
	sheet := opt.Sheet
	if sheet == "" {
		list := f.GetSheetList()
		if len(list) == 0 {
			return nil, nil, 0, fmt.Errorf("%s: workbook has no sheets", filepath.Base(path))
		}
		sheet = list[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, nil, 0, fmt.Errorf("%s: sheet %q is empty", filepath.Base(path), sheet)
	}
	return rows[0], rows[1:], 0, nil
}
