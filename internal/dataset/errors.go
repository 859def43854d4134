package dataset

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrFileNotFound indicates no input file matched the requested name or patterns.
	ErrFileNotFound = errors.New("no input file found")
	// ErrDelimiterDetection indicates the parsed table has a single column.
	ErrDelimiterDetection = errors.New("delimiter detection failed")
	// ErrMissingColumn indicates a required column is absent.
	ErrMissingColumn = errors.New("missing required column")
	// ErrUnsupported indicates a file format without a reader.
	ErrUnsupported = errors.New("unsupported table format")
)

// NotFoundError describes a failed file lookup.
type NotFoundError struct {
	Dir       string
	Patterns  []string
	Available []string
}

func (e *NotFoundError) Error() string {
	msg := fmt.Sprintf("no file in %s matches %s", e.Dir, strings.Join(e.Patterns, ", "))
	if len(e.Available) > 0 {
		return msg + "; available CSV files: " + strings.Join(e.Available, ", ")
	}
	return msg + "; no CSV file found in the directory"
}

func (e *NotFoundError) Unwrap() error { return ErrFileNotFound }

// DelimiterError reports a parse that produced a single column, which almost
// always means the wrong delimiter was used.
type DelimiterError struct {
	Path      string
	Delimiter rune
	Header    string
}

func (e *DelimiterError) Error() string {
	return fmt.Sprintf("%s parsed with delimiter %q yields a single column (%q); check the field separator", e.Path, e.Delimiter, e.Header)
}

func (e *DelimiterError) Unwrap() error { return ErrDelimiterDetection }

// MissingColumnError reports that none of the candidate names exist.
type MissingColumnError struct {
	Role       string
	Candidates []string
}

func (e *MissingColumnError) Error() string {
	if e.Role != "" {
		return fmt.Sprintf("missing %s column (tried %s)", e.Role, strings.Join(e.Candidates, ", "))
	}
	return fmt.Sprintf("missing column %s", strings.Join(e.Candidates, ", "))
}

func (e *MissingColumnError) Unwrap() error { return ErrMissingColumn }
