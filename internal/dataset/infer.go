package dataset

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// ParseOptions controls numeric parsing during kind inference.
type ParseOptions struct {
	// DecimalSeparator is ',' or '.'; 0 auto-detects per value.
	DecimalSeparator rune
	// ThousandsSeparator is optional; 0 strips common separators.
	ThousandsSeparator rune
}

var missingTokens = map[string]struct{}{
	"": {}, "NA": {}, "N/A": {}, "NaN": {}, "nan": {}, "null": {}, "NULL": {}, "None": {}, "#N/A": {},
}

// IsMissingToken reports whether s is one of the recognised missing-value markers.
func IsMissingToken(s string) bool {
	_, ok := missingTokens[strings.TrimSpace(s)]
	return ok
}

// inferColumn decides the kind of a column from its raw values: numeric when
// every present value parses as a number (an all-missing column is numeric),
// datetime when every present value parses as a date, categorical otherwise.
func inferColumn(name string, raw []string, opt ParseOptions) *Column {
	c := &Column{Name: name, Raw: raw}
	nums := make([]float64, len(raw))
	numeric := true
	for i, s := range raw {
		if IsMissingToken(s) {
			nums[i] = math.NaN()
			continue
		}
		x, ok := ParseNumber(s, opt)
		if !ok {
			numeric = false
			break
		}
		nums[i] = x
	}
	if numeric {
		c.Kind = Numeric
		c.Nums = nums
		return c
	}
	times := make([]time.Time, len(raw))
	temporal := true
	present := 0
	for i, s := range raw {
		if IsMissingToken(s) {
			continue
		}
		ts, ok := parseTimeMaybe(strings.TrimSpace(s))
		if !ok {
			temporal = false
			break
		}
		times[i] = ts
		present++
	}
	if temporal && present > 0 {
		c.Kind = Temporal
		c.Times = times
		return c
	}
	c.Kind = Categorical
	return c
}

// coerceFloat is the "coerce" conversion: anything that is not a plain
// number becomes NaN.
func coerceFloat(s string) float64 {
	if IsMissingToken(s) {
		return math.NaN()
	}
	x, ok := ParseNumber(s, ParseOptions{})
	if !ok {
		return math.NaN()
	}
	return x
}

// ParseNumber parses s as a float, accepting percent signs, non-breaking
// spaces and both decimal conventions ("1.234,5" and "1,234.5").
func ParseNumber(s string, opt ParseOptions) (float64, bool) {
	raw := strings.TrimSpace(s)
	if strings.Contains(raw, "%") {
		raw = strings.ReplaceAll(raw, "%", "")
	}
	raw = strings.ReplaceAll(raw, "\u00A0", " ")
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	dec := opt.DecimalSeparator
	thou := opt.ThousandsSeparator
	if dec == 0 {
		cpos := strings.LastIndex(raw, ",")
		dpos := strings.LastIndex(raw, ".")
		if cpos >= 0 && dpos >= 0 {
			if cpos > dpos {
				dec = ','
				thou = '.'
			} else {
				dec = '.'
				thou = ','
			}
		} else if cpos >= 0 {
			dec = ','
		} else {
			dec = '.'
		}
	}
	if thou == 0 {
		for _, sep := range []rune{',', '.', ' '} {
			if sep != dec {
				raw = strings.ReplaceAll(raw, string(sep), "")
			}
		}
	} else if thou != dec {
		raw = strings.ReplaceAll(raw, string(thou), "")
	}
	if dec != '.' {
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	// strconv accepts "Inf"/"NaN" spellings; treat them as text.
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

var timeLayouts = []string{
	time.RFC3339, "2006-01-02", "2006/01/02", "02-01-2006", "02/01/2006", "01/02/2006",
	"2006-01-02 15:04", "2006-01-02 15:04:05", "1/2/2006 15:04", "1/2/2006 15:04:05",
}

func parseTimeMaybe(s string) (time.Time, bool) {
	for _, l := range timeLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
