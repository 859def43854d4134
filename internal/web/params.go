package web

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/KaramelBytes/edadash/internal/fraud"
	"github.com/KaramelBytes/edadash/internal/marketing"
)

// BadRequestError marks a malformed query parameter.
type BadRequestError struct {
	Param string
	Value string
	Err   error
}

func (e *BadRequestError) Error() string {
	return fmt.Sprintf("invalid %s %q: %v", e.Param, e.Value, e.Err)
}

func (e *BadRequestError) Unwrap() error { return e.Err }

func floatParam(q url.Values, name string) (float64, bool, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) {
		return 0, false, &BadRequestError{Param: name, Value: raw, Err: fmt.Errorf("not a number")}
	}
	return v, true, nil
}

func rangeParam(q url.Values, minName, maxName string) (*fraud.Range, error) {
	lo, hasLo, err := floatParam(q, minName)
	if err != nil {
		return nil, err
	}
	hi, hasHi, err := floatParam(q, maxName)
	if err != nil {
		return nil, err
	}
	if !hasLo && !hasHi {
		return nil, nil
	}
	r := &fraud.Range{Min: math.Inf(-1), Max: math.Inf(1)}
	if hasLo {
		r.Min = lo
	}
	if hasHi {
		r.Max = hi
	}
	return r, nil
}

// parseFilter reads amount_min, amount_max, hours_min and hours_max.
func parseFilter(q url.Values) (fraud.Filter, error) {
	var f fraud.Filter
	var err error
	if f.Amount, err = rangeParam(q, "amount_min", "amount_max"); err != nil {
		return f, err
	}
	if f.Hours, err = rangeParam(q, "hours_min", "hours_max"); err != nil {
		return f, err
	}
	return f, nil
}

// parseSample reads the display sample size, falling back to def.
func parseSample(q url.Values, def int) (int, error) {
	raw := strings.TrimSpace(q.Get("sample"))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, &BadRequestError{Param: "sample", Value: raw, Err: fmt.Errorf("want a non-negative integer")}
	}
	return n, nil
}

// parseMarketing applies the k and auto parameters to the defaults.
func parseMarketing(q url.Values, def marketing.Options) (marketing.Options, error) {
	opts := def
	if raw := strings.TrimSpace(q.Get("k")); raw != "" {
		k, err := strconv.Atoi(raw)
		if err != nil || k < 1 {
			return opts, &BadRequestError{Param: "k", Value: raw, Err: fmt.Errorf("want a positive integer")}
		}
		opts.Cluster.K = k
	}
	if raw := strings.TrimSpace(q.Get("auto")); raw != "" {
		auto, err := strconv.ParseBool(raw)
		if err != nil {
			if raw != "on" {
				return opts, &BadRequestError{Param: "auto", Value: raw, Err: err}
			}
			auto = true
		}
		opts.Auto = auto
	}
	return opts, nil
}
