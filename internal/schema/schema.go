// Package schema declares which column names play which semantic role in the
// fraud and marketing datasets. Patterns are configuration, not code.
package schema

import "strings"

// Schema lists column-name patterns per semantic role.
type Schema struct {
	// SpendMarkers select monetary columns by substring (e.g. "Mnt").
	SpendMarkers []string `mapstructure:"spend_markers" yaml:"spend_markers"`
	// CountMarkers and PurchaseMarkers must both match a purchase-count column.
	CountMarkers    []string `mapstructure:"count_markers" yaml:"count_markers"`
	PurchaseMarkers []string `mapstructure:"purchase_markers" yaml:"purchase_markers"`
	RecencyColumns  []string `mapstructure:"recency_columns" yaml:"recency_columns"`
	AmountColumns   []string `mapstructure:"amount_columns" yaml:"amount_columns"`
	// LabelColumns are tried in order; the first present one is renamed to LabelName.
	LabelColumns []string `mapstructure:"label_columns" yaml:"label_columns"`
	LabelName    string   `mapstructure:"label_name" yaml:"label_name"`
	TimeColumns  []string `mapstructure:"time_columns" yaml:"time_columns"`
	SegmentNames []string `mapstructure:"segment_names" yaml:"segment_names"`
}

// Default returns the patterns used by the reference datasets
// (creditcard.csv and marketing_campaign.csv).
func Default() Schema {
	return Schema{
		SpendMarkers:    []string{"Mnt"},
		CountMarkers:    []string{"Num"},
		PurchaseMarkers: []string{"Purchases"},
		RecencyColumns:  []string{"Recency"},
		AmountColumns:   []string{"Amount"},
		LabelColumns:    []string{"Class", "Is_Fraud", "fraud"},
		LabelName:       "is_fraud",
		TimeColumns:     []string{"Time"},
		SegmentNames:    []string{"Champions", "Loyal", "Potential", "Dormant"},
	}
}

// WithDefaults fills empty roles from Default. A config file that only
// overrides one role keeps the others.
func (s Schema) WithDefaults() Schema {
	d := Default()
	if len(s.SpendMarkers) == 0 {
		s.SpendMarkers = d.SpendMarkers
	}
	if len(s.CountMarkers) == 0 {
		s.CountMarkers = d.CountMarkers
	}
	if len(s.PurchaseMarkers) == 0 {
		s.PurchaseMarkers = d.PurchaseMarkers
	}
	if len(s.RecencyColumns) == 0 {
		s.RecencyColumns = d.RecencyColumns
	}
	if len(s.AmountColumns) == 0 {
		s.AmountColumns = d.AmountColumns
	}
	if len(s.LabelColumns) == 0 {
		s.LabelColumns = d.LabelColumns
	}
	if strings.TrimSpace(s.LabelName) == "" {
		s.LabelName = d.LabelName
	}
	if len(s.TimeColumns) == 0 {
		s.TimeColumns = d.TimeColumns
	}
	if len(s.SegmentNames) == 0 {
		s.SegmentNames = d.SegmentNames
	}
	return s
}

// SpendColumns returns the names carrying a spend marker, in input order.
// Names listed in exclude (derived aggregates) are skipped.
func (s Schema) SpendColumns(names []string, exclude ...string) []string {
	var out []string
	for _, n := range names {
		if containsExact(exclude, n) {
			continue
		}
		if ContainsAny(n, s.SpendMarkers) {
			out = append(out, n)
		}
	}
	return out
}

// PurchaseColumns returns the names carrying both a count and a purchase marker.
func (s Schema) PurchaseColumns(names []string, exclude ...string) []string {
	var out []string
	for _, n := range names {
		if containsExact(exclude, n) {
			continue
		}
		if ContainsAny(n, s.CountMarkers) && ContainsAny(n, s.PurchaseMarkers) {
			out = append(out, n)
		}
	}
	return out
}

// First returns the first candidate present in names.
func First(names []string, candidates []string) (string, bool) {
	for _, c := range candidates {
		if containsExact(names, c) {
			return c, true
		}
	}
	return "", false
}

// ContainsAny reports whether name contains at least one marker.
// Matching is case-sensitive; empty markers never match.
func ContainsAny(name string, markers []string) bool {
	for _, m := range markers {
		if m != "" && strings.Contains(name, m) {
			return true
		}
	}
	return false
}

func containsExact(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
