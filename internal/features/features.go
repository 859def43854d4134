// Package features derives the RFM-style aggregates used for customer
// segmentation and picks the feature set the clustering runs on.
package features

import (
	"math"

	"github.com/KaramelBytes/edadash/internal/dataset"
	"github.com/KaramelBytes/edadash/internal/schema"
)

const (
	TotalSpending  = "Total_Spending"
	TotalPurchases = "Total_Purchases"
	// fallbackCount is how many numeric columns are used when none of the
	// derived features are available.
	fallbackCount = 3
)

// Derived describes what Derive added to the table.
type Derived struct {
	// Features are the columns selected for segmentation, in order.
	Features []string
	// SpendColumns and PurchaseColumns are the inputs of the two totals.
	SpendColumns    []string
	PurchaseColumns []string
	Recency         string
	// Fallback is true when Features came from the first numeric columns.
	Fallback bool
}

// Available reports whether segmentation has anything to work with.
func (d *Derived) Available() bool { return d != nil && len(d.Features) > 0 }

// Derive coerces the spend and purchase-count columns to numbers, adds
// Total_Spending and Total_Purchases, and returns the ordered feature list
// Recency, Total_Purchases, Total_Spending (each only when present with at
// least one value). The table is modified in place.
//
// Values that fail to parse stay NaN in their column and are skipped by the
// row sum, so a row with no usable value totals 0.
func Derive(t *dataset.Table, s schema.Schema) *Derived {
	s = s.WithDefaults()
	d := &Derived{}
	names := t.Names()

	d.SpendColumns = s.SpendColumns(names, TotalSpending, TotalPurchases)
	if len(d.SpendColumns) > 0 {
		_ = t.SetFloats(TotalSpending, rowSum(t, d.SpendColumns))
	}
	d.PurchaseColumns = s.PurchaseColumns(names, TotalSpending, TotalPurchases)
	if len(d.PurchaseColumns) > 0 {
		_ = t.SetFloats(TotalPurchases, rowSum(t, d.PurchaseColumns))
	}
	if rec, ok := schema.First(names, s.RecencyColumns); ok {
		t.Coerce(rec)
		d.Recency = rec
	}

	for _, name := range []string{d.Recency, TotalPurchases, TotalSpending} {
		if name == "" || !t.Has(name) {
			continue
		}
		if vals, _ := t.Floats(name); AllMissing(vals) {
			continue
		}
		d.Features = append(d.Features, name)
	}
	if len(d.Features) == 0 {
		num := t.NumericNames()
		if len(num) > fallbackCount {
			num = num[:fallbackCount]
		}
		d.Features = append(d.Features, num...)
		d.Fallback = len(d.Features) > 0
	}
	return d
}

func rowSum(t *dataset.Table, cols []string) []float64 {
	out := make([]float64, t.Rows())
	for _, c := range cols {
		t.Coerce(c)
		vals, _ := t.Floats(c)
		for i, v := range vals {
			if !math.IsNaN(v) {
				out[i] += v
			}
		}
	}
	return out
}

// AllMissing reports whether vals holds no usable number.
func AllMissing(vals []float64) bool {
	for _, v := range vals {
		if !math.IsNaN(v) {
			return false
		}
	}
	return true
}
