package fraud

import (
	"fmt"
	"math"
	"sort"

	"github.com/KaramelBytes/edadash/internal/analysis"
	"github.com/KaramelBytes/edadash/internal/anomaly"
	"github.com/KaramelBytes/edadash/internal/dataset"
)

// HourStat aggregates the transactions of one hour of the day.
type HourStat struct {
	Hour         int
	Transactions int
	Frauds       int
	// Rate is the fraud share of the hour, 0..1.
	Rate float64
}

// Heatmap counts frauds per day (rows) and hour (columns 0..23).
type Heatmap struct {
	Days   []int
	Counts [][]int
}

// ClassStats describes the amounts of one label class.
type ClassStats struct {
	Class string
	Desc  analysis.Description
}

// Analysis is everything the fraud views show for one filtered table.
type Analysis struct {
	Total     int
	Frauds    int
	FraudRate float64
	AvgAmount float64
	Outliers  *anomaly.Result
	Hourly    []HourStat
	Heatmap   *Heatmap
	ByClass   []ClassStats
	// Empty is set when the view has no rows; every rate is then 0.
	Empty bool
}

// Analyze computes the statistics of a view produced by p.Apply. Outlier
// fences are computed on the view itself, so they follow the active filters.
// Hourly figures come only from the time columns Prepare derived; Hour or Day
// columns carried by the input file are treated as ordinary data.
func (p *Prepared) Analyze(view *dataset.Table) (*Analysis, error) {
	return analyze(view, p.Label, p.Amount, p.HasTime())
}

func analyze(view *dataset.Table, label, amount string, withTime bool) (*Analysis, error) {
	a := &Analysis{Total: view.Rows(), Empty: view.Rows() == 0}
	amounts, ok := view.Floats(amount)
	if !ok {
		return nil, &dataset.MissingColumnError{Role: "amount", Candidates: []string{amount}}
	}
	labels, ok := view.Floats(label)
	if !ok {
		return nil, &dataset.MissingColumnError{Role: "fraud label", Candidates: []string{label}}
	}
	out, err := anomaly.Detect(view, amount, label)
	if err != nil {
		return nil, err
	}
	a.Outliers = out

	a.Frauds = countFrauds(view, label)
	if a.Total > 0 {
		a.FraudRate = float64(a.Frauds) / float64(a.Total)
	}
	if d := analysis.Describe(amounts); d.Count > 0 {
		a.AvgAmount = d.Mean
	}

	var normal, fraud []float64
	for i, v := range amounts {
		switch labels[i] {
		case 0:
			normal = append(normal, v)
		case 1:
			fraud = append(fraud, v)
		}
	}
	a.ByClass = []ClassStats{
		{Class: "Normal", Desc: analysis.Describe(normal)},
		{Class: "Fraud", Desc: analysis.Describe(fraud)},
	}

	if !withTime {
		return a, nil
	}
	if hours, ok := view.Floats(Hour); ok {
		a.Hourly = hourly(hours, labels)
		if days, ok := view.Floats(Day); ok {
			a.Heatmap = heatmap(days, hours, labels)
		}
	}
	return a, nil
}

// hourSlot returns h as a heatmap column, false when it is not an hour of the day.
func hourSlot(h float64) (int, bool) {
	if math.IsNaN(h) || h < 0 || h >= 24 {
		return 0, false
	}
	return int(h), true
}

func hourly(hours, labels []float64) []HourStat {
	byHour := map[int]*HourStat{}
	for i, h := range hours {
		slot, ok := hourSlot(h)
		if !ok {
			continue
		}
		hs := byHour[slot]
		if hs == nil {
			hs = &HourStat{Hour: slot}
			byHour[slot] = hs
		}
		hs.Transactions++
		if labels[i] == 1 {
			hs.Frauds++
		}
	}
	out := make([]HourStat, 0, len(byHour))
	for _, hs := range byHour {
		hs.Rate = float64(hs.Frauds) / float64(hs.Transactions)
		out = append(out, *hs)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hour < out[j].Hour })
	return out
}

func heatmap(days, hours, labels []float64) *Heatmap {
	rows := map[int][]int{}
	for i := range days {
		slot, ok := hourSlot(hours[i])
		if math.IsNaN(days[i]) || !ok {
			continue
		}
		d := int(days[i])
		if rows[d] == nil {
			rows[d] = make([]int, 24)
		}
		if labels[i] == 1 {
			rows[d][slot]++
		}
	}
	h := &Heatmap{}
	for d := range rows {
		h.Days = append(h.Days, d)
	}
	sort.Ints(h.Days)
	for _, d := range h.Days {
		h.Counts = append(h.Counts, rows[d])
	}
	return h
}

// Summary returns the headline metrics in display order.
func (a *Analysis) Summary() []analysis.KeyValue {
	outliers, outlierRate := 0, 0.0
	if a.Outliers != nil {
		outliers, outlierRate = a.Outliers.Count, a.Outliers.Rate
	}
	return []analysis.KeyValue{
		{Key: "Total Transactions", Value: fmt.Sprintf("%d", a.Total)},
		{Key: "Frauds Detected", Value: fmt.Sprintf("%d", a.Frauds)},
		{Key: "Fraud Rate (%)", Value: fmt.Sprintf("%.2f", a.FraudRate*100)},
		{Key: "Average Amount", Value: fmt.Sprintf("%.2f", a.AvgAmount)},
		{Key: "Outliers Detected", Value: fmt.Sprintf("%d", outliers)},
		{Key: "Outlier Rate (%)", Value: fmt.Sprintf("%.2f", outlierRate*100)},
	}
}

// ClassCounts returns the number of normal and fraudulent rows.
func (a *Analysis) ClassCounts() (normal, fraud int) {
	return a.ByClass[0].Desc.Count, a.ByClass[1].Desc.Count
}

// SampleForDisplay bounds the rows handed to charts.
func SampleForDisplay(view *dataset.Table, n int, seed int64) *dataset.Table {
	if n <= 0 {
		return view
	}
	return view.Sample(n, seed)
}
