package cmd

import (
	"fmt"
	"io"
	"math"

	"github.com/KaramelBytes/edadash/internal/analysis"
	"github.com/KaramelBytes/edadash/internal/anomaly"
	"github.com/KaramelBytes/edadash/internal/dataset"
	"github.com/KaramelBytes/edadash/internal/export"
	"github.com/KaramelBytes/edadash/internal/fraud"
	"github.com/spf13/cobra"
)

var (
	frAmountMin float64
	frAmountMax float64
	frHoursMin  float64
	frHoursMax  float64
	frExportDir string
	frXLSX      bool
	frJSON      bool
	frDelimiter string
)

var fraudCmd = &cobra.Command{
	Use:   "fraud [file]",
	Short: "Analyse a credit-card transaction file",
	Long: `Load a transaction file (Amount, a fraud label and optionally Time), apply the amount and
hour filters, and report fraud rate, IQR outliers, per-class amount statistics and the hourly breakdown.
Without a file argument the first match of fraud_patterns inside data_dir is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := config()
		if err != nil {
			return err
		}
		path, err := resolveInput(c, args, c.FraudPatterns)
		if err != nil {
			return err
		}
		delim, err := parseDelimiter(frDelimiter)
		if err != nil {
			return err
		}
		t, err := dataset.Load(path, dataset.LoadOptions{Delimiter: delim})
		if err != nil {
			return err
		}
		p, err := fraud.Prepare(t, c.Schema, fraudOptions(c))
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if !frJSON {
			fmt.Fprintf(out, "✓ %s: %s\n", path, p.Status())
			if p.SourceRows > p.Table.Rows() {
				fmt.Fprintf(out, "⚠ Downsampled from %d to %d rows (seed %d)\n", p.SourceRows, p.Table.Rows(), c.Seed)
			}
		}

		f := fraudFilter(cmd)
		if f.Hours != nil && !p.HasTime() {
			fmt.Fprintln(cmd.ErrOrStderr(), "⚠ Warning: no time column; hour filter ignored")
		}
		view := p.Apply(f)
		a, err := p.Analyze(view)
		if err != nil {
			return err
		}

		if frJSON {
			if err := printJSON(out, fraudReport(path, p, a)); err != nil {
				return err
			}
		} else {
			printFraud(out, a, c.Precision)
		}

		if frExportDir != "" || frXLSX {
			return exportFraud(cmd, frExportDir, c.ExportDir, view, a)
		}
		return nil
	},
}

func fraudFilter(cmd *cobra.Command) fraud.Filter {
	fl := cmd.Flags()
	var f fraud.Filter
	if fl.Changed("amount-min") || fl.Changed("amount-max") {
		f.Amount = &fraud.Range{Min: math.Inf(-1), Max: math.Inf(1)}
		if fl.Changed("amount-min") {
			f.Amount.Min = frAmountMin
		}
		if fl.Changed("amount-max") {
			f.Amount.Max = frAmountMax
		}
	}
	if fl.Changed("hours-min") || fl.Changed("hours-max") {
		f.Hours = &fraud.Range{Min: math.Inf(-1), Max: math.Inf(1)}
		if fl.Changed("hours-min") {
			f.Hours.Min = frHoursMin
		}
		if fl.Changed("hours-max") {
			f.Hours.Max = frHoursMax
		}
	}
	return f
}

func printFraud(w io.Writer, a *fraud.Analysis, precision int) {
	fmt.Fprintln(w, analysis.KeyValueTable("Fraud summary", a.Summary()))
	if a.Empty {
		fmt.Fprintln(w, "⚠ No transactions match the current filters")
		return
	}
	if a.Outliers != nil {
		f := a.Outliers.Fences
		fmt.Fprintf(w, "IQR fences: [%.2f, %.2f] (Q1 %.2f, Q3 %.2f); fraud share among outliers %.2f%%\n",
			f.Lower, f.Upper, f.Q1, f.Q3, a.Outliers.LabelRate*100)
	}
	names := make([]string, len(a.ByClass))
	descs := make([]analysis.Description, len(a.ByClass))
	for i, cs := range a.ByClass {
		names[i], descs[i] = cs.Class, cs.Desc
	}
	fmt.Fprintln(w, analysis.DescribeTable(names, descs, precision))
	if len(a.Hourly) > 0 {
		hours := make([]string, len(a.Hourly))
		frauds := make([]int, len(a.Hourly))
		for i, h := range a.Hourly {
			hours[i] = fmt.Sprintf("%02d (%.2f%%)", h.Hour, h.Rate*100)
			frauds[i] = h.Frauds
		}
		fmt.Fprintln(w, analysis.Counts("Hour (fraud rate)", hours, frauds))
	}
}

type fraudJSON struct {
	File       string            `json:"file"`
	Status     string            `json:"status"`
	Summary    map[string]string `json:"summary"`
	Fences     *anomaly.Fences   `json:"fences,omitempty"`
	Hourly     []fraud.HourStat  `json:"hourly,omitempty"`
	ByClass    map[string]int    `json:"class_counts"`
	Filtered   int               `json:"filtered_rows"`
	SourceRows int               `json:"source_rows"`
}

func fraudReport(path string, p *fraud.Prepared, a *fraud.Analysis) fraudJSON {
	r := fraudJSON{
		File:       path,
		Status:     p.Status(),
		Summary:    map[string]string{},
		Hourly:     a.Hourly,
		Filtered:   a.Total,
		SourceRows: p.SourceRows,
	}
	for _, kv := range a.Summary() {
		r.Summary[kv.Key] = kv.Value
	}
	if a.Outliers != nil && a.Outliers.Fences.N > 0 {
		f := a.Outliers.Fences
		r.Fences = &f
	}
	normal, fr := a.ClassCounts()
	r.ByClass = map[string]int{"normal": normal, "fraud": fr}
	return r
}

func exportFraud(cmd *cobra.Command, dir, fallback string, view *dataset.Table, a *fraud.Analysis) error {
	if dir == "" {
		dir = fallback
	}
	if err := anomaly.Flag(view, a.Outliers); err != nil {
		return err
	}
	ex := export.Exporter{Dir: dir}
	filtered := export.TableSheet("filtered", view)
	outliers := export.TableSheet("outliers", anomaly.Subset(view, a.Outliers))
	summary := export.MetricsSheet("summary", a.Summary())

	var written []string
	if frXLSX {
		p, err := ex.Workbook("fraud_report", []export.Sheet{summary, filtered, outliers})
		if err != nil {
			return err
		}
		written = append(written, p)
	} else {
		for _, item := range []struct {
			prefix string
			sheet  export.Sheet
		}{
			{"fraud_filtered", filtered},
			{"fraud_outliers", outliers},
			{"fraud_summary", summary},
		} {
			p, err := ex.CSV(item.prefix, item.sheet)
			if err != nil {
				return err
			}
			written = append(written, p)
		}
	}
	for _, p := range written {
		fmt.Fprintf(cmd.ErrOrStderr(), "✓ Exported %s\n", p)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(fraudCmd)
	fraudCmd.Flags().Float64Var(&frAmountMin, "amount-min", 0, "keep transactions with Amount >= value")
	fraudCmd.Flags().Float64Var(&frAmountMax, "amount-max", 0, "keep transactions with Amount <= value")
	fraudCmd.Flags().Float64Var(&frHoursMin, "hours-min", 0, "keep transactions at or after this many elapsed hours")
	fraudCmd.Flags().Float64Var(&frHoursMax, "hours-max", 0, "keep transactions at or before this many elapsed hours")
	fraudCmd.Flags().StringVar(&frExportDir, "export-dir", "", "write filtered/outlier/summary CSV files into this directory")
	fraudCmd.Flags().BoolVar(&frXLSX, "xlsx", false, "export a single XLSX workbook instead of CSV files")
	fraudCmd.Flags().BoolVar(&frJSON, "json", false, "print the analysis as JSON")
	fraudCmd.Flags().StringVar(&frDelimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab' (sniffed if omitted)")
}
