package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/KaramelBytes/edadash/internal/analysis"
	"github.com/KaramelBytes/edadash/internal/dataset"
	"github.com/KaramelBytes/edadash/internal/utils"
	"github.com/spf13/cobra"
)

var (
	anaOutputPath string
	anaDelimiter  string
	anaSampleRows int
	anaMaxRows    int
	anaTopValues  int
	anaCorr       bool
	anaSheetName  string
	anaDecimal    string
	anaThousands  string
	anaQuiet      bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file|glob>...",
	Short: "Profile CSV/TSV/XLSX files and print a Markdown overview",
	Long: `Profile one or more tabular files: inferred column kinds, missing values, numeric
ranges, top categories, correlations and sample rows. Glob patterns are expanded,
de-duplicated and processed in sorted order.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := expandInputs(args)
		if err != nil {
			return err
		}
		delim, err := parseDelimiter(anaDelimiter)
		if err != nil {
			return err
		}
		parse, err := parseSeparators(anaDecimal, anaThousands)
		if err != nil {
			return err
		}
		load := dataset.LoadOptions{Delimiter: delim, MaxRows: anaMaxRows, Sheet: anaSheetName, Parse: parse}
		opt := analysis.DefaultOptions()
		opt.SampleRows = anaSampleRows
		opt.Correlations = anaCorr
		if anaTopValues > 0 {
			opt.TopValues = anaTopValues
		}

		var docs []string
		total := len(files)
		for i, path := range files {
			if !anaQuiet && total > 1 {
				fmt.Fprintf(cmd.ErrOrStderr(), "[%d/%d] Processing %s...\n", i+1, total, filepath.Base(path))
			}
			t, err := dataset.Load(path, load)
			if err != nil {
				return err
			}
			debugf("%s: %d rows, %d columns, delimiter %q", path, t.Rows(), len(t.Names()), t.Delimiter)
			docs = append(docs, analysis.Overview(t, opt).Markdown())
		}
		md := strings.Join(docs, "\n---\n\n")

		if anaOutputPath != "" {
			if dir := filepath.Dir(anaOutputPath); dir != "." {
				if err := utils.EnsureDir(dir); err != nil {
					return fmt.Errorf("create output dir: %w", err)
				}
			}
			if err := os.WriteFile(anaOutputPath, []byte(md), 0o644); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			if !anaQuiet {
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote analysis of %d file(s) to %s\n", total, anaOutputPath)
			}
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), md)
		return nil
	},
}

// expandInputs expands glob arguments, keeps plain paths as given, and
// returns the de-duplicated list in sorted order.
func expandInputs(args []string) ([]string, error) {
	seen := map[string]struct{}{}
	var files []string
	for _, a := range args {
		a = utils.ExpandHome(a)
		matches := []string{a}
		if strings.ContainsAny(a, "*?[") {
			m, err := filepath.Glob(a)
			if err != nil {
				return nil, fmt.Errorf("bad pattern %q: %w", a, err)
			}
			if len(m) == 0 {
				return nil, fmt.Errorf("%w: nothing matches %s", dataset.ErrFileNotFound, a)
			}
			matches = m
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	sort.Strings(files)
	return files, nil
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVarP(&anaOutputPath, "output", "o", "", "optional path to write the analysis (Markdown)")
	analyzeCmd.Flags().StringVar(&anaDelimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab' (sniffed if omitted)")
	analyzeCmd.Flags().StringVar(&anaDecimal, "decimal", "", "decimal separator for numbers: '.'|'comma' (auto-detect if omitted)")
	analyzeCmd.Flags().StringVar(&anaThousands, "thousands", "", "thousands separator for numbers: ','|'.'|'space' (auto-detect if omitted)")
	analyzeCmd.Flags().IntVar(&anaSampleRows, "sample-rows", 5, "number of sample rows to include")
	analyzeCmd.Flags().IntVar(&anaMaxRows, "max-rows", 100000, "maximum rows to process (0 = unlimited)")
	analyzeCmd.Flags().IntVar(&anaTopValues, "top-values", 8, "categories listed per categorical column")
	analyzeCmd.Flags().BoolVar(&anaCorr, "correlations", true, "compute Pearson correlations among numeric columns")
	analyzeCmd.Flags().StringVar(&anaSheetName, "sheet-name", "", "XLSX: sheet name to analyze (first sheet if omitted)")
	analyzeCmd.Flags().BoolVar(&anaQuiet, "quiet", false, "suppress progress and non-essential output")
}
