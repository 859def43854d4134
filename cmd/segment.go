package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/KaramelBytes/edadash/internal/analysis"
	"github.com/KaramelBytes/edadash/internal/dataset"
	"github.com/KaramelBytes/edadash/internal/export"
	"github.com/KaramelBytes/edadash/internal/marketing"
	"github.com/spf13/cobra"
)

var (
	segK         int
	segAuto      bool
	segKMin      int
	segKMax      int
	segExportDir string
	segXLSX      bool
	segJSON      bool
	segDelimiter string
)

var segmentCmd = &cobra.Command{
	Use:   "segment [file]",
	Short: "Segment customers with K-Means on recency, purchases and spending",
	Long: `Derive Total_Spending and Total_Purchases from the Mnt* and Num*Purchases columns,
standardize Recency/Total_Purchases/Total_Spending and cluster them with K-Means.
Use --k for a fixed cluster count or --auto to pick k by silhouette score.
Without a file argument the first match of marketing_patterns inside data_dir is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := config()
		if err != nil {
			return err
		}
		path, err := resolveInput(c, args, c.MarketingPatterns)
		if err != nil {
			return err
		}
		delim, err := parseDelimiter(segDelimiter)
		if err != nil {
			return err
		}
		t, err := dataset.Load(path, dataset.LoadOptions{Delimiter: delim})
		if err != nil {
			return err
		}
		opts := marketingOptions(c)
		fl := cmd.Flags()
		if fl.Changed("k") {
			if segK < 1 {
				return fmt.Errorf("invalid --k: %d (must be >= 1)", segK)
			}
			opts.Cluster.K = segK
		}
		if fl.Changed("k-min") {
			opts.Cluster.KMin = segKMin
		}
		if fl.Changed("k-max") {
			opts.Cluster.KMax = segKMax
		}
		opts.Auto = segAuto

		out := cmd.OutOrStdout()
		if !segJSON {
			fmt.Fprintf(out, "✓ %s: %s\n", path, marketing.Status(t, c.Schema))
		}
		res, err := marketing.Run(cmd.Context(), t, c.Schema, opts)
		if err != nil {
			return err
		}
		if !res.Available {
			if segJSON {
				return printJSON(out, segmentJSON{File: path, Available: false, Reason: res.Reason})
			}
			fmt.Fprintf(out, "⚠ Segmentation unavailable: %s\n", res.Reason)
			return nil
		}
		debugf("k=%d inertia=%.4f iterations=%d", res.Segmentation.K, res.Segmentation.Model.Inertia, res.Segmentation.Model.Iterations)

		if segJSON {
			if err := printJSON(out, segmentReport(path, res)); err != nil {
				return err
			}
		} else {
			printSegments(out, res)
		}
		if segExportDir != "" || segXLSX {
			return exportSegments(cmd, segExportDir, c.ExportDir, res)
		}
		return nil
	},
}

func printSegments(w io.Writer, res *marketing.Result) {
	seg := res.Segmentation
	note := ""
	if res.Derived.Fallback {
		note = " (no RFM columns; first numeric columns used)"
	}
	fmt.Fprintf(w, "Features: %s%s\n", strings.Join(seg.Features, ", "), note)
	if len(seg.Scores) > 0 {
		keys := seg.ScoreKeys()
		labels := make([]string, len(keys))
		for i, k := range keys {
			marker := ""
			if k == seg.K {
				marker = " ✓"
			}
			labels[i] = fmt.Sprintf("k=%d: %.3f%s", k, seg.Scores[k], marker)
		}
		fmt.Fprintf(w, "Silhouette by k: %s\n", strings.Join(labels, ", "))
	}
	if seg.SilhouetteOK {
		fmt.Fprintf(w, "Clusters: %d, silhouette %.3f\n", seg.K, seg.Silhouette)
	} else {
		fmt.Fprintf(w, "Clusters: %d\n", seg.K)
	}
	sizes := res.Sizes()
	labels := make([]string, len(sizes))
	for id := range sizes {
		labels[id] = fmt.Sprintf("%d %s", id, res.SegmentLabel(id))
	}
	fmt.Fprintln(w, analysis.Counts("Segment", labels, sizes))
	fmt.Fprintln(w, res.Profile.Text())
	if p := res.Projection; p != nil && len(p.Explained) > 0 {
		parts := make([]string, len(p.Explained))
		for i, e := range p.Explained {
			parts[i] = fmt.Sprintf("PC%d %.1f%%", i+1, e*100)
		}
		fmt.Fprintf(w, "Explained variance: %s\n", strings.Join(parts, ", "))
	}
}

type segmentSize struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Size int    `json:"size"`
}

type segmentJSON struct {
	File       string              `json:"file"`
	Available  bool                `json:"available"`
	Reason     string              `json:"reason,omitempty"`
	K          int                 `json:"k,omitempty"`
	Features   []string            `json:"features,omitempty"`
	Silhouette *float64            `json:"silhouette,omitempty"`
	Scores     map[int]float64     `json:"scores,omitempty"`
	Segments   []segmentSize       `json:"segments,omitempty"`
	Profile    []map[string]string `json:"profile,omitempty"`
}

func segmentReport(path string, res *marketing.Result) segmentJSON {
	seg := res.Segmentation
	r := segmentJSON{File: path, Available: true, K: seg.K, Features: seg.Features, Scores: seg.Scores}
	if seg.SilhouetteOK {
		v := seg.Silhouette
		r.Silhouette = &v
	}
	for id, n := range res.Sizes() {
		r.Segments = append(r.Segments, segmentSize{ID: id, Name: res.SegmentLabel(id), Size: n})
	}
	header := res.Profile.Header()
	for _, rec := range res.Profile.Records() {
		row := make(map[string]string, len(header))
		for i, h := range header {
			row[h] = rec[i]
		}
		r.Profile = append(r.Profile, row)
	}
	return r
}

func exportSegments(cmd *cobra.Command, dir, fallback string, res *marketing.Result) error {
	if dir == "" {
		dir = fallback
	}
	ex := export.Exporter{Dir: dir}
	segments := export.TableSheet("segments", res.Table)
	profile := export.ProfileSheet("profile", res.Profile)

	var written []string
	if segXLSX {
		p, err := ex.Workbook("segmentation_report", []export.Sheet{profile, segments})
		if err != nil {
			return err
		}
		written = append(written, p)
	} else {
		p, err := ex.CSV("customer_segments", segments)
		if err != nil {
			return err
		}
		q, err := ex.CSV("cluster_profile", profile)
		if err != nil {
			return err
		}
		written = append(written, p, q)
	}
	for _, p := range written {
		fmt.Fprintf(cmd.ErrOrStderr(), "✓ Exported %s\n", p)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(segmentCmd)
	segmentCmd.Flags().IntVar(&segK, "k", 4, "number of clusters (overrides config clusters)")
	segmentCmd.Flags().BoolVar(&segAuto, "auto", false, "choose k by silhouette score within [k-min, k-max]")
	segmentCmd.Flags().IntVar(&segKMin, "k-min", 2, "smallest k tried with --auto")
	segmentCmd.Flags().IntVar(&segKMax, "k-max", 7, "largest k tried with --auto")
	segmentCmd.Flags().StringVar(&segExportDir, "export-dir", "", "write segment and profile CSV files into this directory")
	segmentCmd.Flags().BoolVar(&segXLSX, "xlsx", false, "export a single XLSX workbook instead of CSV files")
	segmentCmd.Flags().BoolVar(&segJSON, "json", false, "print the segmentation as JSON")
	segmentCmd.Flags().StringVar(&segDelimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab' (sniffed if omitted)")
}
