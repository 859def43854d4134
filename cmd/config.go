package cmd

import (
	"fmt"
	"strconv"
	"strings"

	cfgpkg "github.com/KaramelBytes/edadash/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set edadash configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := config()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		list := func(v []string) string { return strings.Join(v, ",") }
		fmt.Fprintf(out, "data_dir: %s\n", c.DataDir)
		fmt.Fprintf(out, "fraud_patterns: %s\n", list(c.FraudPatterns))
		fmt.Fprintf(out, "marketing_patterns: %s\n", list(c.MarketingPatterns))
		fmt.Fprintf(out, "max_rows: %d\n", c.MaxRows)
		fmt.Fprintf(out, "display_sample: %d\n", c.DisplaySample)
		fmt.Fprintf(out, "seed: %d\n", c.Seed)
		fmt.Fprintf(out, "clusters: %d\n", c.Clusters)
		fmt.Fprintf(out, "k_min: %d\n", c.KMin)
		fmt.Fprintf(out, "k_max: %d\n", c.KMax)
		fmt.Fprintf(out, "kmeans_n_init: %d\n", c.KMeansNInit)
		fmt.Fprintf(out, "kmeans_max_iter: %d\n", c.KMeansMaxIter)
		fmt.Fprintf(out, "silhouette_sample: %d\n", c.SilhouetteSample)
		fmt.Fprintf(out, "precision: %d\n", c.Precision)
		fmt.Fprintf(out, "export_dir: %s\n", c.ExportDir)
		fmt.Fprintf(out, "server_host: %s\n", c.ServerHost)
		fmt.Fprintf(out, "server_port: %d\n", c.ServerPort)
		fmt.Fprintf(out, "session_ttl_min: %d\n", c.SessionTTLMin)
		s := c.Schema
		fmt.Fprintf(out, "schema.spend_markers: %s\n", list(s.SpendMarkers))
		fmt.Fprintf(out, "schema.count_markers: %s\n", list(s.CountMarkers))
		fmt.Fprintf(out, "schema.purchase_markers: %s\n", list(s.PurchaseMarkers))
		fmt.Fprintf(out, "schema.recency_columns: %s\n", list(s.RecencyColumns))
		fmt.Fprintf(out, "schema.amount_columns: %s\n", list(s.AmountColumns))
		fmt.Fprintf(out, "schema.label_columns: %s\n", list(s.LabelColumns))
		fmt.Fprintf(out, "schema.label_name: %s\n", s.LabelName)
		fmt.Fprintf(out, "schema.time_columns: %s\n", list(s.TimeColumns))
		fmt.Fprintf(out, "schema.segment_names: %s\n", list(s.SegmentNames))
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Long:  "Set a config value and save to disk. List values (patterns, schema roles) are comma-separated.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		c, err := config()
		if err != nil {
			return err
		}
		if err := setKey(c, key, val); err != nil {
			return err
		}
		if err := cfgpkg.Save(c, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Saved config")
		return nil
	},
}

func setKey(c *cfgpkg.Global, key, val string) error {
	intVal := func(min int) (int, error) {
		i, err := strconv.Atoi(val)
		if err != nil || i < min {
			return 0, fmt.Errorf("invalid int for %s: %v (minimum %d)", key, val, min)
		}
		return i, nil
	}
	list := func() ([]string, error) {
		var out []string
		for _, p := range strings.Split(val, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if len(out) == 0 {
			return nil, fmt.Errorf("empty list for %s", key)
		}
		return out, nil
	}
	var err error
	switch key {
	case "data_dir":
		c.DataDir = val
	case "export_dir":
		c.ExportDir = val
	case "server_host":
		c.ServerHost = val
	case "fraud_patterns":
		c.FraudPatterns, err = list()
	case "marketing_patterns":
		c.MarketingPatterns, err = list()
	case "max_rows":
		c.MaxRows, err = intVal(0)
	case "display_sample":
		c.DisplaySample, err = intVal(0)
	case "seed":
		var s int64
		s, err = strconv.ParseInt(val, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid int for seed: %w", err)
		}
		c.Seed = s
	case "clusters":
		c.Clusters, err = intVal(1)
	case "k_min":
		c.KMin, err = intVal(2)
	case "k_max":
		c.KMax, err = intVal(2)
	case "kmeans_n_init":
		c.KMeansNInit, err = intVal(1)
	case "kmeans_max_iter":
		c.KMeansMaxIter, err = intVal(1)
	case "silhouette_sample":
		c.SilhouetteSample, err = intVal(0)
	case "precision":
		c.Precision, err = intVal(0)
	case "server_port":
		c.ServerPort, err = intVal(0)
	case "session_ttl_min":
		c.SessionTTLMin, err = intVal(1)
	case "schema.spend_markers":
		c.Schema.SpendMarkers, err = list()
	case "schema.count_markers":
		c.Schema.CountMarkers, err = list()
	case "schema.purchase_markers":
		c.Schema.PurchaseMarkers, err = list()
	case "schema.recency_columns":
		c.Schema.RecencyColumns, err = list()
	case "schema.amount_columns":
		c.Schema.AmountColumns, err = list()
	case "schema.label_columns":
		c.Schema.LabelColumns, err = list()
	case "schema.label_name":
		c.Schema.LabelName = val
	case "schema.time_columns":
		c.Schema.TimeColumns, err = list()
	case "schema.segment_names":
		c.Schema.SegmentNames, err = list()
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	if err != nil {
		return err
	}
	if c.KMax < c.KMin {
		return fmt.Errorf("k_max (%d) must be >= k_min (%d)", c.KMax, c.KMin)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
