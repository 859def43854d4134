package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/KaramelBytes/edadash/internal/analysis"
	"github.com/KaramelBytes/edadash/internal/cluster"
	cfgpkg "github.com/KaramelBytes/edadash/internal/config"
	"github.com/KaramelBytes/edadash/internal/dataset"
	"github.com/KaramelBytes/edadash/internal/fraud"
	"github.com/KaramelBytes/edadash/internal/marketing"
	"github.com/KaramelBytes/edadash/internal/session"
	"github.com/KaramelBytes/edadash/internal/utils"
)

// parseDelimiter maps the --delimiter flag to a rune; empty means sniff.
func parseDelimiter(s string) (rune, error) {
	switch s {
	case "":
		return 0, nil
	case ",":
		return ',', nil
	case "\t", "tab":
		return '\t', nil
	case ";":
		return ';', nil
	default:
		return 0, fmt.Errorf("unsupported --delimiter: %s", s)
	}
}

// parseSeparators maps the --decimal and --thousands flags.
func parseSeparators(decimal, thousands string) (dataset.ParseOptions, error) {
	var opt dataset.ParseOptions
	switch strings.ToLower(strings.TrimSpace(decimal)) {
	case ",", "comma":
		opt.DecimalSeparator = ','
	case ".", "dot":
		opt.DecimalSeparator = '.'
	case "":
	default:
		return opt, fmt.Errorf("unsupported --decimal: %s (use '.'|'comma')", decimal)
	}
	switch strings.ToLower(strings.TrimSpace(thousands)) {
	case ",":
		opt.ThousandsSeparator = ','
	case ".":
		opt.ThousandsSeparator = '.'
	case "space", " ":
		opt.ThousandsSeparator = ' '
	case "":
	default:
		return opt, fmt.Errorf("unsupported --thousands: %s (use ','|'.'|'space')", thousands)
	}
	return opt, nil
}

// resolveInput returns the explicit path or the first file in the data
// directory matching patterns.
func resolveInput(c *cfgpkg.Global, args []string, patterns []string) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return utils.ExpandHome(args[0]), nil
	}
	return dataset.Resolve(utils.ExpandHome(c.DataDir), patterns)
}

func fraudOptions(c *cfgpkg.Global) fraud.Options {
	return fraud.Options{MaxRows: c.MaxRows, Seed: c.Seed}
}

func clusterOptions(c *cfgpkg.Global) cluster.Options {
	return cluster.Options{
		K:                c.Clusters,
		Seed:             c.Seed,
		NInit:            c.KMeansNInit,
		MaxIter:          c.KMeansMaxIter,
		KMin:             c.KMin,
		KMax:             c.KMax,
		SilhouetteSample: c.SilhouetteSample,
	}
}

func marketingOptions(c *cfgpkg.Global) marketing.Options {
	opts := marketing.DefaultOptions()
	opts.Cluster = clusterOptions(c)
	opts.Profile = analysis.ProfileOptions{Precision: c.Precision, Std: true, Count: true}
	return opts
}

// sessionSettings builds the per-session loader settings of the dashboard.
func sessionSettings(c *cfgpkg.Global) session.Settings {
	return session.Settings{
		DataDir:           utils.ExpandHome(c.DataDir),
		FraudPatterns:     c.FraudPatterns,
		MarketingPatterns: c.MarketingPatterns,
		Schema:            c.Schema,
		Fraud:             fraudOptions(c),
	}
}

func sessionTTL(c *cfgpkg.Global) time.Duration {
	if c.SessionTTLMin <= 0 {
		return time.Hour
	}
	return time.Duration(c.SessionTTLMin) * time.Minute
}

func printJSON(w io.Writer, v any) error {
	b, err := utils.PrettyJSON(v)
	if err != nil {
		return err
	}
	_, err = w.Write(append(b, '\n'))
	return err
}
