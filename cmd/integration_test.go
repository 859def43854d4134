package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// resetFlags clears values and Changed state that persist across Execute calls.
func resetFlags(c *cobra.Command) {
	reset := func(fl *pflag.Flag) {
		if sv, ok := fl.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = fl.Value.Set(fl.DefValue)
		}
		fl.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// runCmd is a helper to execute the root command with args and capture stdout.
func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	cfg = nil
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := runCmd(t, args...)
	if err != nil {
		t.Fatalf("command %v failed: %v", args, err)
	}
	return out
}

// isolate points HOME at a temp dir so no user config is read or written.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	oldHome := os.Getenv("HOME")
	t.Cleanup(func() { os.Setenv("HOME", oldHome) })
	os.Setenv("HOME", home)
	return home
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

const transactions = "Time,Amount,Class\n0,10,0\n3600,20,0\n7200,30,0\n90000,1000,1\n93600,15,0\n"

const customers = "ID;MntWines;MntFruits;NumWebPurchases;NumStorePurchases;Recency\n" +
	"1;1000;500;10;12;5\n2;1100;450;11;13;6\n3;950;520;9;12;4\n" +
	"4;20;5;1;2;90\n5;25;8;2;1;85\n6;15;4;1;1;95\n" +
	"7;400;100;5;6;40\n8;420;120;6;5;45\n"

func TestCLI_AnalyzeGlobWritesOutput(t *testing.T) {
	home := isolate(t)
	csv := "col1,col2\nA,1\nB,2\nC,3\n"
	writeFile(t, filepath.Join(home, "d1", "metrics.csv"), csv)
	writeFile(t, filepath.Join(home, "d2", "metrics.csv"), csv)
	outPath := filepath.Join(home, "out", "summary.md")

	mustRun(t, "analyze", filepath.Join(home, "d*", "metrics.csv"), filepath.Join(home, "d1", "metrics.csv"), "-o", outPath, "--quiet")

	body, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if n := strings.Count(string(body), "## Dataset summary"); n != 2 {
		t.Fatalf("expected 2 summaries after de-duplication, got %d", n)
	}
}

func TestCLI_AnalyzeNoMatch(t *testing.T) {
	home := isolate(t)
	if _, err := runCmd(t, "analyze", filepath.Join(home, "*.csv")); err == nil {
		t.Fatalf("expected error for a glob without matches")
	}
}

func TestCLI_FraudJSONWithFilter(t *testing.T) {
	home := isolate(t)
	path := writeFile(t, filepath.Join(home, "data", "creditcard.csv"), transactions)

	out := mustRun(t, "fraud", path, "--json", "--amount-max", "25")
	var rep fraudJSON
	if err := json.Unmarshal([]byte(out), &rep); err != nil {
		t.Fatalf("decode json: %v\n%s", err, out)
	}
	if rep.Filtered != 3 || rep.SourceRows != 5 {
		t.Fatalf("unexpected rows: filtered=%d source=%d", rep.Filtered, rep.SourceRows)
	}
	if rep.Summary["Frauds Detected"] != "0" {
		t.Fatalf("expected no frauds under 25, got %s", rep.Summary["Frauds Detected"])
	}
}

func TestCLI_FraudDiscoversAndExports(t *testing.T) {
	home := isolate(t)
	dataDir := filepath.Join(home, "data")
	writeFile(t, filepath.Join(dataDir, "creditcard.csv"), transactions)
	exportDir := filepath.Join(home, "exports")

	out := mustRun(t, "--data-dir", dataDir, "fraud", "--export-dir", exportDir)
	if !strings.Contains(out, "loaded 5 transactions (1 frauds, 20.00%)") {
		t.Fatalf("missing status line:\n%s", out)
	}
	if !strings.Contains(out, "Total Transactions") {
		t.Fatalf("missing summary table:\n%s", out)
	}
	for _, prefix := range []string{"fraud_filtered_", "fraud_outliers_", "fraud_summary_"} {
		m, _ := filepath.Glob(filepath.Join(exportDir, prefix+"*.csv"))
		if len(m) != 1 {
			t.Fatalf("expected one %s export, got %v", prefix, m)
		}
	}

	mustRun(t, "--data-dir", dataDir, "fraud", "--export-dir", exportDir, "--xlsx")
	if m, _ := filepath.Glob(filepath.Join(exportDir, "fraud_report_*.xlsx")); len(m) != 1 {
		t.Fatalf("expected one workbook, got %v", m)
	}
}

func TestCLI_FraudMissingLabel(t *testing.T) {
	home := isolate(t)
	path := writeFile(t, filepath.Join(home, "tx.csv"), "Time,Amount\n0,10\n1,20\n")
	_, err := runCmd(t, "fraud", path)
	if err == nil || !strings.Contains(err.Error(), "fraud label") {
		t.Fatalf("expected missing label error, got %v", err)
	}
}

func TestCLI_SegmentAutoJSON(t *testing.T) {
	home := isolate(t)
	path := writeFile(t, filepath.Join(home, "marketing_campaign.csv"), customers)

	out := mustRun(t, "segment", path, "--auto", "--json")
	var rep segmentJSON
	if err := json.Unmarshal([]byte(out), &rep); err != nil {
		t.Fatalf("decode json: %v\n%s", err, out)
	}
	if !rep.Available || len(rep.Scores) == 0 || rep.Silhouette == nil {
		t.Fatalf("expected an auto-k segmentation, got %+v", rep)
	}
	total := 0
	for _, s := range rep.Segments {
		total += s.Size
	}
	if total != 8 {
		t.Fatalf("segment sizes sum to %d, want 8", total)
	}
}

func TestCLI_SegmentExports(t *testing.T) {
	home := isolate(t)
	path := writeFile(t, filepath.Join(home, "marketing_campaign.csv"), customers)
	exportDir := filepath.Join(home, "exports")

	out := mustRun(t, "segment", path, "--k", "3", "--export-dir", exportDir)
	if !strings.Contains(out, "Champions") {
		t.Fatalf("expected segment names in output:\n%s", out)
	}
	for _, prefix := range []string{"customer_segments_", "cluster_profile_"} {
		if m, _ := filepath.Glob(filepath.Join(exportDir, prefix+"*.csv")); len(m) != 1 {
			t.Fatalf("expected one %s export, got %v", prefix, m)
		}
	}
}

func TestCLI_SegmentWithoutFeatures(t *testing.T) {
	home := isolate(t)
	path := writeFile(t, filepath.Join(home, "people.csv"), "name,city\nann,paris\nbob,lyon\n")
	out := mustRun(t, "segment", path)
	if !strings.Contains(out, "⚠ Segmentation unavailable") {
		t.Fatalf("expected unavailable notice:\n%s", out)
	}
}

func TestCLI_ConfigSetShow(t *testing.T) {
	home := isolate(t)
	mustRun(t, "config", "set", "clusters", "5")
	mustRun(t, "config", "set", "schema.label_columns", "Class, Fraud_Flag")
	if _, err := os.Stat(filepath.Join(home, ".edadash", "config.yaml")); err != nil {
		t.Fatalf("config not saved: %v", err)
	}
	out := mustRun(t, "config", "show")
	if !strings.Contains(out, "clusters: 5") {
		t.Fatalf("expected clusters: 5 in\n%s", out)
	}
	if !strings.Contains(out, "schema.label_columns: Class,Fraud_Flag") {
		t.Fatalf("expected updated label columns in\n%s", out)
	}
	if _, err := runCmd(t, "config", "set", "bogus", "1"); err == nil {
		t.Fatalf("expected unknown key error")
	}
	if _, err := runCmd(t, "config", "set", "k_min", "1"); err == nil {
		t.Fatalf("expected k_min validation error")
	}
}

func TestCheckInputs(t *testing.T) {
	home := isolate(t)
	writeFile(t, filepath.Join(home, "creditcard.csv"), transactions)
	c, err := config()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	c.DataDir = home
	var buf bytes.Buffer
	checkInputs(&buf, c)
	got := buf.String()
	if !strings.Contains(got, "✓ Transactions: "+filepath.Join(home, "creditcard.csv")) {
		t.Fatalf("missing transactions check:\n%s", got)
	}
	if !strings.Contains(got, "⚠ Customers: ") {
		t.Fatalf("missing customers warning:\n%s", got)
	}
	cfg = nil
}
