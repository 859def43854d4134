package cmd

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	cfgpkg "github.com/KaramelBytes/edadash/internal/config"
	"github.com/KaramelBytes/edadash/internal/dataset"
	"github.com/KaramelBytes/edadash/internal/session"
	"github.com/KaramelBytes/edadash/internal/utils"
	"github.com/KaramelBytes/edadash/internal/web"
	"github.com/spf13/cobra"
)

var (
	srvHost    string
	srvPort    int
	srvOrigins []string
	srvQuiet   bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local web dashboard",
	Long: `Check that the transaction and customer datasets can be found, then serve the dashboard
(status, fraud analysis, customer segmentation, overviews, charts and exports) until interrupted.
Missing datasets are reported but do not prevent the server from starting.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := config()
		if err != nil {
			return err
		}
		fl := cmd.Flags()
		if fl.Changed("host") {
			c.ServerHost = srvHost
		}
		if fl.Changed("port") {
			c.ServerPort = srvPort
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "edadash dashboard")
		checkInputs(out, c)

		store := session.NewStore(sessionSettings(c), sessionTTL(c))
		srv, err := web.NewServer(web.Config{
			Host:           c.ServerHost,
			Port:           c.ServerPort,
			DisplaySample:  c.DisplaySample,
			Seed:           c.Seed,
			Marketing:      marketingOptions(c),
			AllowedOrigins: srvOrigins,
			Quiet:          srvQuiet,
		}, store)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		fmt.Fprintf(out, "✓ Dashboard running at http://%s (press Ctrl+C to stop)\n", web.Config{Host: c.ServerHost, Port: c.ServerPort}.Addr())
		if err := srv.Run(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, "✓ Dashboard stopped")
		return nil
	},
}

// checkInputs prints one ✓/⚠ line per dataset the dashboard will look for.
func checkInputs(w io.Writer, c *cfgpkg.Global) {
	dir := utils.ExpandHome(c.DataDir)
	for _, in := range []struct {
		label    string
		patterns []string
	}{
		{"Transactions", c.FraudPatterns},
		{"Customers", c.MarketingPatterns},
	} {
		path, err := dataset.Resolve(dir, in.patterns)
		if err != nil {
			fmt.Fprintf(w, "⚠ %s: %v\n", in.label, err)
			continue
		}
		fmt.Fprintf(w, "✓ %s: %s\n", in.label, path)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&srvHost, "host", "127.0.0.1", "interface to bind (overrides config server_host)")
	serveCmd.Flags().IntVar(&srvPort, "port", 8050, "port to bind (overrides config server_port)")
	serveCmd.Flags().StringSliceVar(&srvOrigins, "cors-origin", nil, "allowed origins for /api (default any)")
	serveCmd.Flags().BoolVar(&srvQuiet, "quiet", false, "disable the request log")
}
