package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"appserver/core/bootstrap"
	"appserver/core/loader"
	"appserver/core/webapp"
	"appserver/feature/webtest"

	"github.com/spf13/cobra"
)

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start [port=<n>] [base=<path>]",
	Short: "Start the application server",
	Long: `Binds 127.0.0.1:<port>, deploys every package in <base>/webapps using
<base>/webdefault.xml as the defaults descriptor and keeps watching for
changes until interrupted.`,
	FParseErrWhitelist: cobra.FParseErrWhitelist{UnknownFlags: true},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logg, err := setup()
		if err != nil {
			return err
		}
		defer logg.Sync()

		servlets := webapp.NewRegistry()
		features := loader.NewManager(logg)
		features.Register(webtest.NewFeature(true, logg))
		if err := features.LoadAll(servlets); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return bootstrap.New(cfg.Server, cfg.Deploy, servlets, logg).Run(ctx, args)
	},
}

func init() {
	RootCmd.AddCommand(startCmd)
}
