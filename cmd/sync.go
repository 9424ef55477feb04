package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"appserver/core/bootstrap"
	"appserver/core/deploy"
	"appserver/core/storage"
	"appserver/feature/packages"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var syncPrune bool

var syncCmd = &cobra.Command{
	Use:   "sync [base=<path>]",
	Short: "Download packages from object storage",
	Long: `Copies the *.war objects below STORAGE_PREFIX in STORAGE_BUCKET into
<base>/webapps. A running server deploys them on its next scan.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logg, err := setup()
		if err != nil {
			return err
		}
		defer logg.Sync()

		srv, rest, err := bootstrap.ParseArgs(cfg.Server, args)
		if err != nil {
			return err
		}
		for _, arg := range rest {
			logg.Warn("Ignoring unknown parameter", zap.String("arg", arg))
		}

		client, err := storage.NewClient(cfg.Storage)
		if err != nil {
			return err
		}
		dir := deploy.NewWatcherConfig(srv.Base, cfg.Deploy).MonitoredDir

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		report, err := packages.NewService(client, cfg.Storage, dir, logg).Sync(ctx, syncPrune)
		if report != nil {
			logg.Info("Sync finished",
				zap.String("dir", dir),
				zap.Strings("downloaded", report.Downloaded),
				zap.Int("up_to_date", len(report.UpToDate)),
				zap.Strings("removed", report.Removed),
				zap.Strings("failed", report.Failed))
		}
		return err
	},
}

func init() {
	syncCmd.Flags().BoolVar(&syncPrune, "prune", false, "remove local archives that are not in the bucket")
	RootCmd.AddCommand(syncCmd)
}
