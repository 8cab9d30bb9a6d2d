package commands

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"warden/internal/app"
)

var (
	passphrase string
	logLevel   string
	logDev     bool
	logger     *zap.Logger
)

func Execute() error {
	root := &cobra.Command{
		Use:          "warden",
		Short:        "Client integrity verification server and tools",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, err := app.NewLogger(logLevel, logDev)
			if err != nil {
				return err
			}
			logger = l
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVarP(&passphrase, "passphrase", "p", "", "passphrase for sealed manifests")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&logDev, "log-dev", false, "human readable console logs")

	root.AddCommand(serveCmd(), deriveCmd(), vectorCmd(), modulesCmd(), sealCmd(), probeCmd())
	return root.Execute()
}
