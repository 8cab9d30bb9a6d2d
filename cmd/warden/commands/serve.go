package commands

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"warden/internal/app"
)

func serveCmd() *cobra.Command {
	cfg := app.Config{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the websocket integrity server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.Passphrase = passphrase
			cfg.LogLevel, cfg.LogDev = logLevel, logDev

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return app.Run(ctx, cfg, logger)
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfg.Addr, "addr", ":8085", "listen address")
	f.StringVar(&cfg.Manifest, "manifest", "modules.json", "module manifest (.json or .json.sealed)")
	f.StringVar(&cfg.Sessions, "sessions", "sessions.json", "session secret table")
	f.StringVar(&cfg.Policy, "policy", "kick", "penalty policy: log, kick or ban")
	f.DurationVar(&cfg.RequestTimeout, "request-timeout", 600*time.Second, "time a check request may stay unanswered")
	f.DurationVar(&cfg.CheckInterval, "check-interval", 30*time.Second, "delay between verified checks")
	f.DurationVar(&cfg.CheckJitter, "check-jitter", 0, "random extra delay added to each interval")
	f.DurationVar(&cfg.HandshakeTimeout, "handshake-timeout", 0, "deadline for the seed challenge (0 disables)")
	f.BoolVar(&cfg.EagerChallenge, "eager-challenge", false, "send the seed challenge with the module announcement")
	f.DurationVar(&cfg.TickInterval, "tick", time.Second, "engine tick interval")
	f.Float64Var(&cfg.AdmissionRate, "admission-rate", 1, "connection attempts per second per IP (0 disables)")
	f.IntVar(&cfg.AdmissionBurst, "admission-burst", 3, "connection attempt burst per IP")
	f.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", 5*time.Second, "graceful shutdown bound")
	return cmd
}
