// cmd/warden/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/keshon/warden/internal/config"
	"github.com/keshon/warden/internal/logging"
	"github.com/keshon/warden/internal/version"
)

var rootCmd = &cobra.Command{
	Use:          "warden",
	Short:        "Discord prefix-command bot with per-command permissions",
	Version:      version.String(),
	SilenceUsage: true,
	Args:         cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		envFile, _ := cmd.Flags().GetString("env-file")
		cfg, err := config.Load(envFile)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("log-level") {
			cfg.LogLevel, _ = cmd.Flags().GetString("log-level")
		}
		if err := cfg.RequireToken(); err != nil {
			return err
		}

		log := logging.New(cfg.LogLevel, cfg.LogPretty)
		log.Info().Str("version", version.String()).Msg("starting bot")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := run(ctx, cfg, log); err != nil {
			log.Error().Err(err).Msg("bot stopped with error")
			return err
		}
		log.Info().Msg("bot exited cleanly")
		return nil
	},
}

func init() {
	rootCmd.Flags().String("env-file", ".env", "Environment file loaded before reading settings")
	rootCmd.Flags().String("log-level", "info", "Log level (debug, info, warn, error)")
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
