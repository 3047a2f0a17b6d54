package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"condo/internal/platform/config"
	"condo/internal/platform/logger"
)

const (
	programName = "condo"

	tokenIssuer   = "condo"
	tokenAudience = "condo-api"
)

var globalFlags = struct {
	debug   bool
	envFile string
}{}

type configKey struct{}

func configFrom(ctx context.Context) config.Config {
	cfg, _ := ctx.Value(configKey{}).(config.Config)
	return cfg
}

func commonRun(cfg config.Config) *slog.Logger {
	log := logger.New(globalFlags.debug || cfg.Server.Debug)
	slog.SetDefault(log)
	return log
}

func main() {
	rootCmd := &cobra.Command{
		Use:           programName,
		Short:         "Condominium governance service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&globalFlags.debug, "debug", "D", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&globalFlags.envFile, "env-file", ".env", "optional dotenv file")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(globalFlags.envFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cmd.SetContext(context.WithValue(cmd.Context(), configKey{}, cfg))
		return nil
	}

	rootCmd.AddCommand(serveCommand())
	rootCmd.AddCommand(migrateCommand())
	rootCmd.AddCommand(deployCommand())
	rootCmd.AddCommand(tokenCommand())
	rootCmd.AddCommand(eventsCommand())

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
