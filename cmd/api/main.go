package main

import (
	"context"
	"fmt"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"signapi/internal/config"
	"signapi/internal/logger"
	"signapi/internal/otel"
)

// @title Signing API
// @version 1.0
// @BasePath /
var rootCmd = &cobra.Command{
	Use:           "signapi",
	Short:         "Envelope signing service",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, workerCmd)
}

// common is the configuration, logger and tracer shared by every command.
type common struct {
	cfg *config.AppConfig
	log *zap.Logger
	// shutdown flushes traces and the logger.
	shutdown func()
}

func bootstrap(ctx context.Context) (*common, error) {
	cfg := config.Load()
	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	stopTracing, err := otel.Init(ctx, log)
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	return &common{
		cfg: cfg,
		log: log,
		shutdown: func() {
			if err := stopTracing(context.Background()); err != nil {
				log.Warn("tracer shutdown failed", zap.Error(err))
			}
			_ = log.Sync()
		},
	}, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
