// Package cmd implements the almanac command-line interface.
package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/eddowding/mothersalmanac-sub002/internal/app"
	"github.com/eddowding/mothersalmanac-sub002/internal/config"
	"github.com/eddowding/mothersalmanac-sub002/internal/log"
)

var (
	logLevel string
	jsonLogs bool
)

var rootCmd = &cobra.Command{
	Use:   "almanac",
	Short: "almanac - AI-generated parenting wiki",
	Long: `almanac turns questions into durable, cited wiki articles.

Queries are answered with retrieval-augmented generation over the uploaded
document corpus; generated pages are cached, scored for confidence, and
linked into a growing topic graph.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "emit logs as JSON")
}

// setupApp loads configuration and wires the application.
// The caller must Close() the returned App.
func setupApp(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}

	logger := log.New(log.Config{Level: parseLogLevel(logLevel), JSON: jsonLogs})

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("initializing application: %w", err)
	}
	return a, nil
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
