// Package cmd contains the docsage CLI commands.
package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/docsage/docsage/internal/log"
)

var rootCmd = &cobra.Command{
	Use:   "docsage",
	Short: "Docsage - grounded Q&A over your Drive documents",
	Long: `Docsage keeps a vector index of a Google Drive corpus in sync via
change notifications and answers questions grounded in the indexed
content, with source attribution.

Run "docsage serve" to start the HTTP API.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// newLogger builds the process logger. DEBUG enables debug level.
func newLogger() log.Logger {
	cfg := log.Config{Level: slog.LevelInfo, JSON: true}
	if os.Getenv("DEBUG") != "" {
		cfg.Level = slog.LevelDebug
	}
	return log.New(cfg)
}
