// Package cmd provides the lectern command line interface.
//
// Commands:
//   - serve: HTTP API server
//   - ingest: index the markdown corpus into the vector store
//   - version: build information
//
// Signal handling and graceful shutdown are implemented for all
// commands via context cancellation.
package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/lectern/lectern/internal/log"
)

// Version information (injected at build time via ldflags)
var (
	Version   = "development"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "lectern",
	Short: "Question answering service for course content",
	Long: `Lectern answers student questions about a markdown course corpus.

It retrieves relevant chunks from a pgvector index, falls back to a
keyword scan of the raw corpus when the index is unavailable, and
synthesizes grounded, cited answers with a configurable model provider.

Run "lectern ingest" to index the corpus, then "lectern serve" to start
the HTTP API.`,
}

// Execute runs the root command. Called once from main.
func Execute() error {
	slog.SetDefault(log.New(log.Config{
		Level: logLevel(),
		JSON:  os.Getenv("LECTERN_LOG_JSON") != "",
	}))

	return rootCmd.Execute()
}

func logLevel() slog.Level {
	if os.Getenv("LECTERN_DEBUG") != "" {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}
