package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/lectern/lectern/internal/app"
	"github.com/lectern/lectern/internal/config"
	"github.com/lectern/lectern/internal/ingest"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Index the markdown corpus into the vector store",
	Long: `Ingest walks the content directory, chunks every markdown document
by section, embeds the chunks, and upserts them into the index.

Re-running ingest is safe: chunk ids are stable, so unchanged content
overwrites itself in place.`,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().String("content-dir", "", "corpus root, overrides config")
	ingestCmd.Flags().Int("batch-size", 0, "chunks per embedding call (0 = default)")
	ingestCmd.Flags().Bool("dry-run", false, "walk and chunk without embedding or writing")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if dir, _ := cmd.Flags().GetString("content-dir"); dir != "" {
		cfg.ContentDir = dir
	}
	batchSize, _ := cmd.Flags().GetInt("batch-size")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := slog.Default()

	// Concurrent ingests would race on chunk upserts, so only one runs
	// per host at a time.
	lockPath := filepath.Join(os.TempDir(), "lectern-ingest.lock")
	lock := flock.New(lockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquiring ingest lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another ingest is already running (lock held at %s)", lockPath)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("releasing ingest lock", "error", err)
		}
	}()

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	ing := ingest.NewIngester(a.Embedder, a.Index, ingest.Options{
		ChunkSize: cfg.ChunkSize,
		Overlap:   cfg.ChunkOverlap,
		BatchSize: batchSize,
		DryRun:    dryRun,
	}, logger)

	result, err := ing.Run(ctx, cfg.ContentDir)
	if err != nil {
		return fmt.Errorf("ingesting corpus: %w", err)
	}

	fmt.Printf("Ingested %d files (%d chunks) in %s\n",
		result.Files, result.Chunks, result.Duration.Round(time.Millisecond))
	if result.FilesSkipped > 0 {
		fmt.Printf("Skipped %d files\n", result.FilesSkipped)
	}
	if result.FilesFailed > 0 {
		fmt.Printf("Failed %d files (see log for details)\n", result.FilesFailed)
	}
	if dryRun {
		fmt.Println("Dry run: nothing was embedded or written")
	}

	if result.FilesFailed > 0 && result.Files == 0 {
		return fmt.Errorf("all %d files failed to ingest", result.FilesFailed)
	}
	return nil
}
