// Package ingest turns a directory of markdown course content into
// embedded chunks in the vector index. Documents are split per section,
// windowed with overlap, embedded in batches, and upserted under
// deterministic identifiers so repeated runs converge instead of
// duplicating.
package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/lectern/lectern/internal/index"
)

// minSectionLength is the smallest section worth indexing. Shorter
// sections carry too little standalone meaning to retrieve.
const minSectionLength = 100

// DefaultBatchSize bounds how many chunks are embedded per provider
// call.
const DefaultBatchSize = 64

// Embedder converts batches of text into fixed-dimension vectors.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Upserter writes embedded chunks into the vector index.
type Upserter interface {
	Upsert(ctx context.Context, chunks []index.Chunk) error
}

// Options configures an Ingester.
type Options struct {
	// ChunkSize is the maximum chunk length in bytes.
	ChunkSize int
	// Overlap is how many bytes consecutive chunks share. Must be
	// smaller than ChunkSize.
	Overlap int
	// BatchSize bounds chunks per embedding call. Zero means
	// DefaultBatchSize.
	BatchSize int
	// DryRun walks and chunks the corpus without embedding or
	// writing anything.
	DryRun bool
}

// Result summarizes one ingestion run.
type Result struct {
	Files        int
	FilesSkipped int
	FilesFailed  int
	Chunks       int
	Duration     time.Duration
}

// Ingester walks a content directory and indexes every markdown
// document in it.
type Ingester struct {
	embedder Embedder
	idx      Upserter
	opts     Options
	logger   *slog.Logger
}

// NewIngester wires an Ingester from its collaborators.
func NewIngester(embedder Embedder, idx Upserter, opts Options, logger *slog.Logger) *Ingester {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingester{
		embedder: embedder,
		idx:      idx,
		opts:     opts,
		logger:   logger,
	}
}

// Run ingests every .md and .mdx file under contentDir. Failures in one
// file are counted and logged without aborting the rest of the corpus.
func (ing *Ingester) Run(ctx context.Context, contentDir string) (*Result, error) {
	start := time.Now()

	absDir, err := filepath.Abs(contentDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve content directory: %w", err)
	}
	if info, err := os.Stat(absDir); err != nil {
		return nil, fmt.Errorf("failed to stat content directory: %w", err)
	} else if !info.IsDir() {
		return nil, fmt.Errorf("content path is not a directory: %s", absDir)
	}

	result := &Result{}
	err = filepath.WalkDir(absDir, func(path string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			result.FilesFailed++
			return nil
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") || d.Name() == "node_modules" {
				return filepath.SkipDir
			}
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".md" && ext != ".mdx" {
			result.FilesSkipped++
			return nil
		}

		relPath, err := filepath.Rel(absDir, path)
		if err != nil {
			result.FilesFailed++
			return nil
		}

		n, err := ing.ingestFile(ctx, path, relPath)
		if err != nil {
			ing.logger.Warn("failed to ingest file", "path", relPath, "error", err)
			result.FilesFailed++
			return nil
		}

		result.Files++
		result.Chunks += n
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk content directory: %w", err)
	}

	result.Duration = time.Since(start)
	ing.logger.Info("ingestion complete",
		"files", result.Files,
		"skipped", result.FilesSkipped,
		"failed", result.FilesFailed,
		"chunks", result.Chunks,
		"duration", result.Duration,
		"dry_run", ing.opts.DryRun)
	return result, nil
}

// ingestFile chunks one document and writes its embedded chunks,
// returning how many chunks the document produced.
func (ing *Ingester) ingestFile(ctx context.Context, path, relPath string) (int, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read file: %w", err)
	}

	chunks := ChunkDocument(string(content), relPath, ing.opts.ChunkSize, ing.opts.Overlap)
	if len(chunks) == 0 {
		ing.logger.Debug("no indexable sections", "path", relPath)
		return 0, nil
	}

	ing.logger.Debug("chunked document",
		"path", relPath,
		"document_id", chunks[0].DocumentID,
		"chunks", len(chunks))

	if ing.opts.DryRun {
		return len(chunks), nil
	}

	for batch := range slices.Chunk(chunks, ing.opts.BatchSize) {
		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Content
		}

		vectors, err := ing.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return 0, fmt.Errorf("failed to embed chunks: %w", err)
		}
		if len(vectors) != len(batch) {
			return 0, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(batch))
		}
		for i := range batch {
			batch[i].Embedding = vectors[i]
		}

		if err := ing.idx.Upsert(ctx, batch); err != nil {
			return 0, fmt.Errorf("failed to upsert chunks: %w", err)
		}
	}

	return len(chunks), nil
}

// ChunkDocument splits one document into index-ready chunks. Sections
// shorter than minSectionLength are skipped. Embeddings are left empty
// for the caller to fill.
func ChunkDocument(content, relPath string, maxSize, overlap int) []index.Chunk {
	meta := ExtractMetadata(content, relPath)

	var chunks []index.Chunk
	for _, sec := range ExtractSections(content) {
		if len(sec.Text) < minSectionLength {
			continue
		}
		segments := Chunk(sec.Text, maxSize, overlap)
		for i, seg := range segments {
			chunks = append(chunks, index.Chunk{
				ID:         ChunkID(meta.DocumentID, sec.Label, i),
				DocumentID: meta.DocumentID,
				Section:    sec.Label,
				Content:    seg,
				Ordinal:    i,
				Total:      len(segments),
				Title:      meta.Title,
				Category:   meta.Category,
			})
		}
	}
	return chunks
}
