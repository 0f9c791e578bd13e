// Package index persists chunk embeddings in PostgreSQL (pgvector) and
// serves nearest-neighbor search over them.
//
// The store distinguishes "no matches" (empty result, nil error) from "index
// unreachable" (ErrUnavailable): callers branch on errors.Is and must never
// treat an availability failure as an empty corpus.
package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// ErrUnavailable indicates the index could not be reached or the query could
// not be executed. It triggers degraded-mode retrieval upstream.
var ErrUnavailable = errors.New("vector index unavailable")

// ErrDimensionMismatch indicates the live chunks table was created with a
// different embedding dimension than configured. Requires a re-ingest, never
// an automatic re-create.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// Store provides vector storage and similarity search over chunks.
// Safe for concurrent use.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewStore creates a Store backed by the given pool.
func NewStore(pool *pgxpool.Pool, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, logger: logger}
}

// EnsureSchema creates the chunks table and its indexes if missing, using
// the given embedding dimension, then verifies that any pre-existing table
// matches that dimension. Idempotent.
func (s *Store) EnsureSchema(ctx context.Context, dimension int) error {
	if dimension < 1 {
		return fmt.Errorf("%w: dimension must be positive, got %d", ErrDimensionMismatch, dimension)
	}

	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS chunks (
			id          TEXT PRIMARY KEY,
			document_id TEXT NOT NULL,
			section     TEXT NOT NULL,
			content     TEXT NOT NULL,
			ordinal     INT NOT NULL,
			total       INT NOT NULL,
			title       TEXT NOT NULL DEFAULT '',
			category    TEXT NOT NULL DEFAULT '',
			embedding   vector(%d) NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, dimension),
		`CREATE INDEX IF NOT EXISTS idx_chunks_embedding ON chunks USING hnsw (embedding vector_cosine_ops)`,
		`CREATE INDEX IF NOT EXISTS idx_chunks_document ON chunks (document_id)`,
	}

	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensuring chunks schema: %w", err)
		}
	}

	// For pgvector columns atttypmod is the dimension itself.
	var typmod int
	err := s.pool.QueryRow(ctx,
		`SELECT atttypmod FROM pg_attribute
		 WHERE attrelid = 'chunks'::regclass AND attname = 'embedding'`,
	).Scan(&typmod)
	if err != nil {
		return fmt.Errorf("checking embedding dimension: %w", err)
	}
	if typmod != dimension {
		return fmt.Errorf("%w: chunks table has dimension %d, configuration wants %d",
			ErrDimensionMismatch, typmod, dimension)
	}

	s.logger.Debug("chunks schema ready", "dimension", dimension)
	return nil
}

// Upsert writes chunks in one transaction. Existing rows with the same id
// are replaced, so re-running ingestion on unchanged content is idempotent.
func (s *Store) Upsert(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			s.logger.Debug("upsert rollback", "error", err)
		}
	}()

	const stmt = `
		INSERT INTO chunks (id, document_id, section, content, ordinal, total, title, category, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			document_id = EXCLUDED.document_id,
			section     = EXCLUDED.section,
			content     = EXCLUDED.content,
			ordinal     = EXCLUDED.ordinal,
			total       = EXCLUDED.total,
			title       = EXCLUDED.title,
			category    = EXCLUDED.category,
			embedding   = EXCLUDED.embedding`

	for i, c := range chunks {
		if len(c.Embedding) == 0 {
			return fmt.Errorf("chunk %d (%s) has no embedding", i, c.ID)
		}
		_, err := tx.Exec(ctx, stmt,
			c.ID, c.DocumentID, c.Section, c.Content, c.Ordinal, c.Total,
			c.Title, c.Category, pgvector.NewVector(c.Embedding))
		if err != nil {
			return fmt.Errorf("failed to upsert chunk %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit upsert: %w", err)
	}

	s.logger.Debug("upserted chunks", "count", len(chunks))
	return nil
}

// Search returns at most opts.TopK chunks whose cosine similarity to the
// query vector is at least opts.ScoreThreshold, ordered by descending score.
// Any execution failure wraps ErrUnavailable so callers can fall back.
func (s *Store) Search(ctx context.Context, vector []float32, opts SearchOptions) ([]Hit, error) {
	if opts.TopK < 1 {
		return nil, fmt.Errorf("top_k must be positive, got %d", opts.TopK)
	}

	query := `
		SELECT id, document_id, section, content, ordinal, total, title, category,
		       1 - (embedding <=> $1) AS score
		FROM chunks
		WHERE 1 - (embedding <=> $1) >= $2`
	args := []any{pgvector.NewVector(vector), opts.ScoreThreshold}

	if opts.DocumentID != "" {
		query += ` AND document_id = $3`
		args = append(args, opts.DocumentID)
	}
	query += fmt.Sprintf(` ORDER BY embedding <=> $1 LIMIT %d`, opts.TopK)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var h Hit
		if err := rows.Scan(&h.ID, &h.DocumentID, &h.Section, &h.Content,
			&h.Ordinal, &h.Total, &h.Title, &h.Category, &h.Score); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	return hits, nil
}

// Count reports the number of stored chunks. Used by readiness and health
// probes as a minimal no-side-effect call.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM chunks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return n, nil
}
