// Package artifact caches derived renditions of documents, keyed by
// (document id, variant). A variant names the derivation, e.g. the target
// language of a translation.
//
// Rows carry an expiry: an expired row is a cache miss, and expired rows are
// reclaimed lazily on the next write. Concurrent computation of the same
// missing key is tolerated; the last Put wins.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when no live row exists for the requested key.
// A miss is normal control flow, not a failure.
var ErrNotFound = errors.New("artifact not found")

// Store persists derived artifacts in the translations table.
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

// Get returns the cached content for (documentID, variant), or ErrNotFound
// when the key is absent or its row has expired.
func (s *Store) Get(ctx context.Context, documentID, variant string) (string, error) {
	if err := validateKey(documentID, variant); err != nil {
		return "", err
	}

	var content string
	err := s.pool.QueryRow(ctx, `
		SELECT content FROM translations
		WHERE document_id = $1 AND variant = $2 AND expires_at > now()`,
		documentID, variant,
	).Scan(&content)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("getting artifact %s/%s: %w", documentID, variant, err)
	}
	return content, nil
}

// Put stores content under (documentID, variant) with the given TTL,
// replacing any existing row for the key. Expired rows across the whole
// table are deleted first; reclaim failures are logged, never fatal.
func (s *Store) Put(ctx context.Context, documentID, variant, content string, ttl time.Duration) error {
	if err := validateKey(documentID, variant); err != nil {
		return err
	}
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive, got %s", ttl)
	}

	if tag, err := s.pool.Exec(ctx, `DELETE FROM translations WHERE expires_at <= now()`); err != nil {
		s.logger.Warn("reclaiming expired artifacts", "error", err)
	} else if tag.RowsAffected() > 0 {
		s.logger.Debug("reclaimed expired artifacts", "count", tag.RowsAffected())
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO translations (document_id, variant, content, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (document_id, variant) DO UPDATE SET
			content    = EXCLUDED.content,
			created_at = now(),
			expires_at = EXCLUDED.expires_at`,
		documentID, variant, content, time.Now().Add(ttl),
	)
	if err != nil {
		return fmt.Errorf("putting artifact %s/%s: %w", documentID, variant, err)
	}

	s.logger.Debug("cached artifact",
		"document_id", documentID,
		"variant", variant,
		"ttl", ttl)
	return nil
}

func validateKey(documentID, variant string) error {
	if documentID == "" {
		return errors.New("document id is empty")
	}
	if variant == "" {
		return errors.New("variant is empty")
	}
	return nil
}
