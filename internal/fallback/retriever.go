// Package fallback implements degraded-mode retrieval. When the vector
// index is unreachable or holds nothing relevant, raw course documents
// are scanned directly and scored by keyword overlap, trading ranking
// quality for availability.
package fallback

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/lectern/lectern/internal/ingest"
)

const (
	// excerptLength bounds how much of a matching document is
	// surfaced as evidence.
	excerptLength = 2000
	// maxResults caps how many documents a scan returns.
	maxResults = 3
)

// Hit is one document matched during a fallback scan. Score is the
// fraction of distinct query keywords the document contains.
type Hit struct {
	DocumentID string
	Title      string
	Section    string
	Excerpt    string
	Score      float64
}

// Retriever scans a markdown content directory on demand.
type Retriever struct {
	contentDir string
	logger     *slog.Logger
}

// NewRetriever returns a Retriever over contentDir.
func NewRetriever(contentDir string, logger *slog.Logger) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{contentDir: contentDir, logger: logger}
}

// Search scores every markdown document under the content root by the
// fraction of distinct query keywords it contains, case-insensitively,
// and returns the top matches. Documents that cannot be read are
// skipped and logged, never fatal; only a failure to walk the content
// root itself is an error.
func (r *Retriever) Search(ctx context.Context, query string) ([]Hit, error) {
	keywords := distinctKeywords(query)
	if len(keywords) == 0 {
		return nil, nil
	}

	var hits []Hit
	err := filepath.WalkDir(r.contentDir, func(path string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			if path == r.contentDir {
				return err
			}
			r.logger.Warn("failed to visit path during fallback scan", "path", path, "error", err)
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
			return nil
		}
		// intro.md is the site landing page, not lesson content.
		if d.Name() == "intro.md" {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			r.logger.Warn("failed to read document during fallback scan", "path", path, "error", err)
			return nil
		}

		contentLower := strings.ToLower(string(content))
		matched := 0
		for _, kw := range keywords {
			if strings.Contains(contentLower, kw) {
				matched++
			}
		}
		if matched == 0 {
			return nil
		}

		relPath, err := filepath.Rel(r.contentDir, path)
		if err != nil {
			relPath = d.Name()
		}
		meta := ingest.ExtractMetadata(string(content), relPath)

		excerpt := string(content)
		if len(excerpt) > excerptLength {
			excerpt = excerpt[:excerptLength]
		}

		hits = append(hits, Hit{
			DocumentID: meta.DocumentID,
			Title:      meta.Title,
			Section:    meta.Category,
			Excerpt:    excerpt,
			Score:      float64(matched) / float64(len(keywords)),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan content directory: %w", err)
	}

	slices.SortStableFunc(hits, func(a, b Hit) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return 0
		}
	})
	if len(hits) > maxResults {
		hits = hits[:maxResults]
	}

	r.logger.Info("fallback scan complete", "query_keywords", len(keywords), "hits", len(hits))
	return hits, nil
}

// distinctKeywords lowercases the query and splits it into unique
// whitespace-separated terms, preserving first-seen order.
func distinctKeywords(query string) []string {
	seen := make(map[string]struct{})
	var keywords []string
	for _, f := range strings.Fields(strings.ToLower(query)) {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		keywords = append(keywords, f)
	}
	return keywords
}
