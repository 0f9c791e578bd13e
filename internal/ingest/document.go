package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
)

// Section is a contiguous block of document text under one heading.
type Section struct {
	Label string
	Text  string
}

// ExtractSections splits markdown content on second-level heading
// markers. Text before the first marker belongs to an implicit
// "Introduction" section. Source order is preserved; sections whose
// text is empty after trimming are omitted.
func ExtractSections(content string) []Section {
	var sections []Section
	label := "Introduction"
	var lines []string

	flush := func() {
		if len(lines) == 0 {
			return
		}
		text := strings.TrimSpace(strings.Join(lines, "\n"))
		if text != "" {
			sections = append(sections, Section{Label: label, Text: text})
		}
		lines = nil
	}

	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(line, "##") {
			flush()
			label = strings.TrimSpace(strings.TrimLeft(line, "#"))
			continue
		}
		lines = append(lines, line)
	}
	flush()

	return sections
}

// Metadata identifies a source document for indexing.
type Metadata struct {
	// DocumentID is the filename without its extension.
	DocumentID string
	// Title comes from the first top-level heading, falling back to
	// DocumentID when the document has none.
	Title string
	// Category is the first directory component of the document's
	// path relative to the content root, or "general" for documents
	// at the root itself.
	Category string
}

// ExtractMetadata derives document identity from content and the
// document's path relative to the content root.
func ExtractMetadata(content, relPath string) Metadata {
	base := filepath.Base(relPath)
	id := strings.TrimSuffix(base, filepath.Ext(base))

	category := "general"
	if dir := filepath.Dir(relPath); dir != "." && dir != "/" {
		parts := strings.Split(filepath.ToSlash(dir), "/")
		if parts[0] != "" && parts[0] != "." {
			category = parts[0]
		}
	}

	title := id
	for _, line := range strings.Split(content, "\n") {
		if after, ok := strings.CutPrefix(line, "# "); ok {
			title = strings.TrimSpace(after)
			break
		}
	}

	return Metadata{DocumentID: id, Title: title, Category: category}
}

// ChunkID returns the deterministic identifier for one chunk of a
// document section. Re-running ingestion over unchanged input yields
// identical identifiers, which makes ingestion idempotent under upsert
// semantics.
func ChunkID(documentID, section string, ordinal int) string {
	sum := sha256.Sum256(fmt.Appendf(nil, "%s-%s-%d", documentID, section, ordinal))
	return hex.EncodeToString(sum[:16])
}
