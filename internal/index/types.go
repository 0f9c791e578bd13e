package index

// Chunk is the persisted unit of evidence: a bounded segment of one
// document section plus its embedding and structural metadata.
type Chunk struct {
	// ID is a deterministic hash of (document id, section, ordinal), so
	// re-ingesting unchanged content overwrites rather than duplicates.
	ID         string
	DocumentID string
	Section    string
	Content    string

	// Ordinal is the chunk's position within its section; Total is the
	// section's chunk count.
	Ordinal int
	Total   int

	// Title and Category are document-level metadata carried through to
	// citations.
	Title    string
	Category string

	Embedding []float32
}

// Hit is a chunk returned by similarity search together with its cosine
// similarity score in [0,1].
type Hit struct {
	ID         string
	DocumentID string
	Section    string
	Content    string
	Ordinal    int
	Total      int
	Title      string
	Category   string
	Score      float64
}

// SearchOptions bounds a similarity search.
type SearchOptions struct {
	// TopK caps the number of hits returned.
	TopK int

	// ScoreThreshold excludes hits scoring below it; hits are filtered out,
	// not truncated and kept.
	ScoreThreshold float64

	// DocumentID, when set, restricts the search to one document before
	// ranking.
	DocumentID string
}
