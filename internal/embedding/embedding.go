// Package embedding adapts a genkit embedder to the narrow vector
// contract the retrieval pipeline depends on.
package embedding

import (
	"context"
	"errors"
	"fmt"

	"github.com/firebase/genkit/go/ai"
)

// ErrEmbedding marks a failure to convert text into vectors. Callers
// branch on it with errors.Is to distinguish provider trouble from
// their own bugs.
var ErrEmbedding = errors.New("embedding failure")

// Provider converts text into fixed-dimension vectors.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// GenkitProvider implements Provider on top of an ai.Embedder.
type GenkitProvider struct {
	embedder ai.Embedder
}

// NewGenkitProvider wraps embedder. The embedder must be non-nil;
// genkit lookups return nil for unknown models, so this catches
// misconfiguration at startup instead of first use.
func NewGenkitProvider(embedder ai.Embedder) (*GenkitProvider, error) {
	if embedder == nil {
		return nil, errors.New("embedder is nil")
	}
	return &GenkitProvider{embedder: embedder}, nil
}

// Embed converts a single text into its vector.
func (p *GenkitProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch converts texts into vectors in one provider call,
// preserving input order.
func (p *GenkitProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	docs := make([]*ai.Document, len(texts))
	for i, t := range texts {
		docs[i] = ai.DocumentFromText(t, nil)
	}

	resp, err := p.embedder.Embed(ctx, &ai.EmbedRequest{Input: docs})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbedding, err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: provider returned %d embeddings for %d inputs",
			ErrEmbedding, len(resp.Embeddings), len(texts))
	}

	vectors := make([][]float32, len(texts))
	for i, e := range resp.Embeddings {
		vectors[i] = e.Embedding
	}
	return vectors, nil
}
