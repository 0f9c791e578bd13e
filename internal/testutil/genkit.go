package testutil

import (
	"context"
	"hash/fnv"
	"math"
	"sync"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// StubModel is a deterministic generation model. It answers every
// request with a fixed response and records the requests it saw, so
// tests can assert on prompt assembly or on the model never having
// been called at all.
//
// Safe for concurrent use.
type StubModel struct {
	mu       sync.Mutex
	response string
	err      error
	tokens   int
	requests []*ai.ModelRequest
}

// NewStubModel returns a model that always answers with response.
func NewStubModel(response string) *StubModel {
	return &StubModel{response: response, tokens: 42}
}

// FailWith makes every subsequent generation call return err.
func (m *StubModel) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Requests returns a copy of all recorded generation requests.
func (m *StubModel) Requests() []*ai.ModelRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]*ai.ModelRequest, len(m.requests))
	copy(cp, m.requests)
	return cp
}

// CallCount reports how many generation calls the model received.
func (m *StubModel) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Register installs the stub under the name "stub/answer-model" and
// returns its reference.
func (m *StubModel) Register(g *genkit.Genkit) ai.Model {
	return genkit.DefineModel(g, "stub/answer-model", &ai.ModelOptions{
		Label: "Stub Answer Model",
		Supports: &ai.ModelSupports{
			Multiturn:  true,
			SystemRole: true,
		},
	}, m.generate)
}

func (m *StubModel) generate(_ context.Context, req *ai.ModelRequest, _ ai.ModelStreamCallback) (*ai.ModelResponse, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	err := m.err
	response := m.response
	tokens := m.tokens
	m.mu.Unlock()

	if err != nil {
		return nil, err
	}

	return &ai.ModelResponse{
		Request: req,
		Message: &ai.Message{
			Role:    ai.RoleModel,
			Content: []*ai.Part{ai.NewTextPart(response)},
		},
		Usage: &ai.GenerationUsage{TotalTokens: tokens},
	}, nil
}

// StubEmbedder is a deterministic embedding model. Texts map to
// reproducible unit vectors; explicit vectors can be pinned per text
// for precise cosine similarity control in tests.
//
// Safe for concurrent use.
type StubEmbedder struct {
	mu      sync.Mutex
	dim     int
	err     error
	vectors map[string][]float32
	calls   int
}

// NewStubEmbedder returns an embedder producing vectors of dim
// components.
func NewStubEmbedder(dim int) *StubEmbedder {
	return &StubEmbedder{dim: dim, vectors: make(map[string][]float32)}
}

// SetVector pins the vector returned for an exact text.
func (e *StubEmbedder) SetVector(text string, vec []float32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vectors[text] = vec
}

// FailWith makes every subsequent embedding call return err.
func (e *StubEmbedder) FailWith(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.err = err
}

// CallCount reports how many embedding calls the stub received.
func (e *StubEmbedder) CallCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// Register installs the stub under the name "stub/embedder" and
// returns its reference.
func (e *StubEmbedder) Register(g *genkit.Genkit) ai.Embedder {
	return genkit.DefineEmbedder(g, "stub/embedder", &ai.EmbedderOptions{
		Label:      "Stub Embedder",
		Dimensions: e.dim,
	}, e.embed)
}

func (e *StubEmbedder) embed(_ context.Context, req *ai.EmbedRequest) (*ai.EmbedResponse, error) {
	e.mu.Lock()
	e.calls++
	err := e.err
	e.mu.Unlock()

	if err != nil {
		return nil, err
	}

	embeddings := make([]*ai.Embedding, len(req.Input))
	for i, doc := range req.Input {
		embeddings[i] = &ai.Embedding{Embedding: e.vectorFor(documentText(doc))}
	}
	return &ai.EmbedResponse{Embeddings: embeddings}, nil
}

func (e *StubEmbedder) vectorFor(text string) []float32 {
	e.mu.Lock()
	vec, ok := e.vectors[text]
	e.mu.Unlock()
	if ok {
		return vec
	}
	return hashVector(text, e.dim)
}

func documentText(doc *ai.Document) string {
	var text string
	for _, p := range doc.Content {
		if p.Kind == ai.PartText {
			text += p.Text
		}
	}
	return text
}

// hashVector derives a unit vector from text. Identical text always
// produces the identical vector.
func hashVector(text string, dim int) []float32 {
	h := fnv.New64a()
	vec := make([]float32, dim)
	var norm float64
	for i := range vec {
		h.Write([]byte(text))
		v := float64(h.Sum64()%2001)/1000 - 1
		vec[i] = float32(v)
		norm += v * v
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
	}
	return vec
}
