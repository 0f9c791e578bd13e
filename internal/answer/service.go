package answer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/lectern/lectern/internal/fallback"
	"github.com/lectern/lectern/internal/index"
)

// quoteLength bounds citation quotes.
const quoteLength = 200

// Embedder converts a query into its vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Searcher serves nearest-neighbor search over indexed chunks.
type Searcher interface {
	Search(ctx context.Context, vector []float32, opts index.SearchOptions) ([]index.Hit, error)
}

// FallbackRetriever scans the raw corpus when the primary path yields
// nothing.
type FallbackRetriever interface {
	Search(ctx context.Context, query string) ([]fallback.Hit, error)
}

// SynthesisRequest carries everything the generation model needs to
// produce a grounded answer.
type SynthesisRequest struct {
	Question     string
	SelectedText string
	Evidence     []Evidence
}

// SynthesisResult is the generation model's answer.
type SynthesisResult struct {
	Text   string
	Tokens int
}

// Synthesizer produces the final answer text from query and evidence.
type Synthesizer interface {
	Synthesize(ctx context.Context, req SynthesisRequest) (*SynthesisResult, error)
}

// Options tunes primary retrieval.
type Options struct {
	// TopK bounds how many chunks primary search returns.
	TopK int
	// ScoreThreshold drops chunks scoring below it.
	ScoreThreshold float64
}

// Service runs the pipeline. Stateless per call; safe for concurrent
// use.
type Service struct {
	embedder Embedder
	idx      Searcher
	fallback FallbackRetriever
	synth    Synthesizer
	opts     Options
	logger   *slog.Logger
}

// NewService wires a Service from its collaborators.
func NewService(embedder Embedder, idx Searcher, fb FallbackRetriever, synth Synthesizer, opts Options, logger *slog.Logger) (*Service, error) {
	if embedder == nil {
		return nil, errors.New("embedder is nil")
	}
	if idx == nil {
		return nil, errors.New("index searcher is nil")
	}
	if fb == nil {
		return nil, errors.New("fallback retriever is nil")
	}
	if synth == nil {
		return nil, errors.New("synthesizer is nil")
	}
	if opts.TopK <= 0 {
		return nil, fmt.Errorf("top_k must be positive, got %d", opts.TopK)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		embedder: embedder,
		idx:      idx,
		fallback: fb,
		synth:    synth,
		opts:     opts,
		logger:   logger,
	}, nil
}

// Answer resolves one question end to end: retrieve evidence, compute
// confidence, synthesize a grounded answer with citations. When no
// evidence exists on either path it returns the fixed not-found result
// without touching the generation model. A synthesis failure wraps
// ErrSynthesis.
func (s *Service) Answer(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	evidence, path := s.retrieve(ctx, req)
	if len(evidence) == 0 {
		s.logger.Info("no relevant evidence found", "question_length", len(req.Question))
		return &Result{
			Answer:     NotFoundAnswer,
			Citations:  []Citation{},
			Confidence: 0,
			Path:       PathNone,
			Elapsed:    time.Since(start),
		}, nil
	}

	confidence := meanScore(evidence)
	citations := buildCitations(evidence)

	synthesized, err := s.synth.Synthesize(ctx, SynthesisRequest{
		Question:     req.Question,
		SelectedText: req.SelectedText,
		Evidence:     evidence,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSynthesis, err)
	}

	result := &Result{
		Answer:     synthesized.Text,
		Citations:  citations,
		Confidence: confidence,
		Path:       path,
		TokensUsed: synthesized.Tokens,
		Elapsed:    time.Since(start),
	}
	s.logger.Info("answered question",
		"path", path,
		"evidence", len(evidence),
		"confidence", confidence,
		"tokens", result.TokensUsed,
		"elapsed", result.Elapsed)
	return result, nil
}

// retrieve runs the primary path and falls back on embedding failure,
// index unavailability, or an empty primary result.
func (s *Service) retrieve(ctx context.Context, req Request) ([]Evidence, RetrievalPath) {
	vector, err := s.embedder.Embed(ctx, req.Question)
	if err != nil {
		s.logger.Warn("query embedding failed, using fallback retrieval", "error", err)
		return s.fallbackEvidence(ctx, req.Question)
	}

	hits, err := s.idx.Search(ctx, vector, index.SearchOptions{
		TopK:           s.opts.TopK,
		ScoreThreshold: s.opts.ScoreThreshold,
		DocumentID:     req.DocumentID,
	})
	switch {
	case errors.Is(err, index.ErrUnavailable):
		s.logger.Warn("primary index unavailable, using fallback retrieval", "error", err)
		return s.fallbackEvidence(ctx, req.Question)
	case err != nil:
		s.logger.Warn("primary search failed, using fallback retrieval", "error", err)
		return s.fallbackEvidence(ctx, req.Question)
	case len(hits) == 0:
		s.logger.Debug("nothing above threshold in primary index, using fallback retrieval")
		return s.fallbackEvidence(ctx, req.Question)
	}

	evidence := make([]Evidence, len(hits))
	for i, h := range hits {
		evidence[i] = Evidence{
			DocumentID: h.DocumentID,
			Title:      h.Title,
			Section:    h.Section,
			Content:    h.Content,
			Score:      h.Score,
		}
	}
	return evidence, PathPrimary
}

// fallbackEvidence scans the raw corpus. A scan failure is logged and
// treated as no evidence; the not-found path still answers the caller.
func (s *Service) fallbackEvidence(ctx context.Context, query string) ([]Evidence, RetrievalPath) {
	hits, err := s.fallback.Search(ctx, query)
	if err != nil {
		s.logger.Error("fallback retrieval failed", "error", err)
		return nil, PathNone
	}
	if len(hits) == 0 {
		return nil, PathNone
	}

	evidence := make([]Evidence, len(hits))
	for i, h := range hits {
		evidence[i] = Evidence{
			DocumentID: h.DocumentID,
			Title:      h.Title,
			Section:    h.Section,
			Content:    h.Excerpt,
			Score:      h.Score,
		}
	}
	return evidence, PathFallback
}

// meanScore is the arithmetic mean of evidence scores rounded to two
// decimals.
func meanScore(evidence []Evidence) float64 {
	var sum float64
	for _, e := range evidence {
		sum += e.Score
	}
	return math.Round(sum/float64(len(evidence))*100) / 100
}

func buildCitations(evidence []Evidence) []Citation {
	citations := make([]Citation, len(evidence))
	for i, e := range evidence {
		quote := e.Content
		if len(quote) > quoteLength {
			quote = quote[:quoteLength] + "..."
		}
		citations[i] = Citation{
			DocumentID: e.DocumentID,
			Section:    e.Section,
			Quote:      quote,
		}
	}
	return citations
}
