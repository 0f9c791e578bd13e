package answer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lectern/lectern/internal/fallback"
	"github.com/lectern/lectern/internal/index"
	"github.com/lectern/lectern/internal/log"
)

type stubEmbedder struct {
	vec   []float32
	err   error
	calls int
}

func (s *stubEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	s.calls++
	return s.vec, s.err
}

type stubSearcher struct {
	hits     []index.Hit
	err      error
	calls    int
	lastOpts index.SearchOptions
}

func (s *stubSearcher) Search(_ context.Context, _ []float32, opts index.SearchOptions) ([]index.Hit, error) {
	s.calls++
	s.lastOpts = opts
	return s.hits, s.err
}

type stubFallback struct {
	hits  []fallback.Hit
	err   error
	calls int
}

func (s *stubFallback) Search(_ context.Context, _ string) ([]fallback.Hit, error) {
	s.calls++
	return s.hits, s.err
}

type stubSynthesizer struct {
	result *SynthesisResult
	err    error
	calls  int
	last   SynthesisRequest
}

func (s *stubSynthesizer) Synthesize(_ context.Context, req SynthesisRequest) (*SynthesisResult, error) {
	s.calls++
	s.last = req
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

type pipeline struct {
	embedder *stubEmbedder
	searcher *stubSearcher
	fallback *stubFallback
	synth    *stubSynthesizer
	service  *Service
}

func newPipeline(t *testing.T) *pipeline {
	t.Helper()
	p := &pipeline{
		embedder: &stubEmbedder{vec: []float32{1, 0, 0}},
		searcher: &stubSearcher{},
		fallback: &stubFallback{},
		synth:    &stubSynthesizer{result: &SynthesisResult{Text: "a grounded answer", Tokens: 42}},
	}
	svc, err := NewService(p.embedder, p.searcher, p.fallback, p.synth,
		Options{TopK: 5, ScoreThreshold: 0.5}, log.NewNop())
	require.NoError(t, err)
	p.service = svc
	return p
}

func primaryHit(id string, score float64) index.Hit {
	return index.Hit{
		ID:         id,
		DocumentID: "doc-" + id,
		Section:    "Basics",
		Content:    "content of " + id,
		Title:      "Title " + id,
		Score:      score,
	}
}

func TestAnswer_PrimaryPath(t *testing.T) {
	p := newPipeline(t)
	p.searcher.hits = []index.Hit{primaryHit("a", 0.9), primaryHit("b", 0.7)}

	result, err := p.service.Answer(context.Background(), Request{Question: "how does a servo work"})

	require.NoError(t, err)
	assert.Equal(t, "a grounded answer", result.Answer)
	assert.Equal(t, PathPrimary, result.Path)
	assert.InDelta(t, 0.8, result.Confidence, 1e-9)
	assert.Equal(t, 42, result.TokensUsed)
	require.Len(t, result.Citations, 2)
	assert.Equal(t, "doc-a", result.Citations[0].DocumentID)
	assert.Equal(t, "Basics", result.Citations[0].Section)
	assert.Equal(t, "content of a", result.Citations[0].Quote)

	assert.Zero(t, p.fallback.calls, "fallback must stay untouched when primary succeeds")
	require.Equal(t, 1, p.synth.calls)
	require.Len(t, p.synth.last.Evidence, 2)
	assert.Equal(t, "content of a", p.synth.last.Evidence[0].Content)
}

func TestAnswer_SearchOptionsPassedThrough(t *testing.T) {
	p := newPipeline(t)
	p.searcher.hits = []index.Hit{primaryHit("a", 0.9)}

	_, err := p.service.Answer(context.Background(), Request{
		Question:   "what sensors detect depth",
		DocumentID: "depth-sensing",
	})

	require.NoError(t, err)
	assert.Equal(t, 5, p.searcher.lastOpts.TopK)
	assert.InDelta(t, 0.5, p.searcher.lastOpts.ScoreThreshold, 1e-9)
	assert.Equal(t, "depth-sensing", p.searcher.lastOpts.DocumentID)
}

func TestAnswer_FallbackActivationWhenIndexUnavailable(t *testing.T) {
	p := newPipeline(t)
	p.searcher.err = fmt.Errorf("%w: connection refused", index.ErrUnavailable)
	p.fallback.hits = []fallback.Hit{
		{DocumentID: "servo-basics", Title: "Servo Basics", Section: "control", Excerpt: "servos explained", Score: 1.0},
		{DocumentID: "gears", Title: "Gears", Section: "control", Excerpt: "gear ratios", Score: 0.5},
	}

	result, err := p.service.Answer(context.Background(), Request{Question: "servo gears"})

	require.NoError(t, err, "index outage must degrade, not fail")
	assert.Equal(t, PathFallback, result.Path)
	assert.InDelta(t, 0.75, result.Confidence, 1e-9, "confidence comes from fallback scores only")
	require.Len(t, result.Citations, 2)
	assert.Equal(t, "servo-basics", result.Citations[0].DocumentID)
	assert.Equal(t, "control", result.Citations[0].Section)
	assert.Equal(t, 1, p.fallback.calls)
	assert.Equal(t, 1, p.synth.calls)
}

func TestAnswer_FallbackWhenPrimaryEmpty(t *testing.T) {
	p := newPipeline(t)
	p.searcher.hits = nil
	p.fallback.hits = []fallback.Hit{
		{DocumentID: "doc", Title: "Doc", Section: "general", Excerpt: "text", Score: 0.5},
	}

	result, err := p.service.Answer(context.Background(), Request{Question: "anything"})

	require.NoError(t, err)
	assert.Equal(t, PathFallback, result.Path)
	assert.Equal(t, 1, p.searcher.calls)
	assert.Equal(t, 1, p.fallback.calls)
}

func TestAnswer_FallbackWhenEmbeddingFails(t *testing.T) {
	p := newPipeline(t)
	p.embedder.err = errors.New("provider rejected input")
	p.fallback.hits = []fallback.Hit{
		{DocumentID: "doc", Title: "Doc", Section: "general", Excerpt: "text", Score: 0.5},
	}

	result, err := p.service.Answer(context.Background(), Request{Question: "anything"})

	require.NoError(t, err)
	assert.Equal(t, PathFallback, result.Path)
	assert.Zero(t, p.searcher.calls, "primary search is unreachable without a query vector")
}

func TestAnswer_EmptyEvidenceShortCircuit(t *testing.T) {
	p := newPipeline(t)

	result, err := p.service.Answer(context.Background(), Request{Question: "quantum chromodynamics"})

	require.NoError(t, err)
	assert.Equal(t, NotFoundAnswer, result.Answer)
	assert.Zero(t, result.Confidence)
	assert.Empty(t, result.Citations)
	assert.Equal(t, PathNone, result.Path)
	assert.Zero(t, p.synth.calls, "synthesizer must never see empty evidence")
}

func TestAnswer_FallbackFailureYieldsNotFound(t *testing.T) {
	p := newPipeline(t)
	p.searcher.err = index.ErrUnavailable
	p.fallback.err = errors.New("content directory gone")

	result, err := p.service.Answer(context.Background(), Request{Question: "anything"})

	require.NoError(t, err)
	assert.Equal(t, NotFoundAnswer, result.Answer)
	assert.Equal(t, PathNone, result.Path)
	assert.Zero(t, p.synth.calls)
}

func TestAnswer_SynthesisFailureSurfaced(t *testing.T) {
	p := newPipeline(t)
	p.searcher.hits = []index.Hit{primaryHit("a", 0.9)}
	p.synth.err = errors.New("model overloaded")

	result, err := p.service.Answer(context.Background(), Request{Question: "how does a servo work"})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSynthesis)
	assert.Nil(t, result)
}

func TestAnswer_ConfidenceRoundedToTwoDecimals(t *testing.T) {
	p := newPipeline(t)
	p.searcher.hits = []index.Hit{
		primaryHit("a", 0.62),
		primaryHit("b", 0.605),
	}

	result, err := p.service.Answer(context.Background(), Request{Question: "anything"})

	require.NoError(t, err)
	assert.InDelta(t, 0.61, result.Confidence, 1e-9)
}

func TestAnswer_CitationQuoteBounded(t *testing.T) {
	p := newPipeline(t)
	long := primaryHit("a", 0.9)
	long.Content = strings.Repeat("x", 450)
	short := primaryHit("b", 0.8)
	short.Content = "short content"
	p.searcher.hits = []index.Hit{long, short}

	result, err := p.service.Answer(context.Background(), Request{Question: "anything"})

	require.NoError(t, err)
	require.Len(t, result.Citations, 2)
	assert.Equal(t, strings.Repeat("x", 200)+"...", result.Citations[0].Quote)
	assert.Equal(t, "short content", result.Citations[1].Quote)
}

func TestAnswer_SelectedTextReachesSynthesizer(t *testing.T) {
	p := newPipeline(t)
	p.searcher.hits = []index.Hit{primaryHit("a", 0.9)}

	_, err := p.service.Answer(context.Background(), Request{
		Question:     "what does this paragraph mean",
		SelectedText: "the highlighted paragraph",
	})

	require.NoError(t, err)
	assert.Equal(t, "the highlighted paragraph", p.synth.last.SelectedText)
}

func TestNewService_Validation(t *testing.T) {
	embedder := &stubEmbedder{}
	searcher := &stubSearcher{}
	fb := &stubFallback{}
	synth := &stubSynthesizer{}
	opts := Options{TopK: 5}
	logger := log.NewNop()

	tests := []struct {
		name string
		fn   func() (*Service, error)
	}{
		{"nil embedder", func() (*Service, error) {
			return NewService(nil, searcher, fb, synth, opts, logger)
		}},
		{"nil searcher", func() (*Service, error) {
			return NewService(embedder, nil, fb, synth, opts, logger)
		}},
		{"nil fallback", func() (*Service, error) {
			return NewService(embedder, searcher, nil, synth, opts, logger)
		}},
		{"nil synthesizer", func() (*Service, error) {
			return NewService(embedder, searcher, fb, nil, opts, logger)
		}},
		{"zero top_k", func() (*Service, error) {
			return NewService(embedder, searcher, fb, synth, Options{}, logger)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.fn()
			assert.Error(t, err)
		})
	}
}
