// Package answer coordinates the question-answering pipeline: query
// embedding, primary vector search, degraded-mode fallback, confidence
// scoring, and grounded synthesis.
package answer

import (
	"errors"
	"time"
)

// NotFoundAnswer is returned when neither retrieval path produced any
// evidence. The synthesizer is never invoked for it.
const NotFoundAnswer = "I couldn't find relevant information in the course content to answer your question. Please try rephrasing or ask about a different topic."

// ErrSynthesis marks a generation failure after evidence was found.
// Callers see it; the pipeline never substitutes a fabricated answer.
var ErrSynthesis = errors.New("synthesis failure")

// RetrievalPath names which retriever produced an answer's evidence.
type RetrievalPath string

const (
	// PathPrimary means the vector index served the evidence.
	PathPrimary RetrievalPath = "primary"
	// PathFallback means the keyword scan served the evidence.
	PathFallback RetrievalPath = "fallback"
	// PathNone means no evidence was found on either path.
	PathNone RetrievalPath = "none"
)

// Evidence is a scored passage considered relevant to a query.
type Evidence struct {
	DocumentID string
	Title      string
	Section    string
	Content    string
	Score      float64
}

// Citation points a reader back at the passage behind an answer.
type Citation struct {
	DocumentID string `json:"document_id"`
	Section    string `json:"section"`
	Quote      string `json:"quote"`
}

// Request is one question put to the pipeline.
type Request struct {
	Question string
	// DocumentID optionally restricts primary retrieval to one
	// document.
	DocumentID string
	// SelectedText optionally carries text the student highlighted
	// while asking.
	SelectedText string
}

// Result is one answered question.
type Result struct {
	Answer     string
	Citations  []Citation
	Confidence float64
	Path       RetrievalPath
	TokensUsed int
	Elapsed    time.Duration
}
