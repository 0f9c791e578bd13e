package answer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// synthesisSystemPrompt pins the grounding discipline: the model may
// only use supplied context, must admit gaps, and cites sources by
// their labels.
const synthesisSystemPrompt = `You are an expert teaching assistant for a technical course.
Your role is to answer student questions accurately based on the provided course content.

Guidelines:
- Answer based ONLY on the provided context from the course content
- Be concise but thorough - aim for 2-3 paragraphs
- Use technical terminology appropriately for the student's level
- If the context doesn't contain enough information, say so
- Cite sources naturally in your response (e.g., "As covered in Source 2...")
- For math and code, use clear formatting`

// GenkitSynthesizer implements Synthesizer on a genkit generation
// model addressed by its provider-qualified name.
type GenkitSynthesizer struct {
	g         *genkit.Genkit
	modelName string
	logger    *slog.Logger
}

// NewGenkitSynthesizer wires a synthesizer to a model such as
// "googleai/gemini-2.5-flash".
func NewGenkitSynthesizer(g *genkit.Genkit, modelName string, logger *slog.Logger) (*GenkitSynthesizer, error) {
	if g == nil {
		return nil, errors.New("genkit instance is nil")
	}
	if modelName == "" {
		return nil, errors.New("model name is empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GenkitSynthesizer{g: g, modelName: modelName, logger: logger}, nil
}

// Synthesize generates the answer from labeled evidence.
func (gs *GenkitSynthesizer) Synthesize(ctx context.Context, req SynthesisRequest) (*SynthesisResult, error) {
	prompt := buildUserPrompt(req)
	gs.logger.Debug("synthesizing answer",
		"model", gs.modelName,
		"evidence", len(req.Evidence),
		"prompt_length", len(prompt))

	resp, err := genkit.Generate(ctx, gs.g,
		ai.WithModelName(gs.modelName),
		ai.WithSystem(synthesisSystemPrompt),
		ai.WithPrompt(prompt),
	)
	if err != nil {
		return nil, fmt.Errorf("generating answer: %w", err)
	}

	tokens := 0
	if resp.Usage != nil {
		tokens = resp.Usage.TotalTokens
	}
	return &SynthesisResult{Text: resp.Text(), Tokens: tokens}, nil
}

// buildUserPrompt assembles the question, optional highlighted text,
// and evidence labeled by source index.
func buildUserPrompt(req SynthesisRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n", req.Question)
	if req.SelectedText != "" {
		fmt.Fprintf(&b, "\nSelected Text Context: %s\n", req.SelectedText)
	}
	b.WriteString("\nCourse Context:\n")
	for i, e := range req.Evidence {
		source := e.Title
		if source == "" {
			source = e.DocumentID
		}
		fmt.Fprintf(&b, "[Source %d - %s, Section %s]\n%s\n\n", i+1, source, e.Section, e.Content)
	}
	return b.String()
}
