// Package translate produces cached translations of course documents.
//
// Lookups go through the artifact cache first; only a miss reaches the
// model. Cache write failures degrade to uncached responses, they never fail
// the translation itself.
package translate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/lectern/lectern/internal/artifact"
)

// ErrTranslation indicates the model call failed. The API maps it to a
// service-unavailable response.
var ErrTranslation = errors.New("translation failure")

// maxLanguageLength bounds the language tag, matching the cache key column.
const maxLanguageLength = 10

// languageNames spells out common tags for the prompt; unknown tags are
// passed to the model verbatim.
var languageNames = map[string]string{
	"ur": "Urdu",
	"es": "Spanish",
	"fr": "French",
	"ar": "Arabic",
	"zh": "Chinese",
	"en": "English",
}

const translationSystemPrompt = `You are a professional translator specializing in technical and educational content.
Translate the provided English course chapter to %s.

Guidelines:
- Preserve markdown formatting exactly
- Keep technical terms in English where appropriate (e.g., "ROS", "SLAM", "kinematics")
- Maintain clarity and educational tone
- Preserve code blocks unchanged
- Keep mathematical notation unchanged`

// Cache is the slice of the artifact store the service needs.
type Cache interface {
	Get(ctx context.Context, documentID, variant string) (string, error)
	Put(ctx context.Context, documentID, variant, content string, ttl time.Duration) error
}

// Result is a finished translation.
type Result struct {
	Content string
	Cached  bool
	Tokens  int
}

// Service translates documents through a genkit model with cache-first
// lookups. Safe for concurrent use.
type Service struct {
	cache     Cache
	g         *genkit.Genkit
	modelName string
	ttl       time.Duration
	logger    *slog.Logger
}

// NewService wires the translation service.
func NewService(cache Cache, g *genkit.Genkit, modelName string, ttl time.Duration, logger *slog.Logger) (*Service, error) {
	if cache == nil {
		return nil, errors.New("cache is nil")
	}
	if g == nil {
		return nil, errors.New("genkit instance is nil")
	}
	if modelName == "" {
		return nil, errors.New("model name is empty")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("ttl must be positive, got %s", ttl)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{cache: cache, g: g, modelName: modelName, ttl: ttl, logger: logger}, nil
}

// Translate returns the document's translation into the given language,
// serving from cache when a live entry exists. The cache variant is the
// lowercased language tag.
func (s *Service) Translate(ctx context.Context, documentID, language, text string) (*Result, error) {
	variant, err := normalizeLanguage(language)
	if err != nil {
		return nil, err
	}
	if documentID == "" {
		return nil, errors.New("document id is empty")
	}
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("text is empty")
	}

	cached, err := s.cache.Get(ctx, documentID, variant)
	switch {
	case err == nil:
		s.logger.Debug("translation cache hit",
			"document_id", documentID,
			"language", variant)
		return &Result{Content: cached, Cached: true}, nil
	case !errors.Is(err, artifact.ErrNotFound):
		s.logger.Warn("translation cache read failed, translating anyway",
			"document_id", documentID,
			"language", variant,
			"error", err)
	}

	resp, err := genkit.Generate(ctx, s.g,
		ai.WithModelName(s.modelName),
		ai.WithSystem(fmt.Sprintf(translationSystemPrompt, languageName(variant))),
		ai.WithPrompt("Translate this chapter:\n\n%s", text),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: translating document %s to %s: %w", ErrTranslation, documentID, variant, err)
	}

	var tokens int
	if resp.Usage != nil {
		tokens = resp.Usage.TotalTokens
	}
	content := resp.Text()

	if err := s.cache.Put(ctx, documentID, variant, content, s.ttl); err != nil {
		s.logger.Warn("caching translation failed",
			"document_id", documentID,
			"language", variant,
			"error", err)
	}

	s.logger.Info("translated document",
		"document_id", documentID,
		"language", variant,
		"tokens", tokens)
	return &Result{Content: content, Tokens: tokens}, nil
}

func normalizeLanguage(language string) (string, error) {
	tag := strings.ToLower(strings.TrimSpace(language))
	if tag == "" {
		return "", errors.New("language is empty")
	}
	if len(tag) > maxLanguageLength {
		return "", fmt.Errorf("language tag %q exceeds %d characters", tag, maxLanguageLength)
	}
	for _, r := range tag {
		if (r < 'a' || r > 'z') && r != '-' {
			return "", fmt.Errorf("language tag %q contains invalid characters", tag)
		}
	}
	return tag, nil
}

func languageName(tag string) string {
	if name, ok := languageNames[tag]; ok {
		return name
	}
	return tag
}
