package agents

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"cicerone/internal/llm"
	"cicerone/internal/search"
	"cicerone/pkg/types"
)

const defaultAgentTimeout = 15 * time.Second

// LLMExtractor classifies user messages with a text generator. A completion
// that cannot be parsed degrades to an unknown-intent extraction with empty
// slots; only transport failures surface as errors.
type LLMExtractor struct {
	generator llm.TextGenerator
	intents   []string
	timeout   time.Duration
	logger    *log.Logger
}

// NewLLMExtractor creates an extractor over the given generator. intents is
// the closed set of classifiable intents from the slot schema.
func NewLLMExtractor(generator llm.TextGenerator, intents []string, logger *log.Logger) *LLMExtractor {
	if logger == nil {
		logger = log.Default()
	}
	return &LLMExtractor{
		generator: generator,
		intents:   intents,
		timeout:   defaultAgentTimeout,
		logger:    logger,
	}
}

// Extract implements Extractor.
func (e *LLMExtractor) Extract(ctx context.Context, message string) (*types.Extraction, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	raw, err := e.generator.Complete(ctx, llm.ExtractionPrompt(message, e.intents))
	if err != nil {
		return nil, fmt.Errorf("extraction failed: %w", err)
	}

	ext, err := llm.ParseExtraction(raw)
	if err != nil {
		if errors.Is(err, llm.ErrUnparseable) {
			e.logger.Printf("agents: unparseable extraction, degrading to unknown intent")
			return &types.Extraction{
				Intent:     types.IntentUnknown,
				Confidence: types.ConfidenceLow,
				Slots:      types.NewSlotSet(),
				Emotion:    types.EmotionNeutral,
			}, nil
		}
		return nil, err
	}
	return ext, nil
}

// LLMQuestioner phrases the next clarifying question.
type LLMQuestioner struct {
	generator llm.TextGenerator
	timeout   time.Duration
}

// NewLLMQuestioner creates a question generator over the given generator.
func NewLLMQuestioner(generator llm.TextGenerator) *LLMQuestioner {
	return &LLMQuestioner{generator: generator, timeout: defaultAgentTimeout}
}

// Question implements QuestionGenerator. The fallback when the generator
// fails is handled by the orchestrator, which has a fixed phrasing per slot.
func (q *LLMQuestioner) Question(ctx context.Context, intent, missingSlot string, known types.SlotSet, emotion string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, q.timeout)
	defer cancel()

	text, err := q.generator.Complete(ctx, llm.QuestionPrompt(intent, missingSlot, known, emotion))
	if err != nil {
		return "", fmt.Errorf("question generation failed: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("question generation returned empty text")
	}
	return text, nil
}

// LLMAnswerer phrases the final answer from the collected slots and search
// evidence.
type LLMAnswerer struct {
	generator llm.TextGenerator
	timeout   time.Duration
}

// NewLLMAnswerer creates an answer generator over the given generator.
func NewLLMAnswerer(generator llm.TextGenerator) *LLMAnswerer {
	return &LLMAnswerer{generator: generator, timeout: defaultAgentTimeout}
}

// Answer implements AnswerGenerator.
func (a *LLMAnswerer) Answer(ctx context.Context, intent string, known types.SlotSet, emotion string, results []search.Result) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	text, err := a.generator.Complete(ctx, llm.AnswerPrompt(intent, known, emotion, formatResults(results)))
	if err != nil {
		return "", fmt.Errorf("answer generation failed: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("answer generation returned empty text")
	}
	return text, nil
}

// formatResults renders search evidence for the answer prompt. An empty slice
// renders as an explicit no-evidence marker so the model answers from its own
// knowledge instead of inventing citations.
func formatResults(results []search.Result) string {
	if len(results) == 0 {
		return "No search results available. Answer from general knowledge and say the information may be outdated."
	}

	var b strings.Builder
	for i, r := range results {
		fmt.Fprintf(&b, "%d. %s\n%s\nSource: %s\n", i+1, r.Title, r.Snippet, r.URL)
	}
	return b.String()
}
