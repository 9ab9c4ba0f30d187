// Package agents defines the dialogue collaborators: specialized components
// the orchestrator consults on every turn. Each collaborator is fallible and
// slow by nature (most are LLM-backed), so every contract takes a context and
// the orchestrator always has a degraded path when one fails.
package agents

import (
	"context"

	"cicerone/internal/search"
	"cicerone/pkg/types"
)

// Extractor turns a raw user message into a normalized extraction: intent,
// slot values, emotion, and the selection/recall markers. Implementations
// must never return an extraction with a nil slot set.
type Extractor interface {
	Extract(ctx context.Context, message string) (*types.Extraction, error)
}

// QuestionGenerator produces the next clarifying question for an incomplete
// request. missingSlot is the first unfilled slot in schema order.
type QuestionGenerator interface {
	Question(ctx context.Context, intent, missingSlot string, known types.SlotSet, emotion string) (string, error)
}

// AnswerGenerator produces the final answer for a completed request, using
// whatever search evidence is available. results may be empty; the generator
// then answers from its own knowledge and says so.
type AnswerGenerator interface {
	Answer(ctx context.Context, intent string, known types.SlotSet, emotion string, results []search.Result) (string, error)
}
