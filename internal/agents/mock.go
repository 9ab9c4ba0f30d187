package agents

import (
	"context"
	"fmt"

	"cicerone/internal/search"
	"cicerone/pkg/types"
)

// MockExtractor returns scripted extractions keyed by message text, falling
// back to a default. Used by orchestrator and server tests.
type MockExtractor struct {
	Responses map[string]*types.Extraction
	Default   *types.Extraction
	Err       error
	Calls     []string
}

// Extract implements Extractor.
func (m *MockExtractor) Extract(_ context.Context, message string) (*types.Extraction, error) {
	m.Calls = append(m.Calls, message)
	if m.Err != nil {
		return nil, m.Err
	}
	if ext, ok := m.Responses[message]; ok {
		return ext, nil
	}
	if m.Default != nil {
		return m.Default, nil
	}
	return &types.Extraction{
		Intent:     types.IntentUnknown,
		Confidence: types.ConfidenceLow,
		Slots:      types.NewSlotSet(),
		Emotion:    types.EmotionNeutral,
	}, nil
}

// MockQuestioner returns a deterministic question naming the missing slot.
type MockQuestioner struct {
	Err   error
	Calls []string
}

// Question implements QuestionGenerator.
func (m *MockQuestioner) Question(_ context.Context, intent, missingSlot string, _ types.SlotSet, _ string) (string, error) {
	m.Calls = append(m.Calls, missingSlot)
	if m.Err != nil {
		return "", m.Err
	}
	return fmt.Sprintf("Could you tell me the %s for your %s?", missingSlot, intent), nil
}

// MockAnswerer returns a deterministic answer mentioning the intent and how
// many search results it saw.
type MockAnswerer struct {
	Err         error
	ResultCount int
}

// Answer implements AnswerGenerator.
func (m *MockAnswerer) Answer(_ context.Context, intent string, _ types.SlotSet, _ string, results []search.Result) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	m.ResultCount = len(results)
	return fmt.Sprintf("Here is what I found for your %s (%d sources).", intent, len(results)), nil
}
