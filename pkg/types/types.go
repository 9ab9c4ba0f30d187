// Package types defines the core data structures for the Cicerone dialogue
// system: turns, slot sets, memory entries, and the value objects exchanged
// between the state tracker, the completion checker, and the orchestrator.
package types

// Role identifies the author of a turn.
type Role string

const (
	// RoleUser marks a turn authored by the end user.
	RoleUser Role = "user"

	// RoleAssistant marks a turn authored by the assistant.
	RoleAssistant Role = "assistant"
)

// Confidence is the coarse confidence label collaborators attach to their
// output. Callers must not act on ConfidenceLow results.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// IntentUnknown is the intent reported when the extractor could not classify
// the message. During a merge it is treated as a continuity signal, never as
// the start of a new request.
const IntentUnknown = "unknown"

// EmotionNeutral is the fallback emotion used when detection fails or times out.
const EmotionNeutral = "neutral"
