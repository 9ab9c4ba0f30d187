package types

import "time"

// Turn is a single utterance in a conversation. Turns are created by the
// orchestrator on every step, owned by the conversation memory, and never
// mutated after they are appended.
type Turn struct {
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	Emotion   string    `json:"emotion,omitempty"`
	Intent    string    `json:"intent,omitempty"`
	Slots     SlotSet   `json:"slots,omitempty"` // snapshot at time of turn
	Query     string    `json:"query,omitempty"` // recall/search query, when present
}

// Extraction is the normalized result of the intent/slot/emotion extraction
// collaborator for one user message. Slots contains only non-empty values;
// the adapter drops empty strings before the extraction reaches the tracker.
type Extraction struct {
	Intent     string
	Confidence Confidence
	Slots      SlotSet
	Emotion    string

	// Selection marks a turn that picks among previously offered options
	// ("I'll take the first one"). Selection turns carry no new slot evidence
	// and must not mutate the aggregate.
	Selection bool

	// RecallQuery is set when the user asks about something already discussed;
	// it is the query to run against the conversation memory.
	RecallQuery string
}

// RecallResult is what a memory lookup returns to the orchestrator.
type RecallResult struct {
	Found       bool       `json:"found"`
	Confidence  Confidence `json:"confidence"`
	Information string     `json:"information"`
}
