package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// MemoryEntry is the persisted form of one completed user+assistant exchange.
// It is written once, when both halves of the exchange are available, and is
// immutable thereafter; entries are only ever deleted in bulk by a memory clear.
type MemoryEntry struct {
	ID            string    `json:"id"`
	UserText      string    `json:"user_text"`
	AssistantText string    `json:"assistant_text"`
	Emotion       string    `json:"emotion,omitempty"`
	Intent        string    `json:"intent,omitempty"`
	Slots         SlotSet   `json:"slots,omitempty"` // slot snapshot at commit time
	CreatedAt     time.Time `json:"created_at"`
}

// Document renders the entry as the flat text that backs similarity search.
// The layout mirrors what the recall prompt expects.
func (e *MemoryEntry) Document() string {
	slots, _ := json.Marshal(e.Slots)
	return fmt.Sprintf("User: %s\nAssistant: %s\nEmotion: %s\nIntent: %s\nSlots: %s",
		e.UserText, e.AssistantText, e.Emotion, e.Intent, slots)
}
