package dialogue

import (
	"cicerone/internal/schema"
	"cicerone/pkg/types"
)

// Check reports completeness of slots against the required slots for intent.
//
// A slot counts as missing when it is absent or empty. MissingSlots follows
// the schema's declared order — the first missing slot is the one the next
// clarifying question asks about, so the order is a contract, not incidental.
// Intents the schema does not declare require zero slots and are always
// complete. Check is a pure function with no side effects.
func Check(intent string, slots types.SlotSet, s *schema.SlotSchema) types.CompletionResult {
	required := s.RequiredSlots(intent)

	var missing []string
	for _, slot := range required {
		if !slots.Filled(slot) {
			missing = append(missing, slot)
		}
	}

	return types.CompletionResult{
		IsComplete:   len(missing) == 0,
		MissingSlots: missing,
		Intent:       intent,
		Slots:        slots.Clone(),
	}
}
