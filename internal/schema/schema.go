// Package schema holds the static table of intents and their required slots.
// The slot order declared for an intent is a contract: the completion checker
// reports missing slots in this order, and the first missing slot drives which
// clarifying question is asked next.
package schema

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// IntentRecord pairs an intent name with its ordered required slot names.
type IntentRecord struct {
	Intent        string   `yaml:"intent"`
	RequiredSlots []string `yaml:"required_slots"`
}

// SlotSchema maps intents to their required slots. It is loaded once at
// startup and immutable afterwards. Intents absent from the schema require
// zero slots and are therefore always complete.
type SlotSchema struct {
	records map[string][]string
	order   []string
}

// schemaFile is the on-disk YAML layout.
type schemaFile struct {
	Intents []IntentRecord `yaml:"intents"`
}

// Default returns the built-in tourism schema.
func Default() *SlotSchema {
	s, err := New([]IntentRecord{
		{Intent: "restaurant_search", RequiredSlots: []string{"location", "food_type", "budget", "time"}},
		{Intent: "activity_search", RequiredSlots: []string{"location", "activity_type", "date"}},
		{Intent: "hotel_booking", RequiredSlots: []string{"location", "date", "budget"}},
		{Intent: "general_information", RequiredSlots: []string{"location"}},
	})
	if err != nil {
		// The built-in table is validated by tests; failing here is a
		// programmer error.
		panic(err)
	}
	return s
}

// New builds a schema from intent records. Duplicate intents and duplicate
// slots within an intent are rejected.
func New(records []IntentRecord) (*SlotSchema, error) {
	s := &SlotSchema{records: make(map[string][]string, len(records))}
	for _, r := range records {
		if r.Intent == "" {
			return nil, fmt.Errorf("schema: intent name must not be empty")
		}
		if _, dup := s.records[r.Intent]; dup {
			return nil, fmt.Errorf("schema: duplicate intent %q", r.Intent)
		}
		seen := make(map[string]bool, len(r.RequiredSlots))
		for _, slot := range r.RequiredSlots {
			if slot == "" {
				return nil, fmt.Errorf("schema: intent %q has an empty slot name", r.Intent)
			}
			if seen[slot] {
				return nil, fmt.Errorf("schema: intent %q declares slot %q twice", r.Intent, slot)
			}
			seen[slot] = true
		}
		slots := make([]string, len(r.RequiredSlots))
		copy(slots, r.RequiredSlots)
		s.records[r.Intent] = slots
		s.order = append(s.order, r.Intent)
	}
	return s, nil
}

// Load reads a schema from a YAML file.
func Load(path string) (*SlotSchema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("schema: failed to read %s: %w", path, err)
	}

	var f schemaFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("schema: failed to parse %s: %w", path, err)
	}
	if len(f.Intents) == 0 {
		return nil, fmt.Errorf("schema: %s declares no intents", path)
	}

	return New(f.Intents)
}

// RequiredSlots returns the ordered required slots for intent. The returned
// slice is a copy; callers may not mutate schema state through it. Unknown
// intents return an empty list.
func (s *SlotSchema) RequiredSlots(intent string) []string {
	slots, ok := s.records[intent]
	if !ok {
		return nil
	}
	out := make([]string, len(slots))
	copy(out, slots)
	return out
}

// Knows reports whether intent is declared in the schema.
func (s *SlotSchema) Knows(intent string) bool {
	_, ok := s.records[intent]
	return ok
}

// Intents returns the declared intent names in declaration order.
func (s *SlotSchema) Intents() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}
