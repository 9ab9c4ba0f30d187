package types

import "sort"

// SlotSet is the aggregated, cross-turn belief state for the active intent.
// It maps slot names to values and stores only non-empty values: callers must
// normalize empty-string-vs-absent at the extraction boundary before a value
// ever reaches a SlotSet. A nil SlotSet behaves like an empty one for reads.
type SlotSet map[string]string

// NewSlotSet returns an empty slot set.
func NewSlotSet() SlotSet {
	return make(SlotSet)
}

// Get returns the value for name and whether a non-empty value is present.
func (s SlotSet) Get(name string) (string, bool) {
	v, ok := s[name]
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// Filled reports whether the named slot holds a non-empty value.
func (s SlotSet) Filled(name string) bool {
	_, ok := s.Get(name)
	return ok
}

// Set stores a value. Empty values are dropped rather than stored, so a SlotSet
// never distinguishes "present but empty" from "absent".
func (s SlotSet) Set(name, value string) {
	if value == "" {
		return
	}
	s[name] = value
}

// Clone returns an independent copy. Cloning nil yields an empty set.
func (s SlotSet) Clone() SlotSet {
	out := make(SlotSet, len(s))
	for k, v := range s {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

// Names returns the filled slot names in sorted order.
func (s SlotSet) Names() []string {
	names := make([]string, 0, len(s))
	for k, v := range s {
		if v != "" {
			names = append(names, k)
		}
	}
	sort.Strings(names)
	return names
}

// Len returns the number of filled slots.
func (s SlotSet) Len() int {
	n := 0
	for _, v := range s {
		if v != "" {
			n++
		}
	}
	return n
}

// Superset reports whether s contains every key/value pair of other.
func (s SlotSet) Superset(other SlotSet) bool {
	for k, v := range other {
		if v == "" {
			continue
		}
		if got, ok := s.Get(k); !ok || got != v {
			return false
		}
	}
	return true
}

// CompletionResult is the outcome of a completeness check. It is produced
// fresh on every check and never mutated.
type CompletionResult struct {
	IsComplete   bool     `json:"is_complete"`
	MissingSlots []string `json:"missing_slots"` // schema order; first entry is asked first
	Intent       string   `json:"intent"`
	Slots        SlotSet  `json:"slots"` // snapshot at check time
}
