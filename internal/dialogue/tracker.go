// Package dialogue implements the slot-filling state machine: the tracker
// that owns the aggregated cross-turn slot set and the completion checker
// that decides between asking a clarifying question and answering.
package dialogue

import (
	"errors"

	"cicerone/internal/schema"
	"cicerone/pkg/types"
)

// ErrMalformedExtraction is returned when an extraction result does not carry
// a usable slot mapping. The aggregate is left untouched.
var ErrMalformedExtraction = errors.New("dialogue: malformed extraction")

// TrackerConfig selects the merge policy for repeated slot values.
type TrackerConfig struct {
	// OverwriteOnRepeat controls what happens when the intent is unchanged and
	// a new non-empty value arrives for an already-filled slot. False (the
	// default) keeps the known value and only fills genuinely missing slots;
	// true lets the newer value win.
	OverwriteOnRepeat bool
}

// Tracker maintains the single authoritative SlotSet for one conversation
// session and merges per-turn extraction results into it.
//
// A Tracker is not safe for concurrent use: turns within a session are
// strictly sequential (merge is not commutative), and the session owning the
// tracker serializes access.
type Tracker struct {
	cfg    TrackerConfig
	schema *schema.SlotSchema

	intent    string
	aggregate types.SlotSet
}

// NewTracker creates a tracker with an empty aggregate.
func NewTracker(s *schema.SlotSchema, cfg TrackerConfig) *Tracker {
	return &Tracker{
		cfg:       cfg,
		schema:    s,
		aggregate: types.NewSlotSet(),
	}
}

// Intent returns the active intent, or "" when no request is in progress.
func (t *Tracker) Intent() string {
	return t.intent
}

// Snapshot returns an independent copy of the current aggregate.
func (t *Tracker) Snapshot() types.SlotSet {
	return t.aggregate.Clone()
}

// Hydrate seeds the tracker from persisted state, e.g. when a session is
// restored from the durable store. Empty values are dropped.
func (t *Tracker) Hydrate(intent string, slots types.SlotSet) {
	t.intent = intent
	t.aggregate = slots.Clone()
}

// Reset clears the active intent and the aggregate. Called by memory clear.
func (t *Tracker) Reset() {
	t.intent = ""
	t.aggregate = types.NewSlotSet()
}

// Merge folds one turn's extraction into the aggregate and returns the
// effective intent plus a snapshot of the updated slot set.
//
// Continuity wins over noise: while a prior request is unfinished (its intent
// has at least one filled required slot but is not complete), an "unknown"
// intent, the same intent again, or an intent the schema does not declare all
// retain the prior request; only a different schema-declared intent, or a
// prior request that already completed, lets the new intent take over — in
// which case the aggregate is rebuilt from the new turn's values alone, with
// no carry-over across unrelated intents.
//
// Selection turns ("I'll take the second one") are pure continuity signals:
// the tracker state is returned unchanged regardless of any intent or slot
// values the raw extraction happened to produce; a selection with no active
// request is a no-op.
//
// A value already in the aggregate is never silently lost: it either survives
// or is replaced by a newer non-empty value per the configured policy.
func (t *Tracker) Merge(ext types.Extraction) (string, types.SlotSet, error) {
	if ext.Slots == nil {
		return t.intent, t.Snapshot(), ErrMalformedExtraction
	}
	for name := range ext.Slots {
		if name == "" {
			return t.intent, t.Snapshot(), ErrMalformedExtraction
		}
	}

	if ext.Selection {
		// With no active request a selection is a no-op: nothing was
		// offered, so there is nothing to continue or adopt.
		return t.intent, t.Snapshot(), nil
	}

	if t.retainsPrior(ext.Intent) {
		for name, value := range ext.Slots {
			if value == "" {
				continue
			}
			if !t.aggregate.Filled(name) || t.cfg.OverwriteOnRepeat {
				t.aggregate.Set(name, value)
			}
		}
		return t.intent, t.Snapshot(), nil
	}

	// New intent takes over: rebuild the aggregate from this turn only.
	t.intent = ext.Intent
	t.aggregate = ext.Slots.Clone()
	return t.intent, t.Snapshot(), nil
}

// retainsPrior decides whether the prior request survives the new intent.
func (t *Tracker) retainsPrior(newIntent string) bool {
	if t.intent == "" {
		return false
	}
	if t.completed() {
		return false
	}
	if newIntent == types.IntentUnknown || newIntent == t.intent || newIntent == "" {
		return true
	}
	// Intents outside the schema (chit-chat, thanks, confirmations) do not
	// reset an unfinished request.
	return !t.schema.Knows(newIntent)
}

// completed reports whether the active intent has all required slots filled.
func (t *Tracker) completed() bool {
	for _, slot := range t.schema.RequiredSlots(t.intent) {
		if !t.aggregate.Filled(slot) {
			return false
		}
	}
	return true
}
