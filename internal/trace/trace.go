// Package trace records the processing stages each turn passes through. It is
// an in-memory diagnostic log, bounded in size, exposed read-only over the
// API for debugging multi-turn sessions.
package trace

import (
	"sync"
	"time"
)

// Stage names the orchestrator states a turn moves through.
type Stage string

const (
	StageReceived   Stage = "received"
	StageClassified Stage = "classified"
	StageMerged     Stage = "merged"
	StageAsking     Stage = "asking"
	StageAnswering  Stage = "answering"
	StageRecorded   Stage = "recorded"
	StageError      Stage = "error"
)

// Event is one recorded stage transition.
type Event struct {
	SessionID string    `json:"session_id"`
	Stage     Stage     `json:"stage"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

const defaultCapacity = 1000

// Recorder keeps a bounded ring of stage events. The zero value is not
// usable; create one with NewRecorder.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	max    int
}

// NewRecorder creates a recorder holding at most capacity events; older
// events are dropped first. capacity <= 0 selects the default.
func NewRecorder(capacity int) *Recorder {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &Recorder{max: capacity}
}

// Record appends a stage event.
func (r *Recorder) Record(sessionID string, stage Stage, detail string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, Event{
		SessionID: sessionID,
		Stage:     stage,
		Detail:    detail,
		Timestamp: time.Now(),
	})
	if len(r.events) > r.max {
		r.events = r.events[len(r.events)-r.max:]
	}
}

// Events returns a copy of the recorded events, oldest first. When sessionID
// is non-empty only that session's events are returned.
func (r *Recorder) Events(sessionID string) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Event, 0, len(r.events))
	for _, e := range r.events {
		if sessionID != "" && e.SessionID != sessionID {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Reset drops all recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
