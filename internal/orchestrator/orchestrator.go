// Package orchestrator runs the per-turn dialogue control loop: classify the
// user message, merge it into the session's slot state, then either ask for
// the next missing slot or answer the completed request, and finally record
// the exchange in the conversation memory.
//
// The loop never propagates a collaborator failure to the caller. Every turn
// produces a natural-language response; failures degrade to fixed fallbacks.
package orchestrator

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"cicerone/internal/agents"
	"cicerone/internal/dialogue"
	"cicerone/internal/llm"
	"cicerone/internal/memory"
	"cicerone/internal/schema"
	"cicerone/internal/search"
	"cicerone/internal/storage"
	"cicerone/internal/trace"
	"cicerone/pkg/types"
)

// Result is the outcome of one processed turn. Success is false only when the
// turn could not be durably recorded; degraded turns still succeed with a
// best-effort response.
type Result struct {
	Success          bool          `json:"success"`
	Response         string        `json:"response"`
	Intent           string        `json:"intent"`
	Slots            types.SlotSet `json:"slots"`
	Emotion          string        `json:"emotions"`
	FoundInformation string        `json:"found_information,omitempty"`
	Complete         bool          `json:"complete"`
	MissingSlots     []string      `json:"missing_slots,omitempty"`
}

// Config tunes the orchestrator.
type Config struct {
	Tracker dialogue.TrackerConfig
	Memory  memory.Config
}

// Deps are the collaborators and infrastructure the orchestrator drives.
// Searcher, Embedder and Generator may be nil; the affected paths degrade.
type Deps struct {
	Schema     *schema.SlotSchema
	Extractor  agents.Extractor
	Questioner agents.QuestionGenerator
	Answerer   agents.AnswerGenerator
	Searcher   search.Searcher
	Store      storage.EntryStore
	Embedder   llm.EmbeddingGenerator
	Generator  llm.TextGenerator
	Trace      *trace.Recorder
	Logger     *log.Logger
}

// session bundles the per-session mutable state. The mutex serializes turns
// within the session: merge is not commutative, so turn n+1 must not start
// merging before turn n has been recorded.
type session struct {
	mu      sync.Mutex
	tracker *dialogue.Tracker
	memory  *memory.Conversation
}

// Orchestrator hosts independent conversation sessions over one shared store.
type Orchestrator struct {
	deps   Deps
	config Config

	mu       sync.Mutex
	sessions map[string]*session
}

// New creates an orchestrator. Schema, Extractor, Questioner, Answerer and
// Store are required.
func New(deps Deps, config Config) (*Orchestrator, error) {
	if deps.Schema == nil || deps.Extractor == nil || deps.Questioner == nil || deps.Answerer == nil || deps.Store == nil {
		return nil, fmt.Errorf("orchestrator requires schema, extractor, questioner, answerer and store")
	}
	if deps.Logger == nil {
		deps.Logger = log.Default()
	}
	if deps.Trace == nil {
		deps.Trace = trace.NewRecorder(0)
	}
	return &Orchestrator{
		deps:     deps,
		config:   config,
		sessions: make(map[string]*session),
	}, nil
}

func (o *Orchestrator) session(id string) *session {
	o.mu.Lock()
	defer o.mu.Unlock()

	s, ok := o.sessions[id]
	if !ok {
		s = &session{
			tracker: dialogue.NewTracker(o.deps.Schema, o.config.Tracker),
			memory:  memory.NewConversation(o.deps.Store, o.deps.Embedder, o.deps.Generator, o.config.Memory, o.deps.Logger),
		}
		o.sessions[id] = s
	}
	return s
}

// ProcessMessage runs one turn of the dialogue loop for the given session.
// It always returns a result with a user-visible response.
func (o *Orchestrator) ProcessMessage(ctx context.Context, sessionID, text string) Result {
	s := o.session(sessionID)
	s.mu.Lock()
	defer s.mu.Unlock()

	o.deps.Trace.Record(sessionID, trace.StageReceived, truncate(text, 80))

	ext := o.classify(ctx, sessionID, text)

	// Recall turns are answered from memory and never touch the aggregate.
	if ext.RecallQuery != "" {
		return o.recallTurn(ctx, sessionID, s, text, ext)
	}

	intent, slots, err := s.tracker.Merge(*ext)
	if err != nil {
		o.deps.Logger.Printf("orchestrator: merge rejected extraction for session %s: %v", sessionID, err)
	}
	o.deps.Trace.Record(sessionID, trace.StageMerged, fmt.Sprintf("intent=%s slots=%d", intent, slots.Len()))

	result := Result{
		Success: true,
		Intent:  intent,
		Slots:   slots,
		Emotion: ext.Emotion,
	}

	switch {
	case intent == "" || intent == types.IntentUnknown || !o.deps.Schema.Knows(intent):
		result.Response = o.converse(ctx, sessionID, intent, slots, ext.Emotion)
	default:
		completion := dialogue.Check(intent, slots, o.deps.Schema)
		result.Complete = completion.IsComplete
		result.MissingSlots = completion.MissingSlots

		if completion.IsComplete {
			result.Response = o.answer(ctx, sessionID, intent, slots, ext.Emotion)
		} else {
			result.Response = o.ask(ctx, sessionID, intent, completion.MissingSlots[0], slots, ext.Emotion)
		}
	}

	if err := o.record(ctx, s, text, ext, intent, slots, result.Response); err != nil {
		o.deps.Logger.Printf("orchestrator: failed to record turn for session %s: %v", sessionID, err)
		o.deps.Trace.Record(sessionID, trace.StageError, err.Error())
		result.Success = false
		return result
	}

	o.deps.Trace.Record(sessionID, trace.StageRecorded, "")
	return result
}

// classify runs the extractor with a degraded fallback: an unavailable or
// malformed extractor yields an unknown-intent, neutral-emotion turn.
func (o *Orchestrator) classify(ctx context.Context, sessionID, text string) *types.Extraction {
	ext, err := o.deps.Extractor.Extract(ctx, text)
	if err != nil || ext == nil {
		o.deps.Logger.Printf("orchestrator: extraction failed for session %s: %v", sessionID, err)
		ext = &types.Extraction{
			Intent:     types.IntentUnknown,
			Confidence: types.ConfidenceLow,
			Slots:      types.NewSlotSet(),
			Emotion:    types.EmotionNeutral,
		}
	}
	if ext.Slots == nil {
		ext.Slots = types.NewSlotSet()
	}
	if ext.Emotion == "" {
		ext.Emotion = types.EmotionNeutral
	}
	o.deps.Trace.Record(sessionID, trace.StageClassified, ext.Intent)
	return ext
}

// recallTurn answers a question about earlier conversation content.
func (o *Orchestrator) recallTurn(ctx context.Context, sessionID string, s *session, text string, ext *types.Extraction) Result {
	recall := s.memory.Recall(ctx, ext.RecallQuery)

	result := Result{
		Success: true,
		Intent:  s.tracker.Intent(),
		Slots:   s.tracker.Snapshot(),
		Emotion: ext.Emotion,
	}
	if recall.Found && recall.Confidence != types.ConfidenceLow {
		result.Response = recall.Information
		result.FoundInformation = recall.Information
	} else {
		result.Response = "I couldn't find that in our conversation so far. Could you remind me?"
	}

	if err := o.record(ctx, s, text, ext, result.Intent, result.Slots, result.Response); err != nil {
		o.deps.Logger.Printf("orchestrator: failed to record recall turn for session %s: %v", sessionID, err)
		result.Success = false
		return result
	}
	o.deps.Trace.Record(sessionID, trace.StageRecorded, "recall")
	return result
}

// ask requests the first missing slot with a fixed fallback phrasing when the
// question generator fails.
func (o *Orchestrator) ask(ctx context.Context, sessionID, intent, missingSlot string, slots types.SlotSet, emotion string) string {
	o.deps.Trace.Record(sessionID, trace.StageAsking, missingSlot)

	question, err := o.deps.Questioner.Question(ctx, intent, missingSlot, slots, emotion)
	if err != nil {
		o.deps.Logger.Printf("orchestrator: question generation failed for session %s: %v", sessionID, err)
		return fallbackQuestion(missingSlot)
	}
	return question
}

// answer finalizes a completed request. Search failures are treated as "no
// evidence"; answer-generation failures degrade to a fixed response.
func (o *Orchestrator) answer(ctx context.Context, sessionID, intent string, slots types.SlotSet, emotion string) string {
	o.deps.Trace.Record(sessionID, trace.StageAnswering, intent)

	var results []search.Result
	if o.deps.Searcher != nil {
		var err error
		results, err = o.deps.Searcher.Search(ctx, buildSearchQuery(intent, slots, o.deps.Schema))
		if err != nil {
			o.deps.Logger.Printf("orchestrator: search failed for session %s: %v", sessionID, err)
			results = nil
		}
	}

	text, err := o.deps.Answerer.Answer(ctx, intent, slots, emotion, results)
	if err != nil {
		o.deps.Logger.Printf("orchestrator: answer generation failed for session %s: %v", sessionID, err)
		return "I have everything I need for your request, but I'm having trouble putting an answer together right now. Please try again in a moment."
	}
	return text
}

// converse handles turns outside the request schema (greetings, thanks,
// chit-chat): answer directly, no search, no completion check.
func (o *Orchestrator) converse(ctx context.Context, sessionID, intent string, slots types.SlotSet, emotion string) string {
	o.deps.Trace.Record(sessionID, trace.StageAnswering, "conversation")

	text, err := o.deps.Answerer.Answer(ctx, "general conversation", slots, emotion, nil)
	if err != nil {
		o.deps.Logger.Printf("orchestrator: conversational reply failed for session %s: %v", sessionID, err)
		return "I'm here to help you plan restaurants, hotels and activities. What are you looking for?"
	}
	return text
}

// record appends both halves of the exchange to the conversation memory.
func (o *Orchestrator) record(ctx context.Context, s *session, userText string, ext *types.Extraction, intent string, slots types.SlotSet, response string) error {
	now := time.Now()
	s.memory.AppendUserTurn(types.Turn{
		Text:      userText,
		Timestamp: now,
		Emotion:   ext.Emotion,
		Intent:    intent,
		Slots:     slots,
		Query:     ext.RecallQuery,
	})
	return s.memory.AppendAssistantTurn(ctx, types.Turn{
		Text:      response,
		Timestamp: now,
	})
}

// History returns the session's turn log, oldest first.
func (o *Orchestrator) History(sessionID string) []types.Turn {
	s := o.session(sessionID)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.memory.History()
}

// Clear wipes the session's conversation memory and resets its slot state.
// From the caller's view the session is empty when Clear returns, even if the
// store needed retries (or still holds residuals, reported as an error).
func (o *Orchestrator) Clear(ctx context.Context, sessionID string) error {
	s := o.session(sessionID)
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tracker.Reset()
	if err := s.memory.Clear(ctx); err != nil {
		o.deps.Logger.Printf("orchestrator: clear left residual state for session %s: %v", sessionID, err)
		return err
	}
	return nil
}

// Trace exposes the stage recorder for the diagnostics endpoint.
func (o *Orchestrator) Trace() *trace.Recorder {
	return o.deps.Trace
}

// buildSearchQuery renders the completed request as a web search query, slot
// values in schema order so the query is deterministic for a given state.
func buildSearchQuery(intent string, slots types.SlotSet, s *schema.SlotSchema) string {
	parts := []string{intentKeywords(intent)}
	for _, name := range s.RequiredSlots(intent) {
		if value, ok := slots.Get(name); ok {
			parts = append(parts, value)
		}
	}
	return strings.Join(parts, " ")
}

func intentKeywords(intent string) string {
	switch intent {
	case "restaurant_search":
		return "restaurant"
	case "hotel_booking":
		return "hotel"
	case "activity_search":
		return "things to do"
	default:
		return strings.ReplaceAll(intent, "_", " ")
	}
}

func fallbackQuestion(missingSlot string) string {
	readable := strings.ReplaceAll(missingSlot, "_", " ")
	return fmt.Sprintf("Could you tell me the %s you have in mind?", readable)
}

// truncate shortens s to at most max bytes without splitting a rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
