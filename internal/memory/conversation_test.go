package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cicerone/internal/storage"
	"cicerone/pkg/types"
)

// fakeStore is an in-memory EntryStore with configurable failure injection.
type fakeStore struct {
	mu      sync.Mutex
	entries map[string]*types.MemoryEntry
	order   []string

	failPuts    int // fail this many Put calls before succeeding
	failDeletes int
	putCalls    int
}

func newFakeStore() *fakeStore {
	return &fakeStore{entries: make(map[string]*types.MemoryEntry)}
}

func (s *fakeStore) Put(_ context.Context, entry *types.MemoryEntry, _ []float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putCalls++
	if s.failPuts > 0 {
		s.failPuts--
		return errors.New("injected write failure")
	}
	if _, exists := s.entries[entry.ID]; !exists {
		s.order = append(s.order, entry.ID)
	}
	clone := *entry
	s.entries[entry.ID] = &clone
	return nil
}

func (s *fakeStore) Get(_ context.Context, id string) (*types.MemoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return entry, nil
}

func (s *fakeStore) GetAll(_ context.Context) ([]*types.MemoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*types.MemoryEntry, 0, len(s.order))
	for _, id := range s.order {
		if e, ok := s.entries[id]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *fakeStore) Delete(_ context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failDeletes > 0 {
		s.failDeletes--
		return errors.New("injected delete failure")
	}
	for _, id := range ids {
		delete(s.entries, id)
	}
	var remaining []string
	for _, id := range s.order {
		if _, ok := s.entries[id]; ok {
			remaining = append(remaining, id)
		}
	}
	s.order = remaining
	return nil
}

func (s *fakeStore) SimilarityQuery(_ context.Context, _ []float64, limit int) ([]storage.SimilarityMatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []storage.SimilarityMatch
	for _, id := range s.order {
		out = append(out, storage.SimilarityMatch{Entry: s.entries[id]})
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *fakeStore) Count(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries), nil
}

func (s *fakeStore) Close() error { return nil }

// staticGenerator returns a fixed completion.
type staticGenerator struct {
	reply string
	err   error
}

func (g *staticGenerator) Complete(context.Context, string) (string, error) {
	return g.reply, g.err
}

func (g *staticGenerator) GetModel() string { return "static" }

func testConfig() Config {
	return Config{WriteRetryBackoff: time.Millisecond}
}

func TestExchangeCommitsOnAssistantTurn(t *testing.T) {
	store := newFakeStore()
	conv := NewConversation(store, nil, nil, testConfig(), nil)

	conv.AppendUserTurn(types.Turn{
		Text:    "Looking for Italian food in Lyon",
		Intent:  "restaurant_search",
		Emotion: "happy",
		Slots:   types.SlotSet{"location": "Lyon", "food_type": "italian"},
	})
	require.NoError(t, conv.AppendAssistantTurn(context.Background(), types.Turn{
		Text: "What is your budget?",
	}))

	entries, err := store.GetAll(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Looking for Italian food in Lyon", entries[0].UserText)
	assert.Equal(t, "What is your budget?", entries[0].AssistantText)
	assert.Equal(t, "restaurant_search", entries[0].Intent)
	assert.Equal(t, "Lyon", entries[0].Slots["location"])
	assert.Equal(t, 2, conv.TurnCount())
}

func TestConsecutiveUserTurnsDoNotCommit(t *testing.T) {
	store := newFakeStore()
	conv := NewConversation(store, nil, nil, testConfig(), nil)

	conv.AppendUserTurn(types.Turn{Text: "first"})
	conv.AppendUserTurn(types.Turn{Text: "second"})

	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count, "nothing persists until the assistant replies")

	require.NoError(t, conv.AppendAssistantTurn(context.Background(), types.Turn{Text: "reply"}))
	entries, err := store.GetAll(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "second", entries[0].UserText, "latest user turn wins the exchange")
	assert.Equal(t, 3, conv.TurnCount(), "all turns stay in the log")
}

func TestAssistantTurnWithoutUserDoesNotCommit(t *testing.T) {
	store := newFakeStore()
	conv := NewConversation(store, nil, nil, testConfig(), nil)

	require.NoError(t, conv.AppendAssistantTurn(context.Background(), types.Turn{Text: "hello there"}))
	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestCommitRetriesOnceAndReusesID(t *testing.T) {
	store := newFakeStore()
	store.failPuts = 1
	conv := NewConversation(store, nil, nil, testConfig(), nil)

	conv.AppendUserTurn(types.Turn{Text: "hi"})
	require.NoError(t, conv.AppendAssistantTurn(context.Background(), types.Turn{Text: "hello"}))
	assert.Equal(t, 2, store.putCalls, "first attempt failed, retry succeeded")

	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestFailedCommitStaysStagedWithoutDuplicate(t *testing.T) {
	store := newFakeStore()
	store.failPuts = 2 // both the attempt and its retry fail
	conv := NewConversation(store, nil, nil, testConfig(), nil)

	conv.AppendUserTurn(types.Turn{Text: "hi"})
	err := conv.AppendAssistantTurn(context.Background(), types.Turn{Text: "hello"})
	require.Error(t, err)

	require.NoError(t, conv.CommitPending(context.Background()))
	require.NoError(t, conv.CommitPending(context.Background()), "second retry is a no-op")

	count, cErr := store.Count(context.Background())
	require.NoError(t, cErr)
	assert.Equal(t, 1, count, "retried commit upserts, never duplicates")
}

func TestRecallEmptyStore(t *testing.T) {
	conv := NewConversation(newFakeStore(), nil, &staticGenerator{}, testConfig(), nil)

	result := conv.Recall(context.Background(), "where did I want to eat?")
	assert.False(t, result.Found)
	assert.Equal(t, types.ConfidenceLow, result.Confidence)
}

func TestRecallSummarizesMatches(t *testing.T) {
	store := newFakeStore()
	gen := &staticGenerator{reply: `{"found": true, "confidence": "high", "information": "You wanted Italian food in Lyon."}`}
	conv := NewConversation(store, nil, gen, testConfig(), nil)

	conv.AppendUserTurn(types.Turn{Text: "Looking for Italian food in Lyon"})
	require.NoError(t, conv.AppendAssistantTurn(context.Background(), types.Turn{Text: "What is your budget?"}))

	result := conv.Recall(context.Background(), "what food did I ask about?")
	assert.True(t, result.Found)
	assert.Equal(t, types.ConfidenceHigh, result.Confidence)
	assert.Equal(t, "You wanted Italian food in Lyon.", result.Information)
}

func TestRecallDegradesOnGeneratorFailure(t *testing.T) {
	store := newFakeStore()
	gen := &staticGenerator{err: errors.New("model unavailable")}
	conv := NewConversation(store, nil, gen, testConfig(), nil)

	conv.AppendUserTurn(types.Turn{Text: "hi"})
	require.NoError(t, conv.AppendAssistantTurn(context.Background(), types.Turn{Text: "hello"}))

	result := conv.Recall(context.Background(), "anything")
	assert.False(t, result.Found)
}

func TestClearRemovesEverything(t *testing.T) {
	store := newFakeStore()
	conv := NewConversation(store, nil, nil, testConfig(), nil)

	for _, msg := range []string{"one", "two", "three"} {
		conv.AppendUserTurn(types.Turn{Text: msg})
		require.NoError(t, conv.AppendAssistantTurn(context.Background(), types.Turn{Text: "ack " + msg}))
	}

	require.NoError(t, conv.Clear(context.Background()))

	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Zero(t, conv.TurnCount())
}

func TestClearRetriesResidualEntries(t *testing.T) {
	store := newFakeStore()
	store.failDeletes = 1
	conv := NewConversation(store, nil, nil, testConfig(), nil)

	conv.AppendUserTurn(types.Turn{Text: "hi"})
	require.NoError(t, conv.AppendAssistantTurn(context.Background(), types.Turn{Text: "hello"}))

	require.NoError(t, conv.Clear(context.Background()), "second delete pass clears the residual")
	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestHistoryIsACopy(t *testing.T) {
	conv := NewConversation(newFakeStore(), nil, nil, testConfig(), nil)
	conv.AppendUserTurn(types.Turn{Text: "hi"})

	history := conv.History()
	require.Len(t, history, 1)
	history[0].Text = "mutated"

	assert.Equal(t, "hi", conv.History()[0].Text)
}

func TestStoredEntriesOrderedOldestFirst(t *testing.T) {
	store := newFakeStore()
	conv := NewConversation(store, nil, nil, testConfig(), nil)

	for _, msg := range []string{"a", "b", "c"} {
		conv.AppendUserTurn(types.Turn{Text: msg})
		require.NoError(t, conv.AppendAssistantTurn(context.Background(), types.Turn{Text: "ack"}))
	}

	entries, err := conv.StoredEntries(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 3)

	texts := []string{entries[0].UserText, entries[1].UserText, entries[2].UserText}
	assert.True(t, sort.StringsAreSorted(texts), "fake store preserves insertion order a,b,c")
}
