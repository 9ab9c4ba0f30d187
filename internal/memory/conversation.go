// Package memory implements the conversation memory: an append-only turn log
// plus a durable store of completed exchanges, with similarity-based recall
// over past conversation content.
package memory

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"cicerone/internal/llm"
	"cicerone/internal/storage"
	"cicerone/pkg/types"
)

// Config tunes the conversation memory.
type Config struct {
	// RecallCandidates is how many stored exchanges are retrieved per recall
	// query before summarization. Default: 5.
	RecallCandidates int

	// WriteRetryBackoff is the pause before the single commit retry.
	// Default: 200ms.
	WriteRetryBackoff time.Duration

	// ClearRetries bounds how many times Clear re-lists and re-deletes
	// residual entries. Default: 3.
	ClearRetries int
}

func (c *Config) normalize() {
	if c.RecallCandidates == 0 {
		c.RecallCandidates = 5
	}
	if c.WriteRetryBackoff == 0 {
		c.WriteRetryBackoff = 200 * time.Millisecond
	}
	if c.ClearRetries == 0 {
		c.ClearRetries = 3
	}
}

// Conversation holds the turn history for one session and persists completed
// user+assistant exchanges to the durable store. The turn log is append-only;
// committed entries are immutable.
//
// All methods are safe for concurrent use, though in practice the
// orchestrator serializes calls per session.
type Conversation struct {
	mu sync.Mutex

	store     storage.EntryStore
	embedder  llm.EmbeddingGenerator // optional, nil disables embeddings
	generator llm.TextGenerator      // optional, nil disables recall summarization
	config    Config
	logger    *log.Logger

	turns []types.Turn

	// Exchange buffer: a user turn waits here until the assistant replies,
	// then the pair commits as one entry. The entry keeps its ID across
	// failed commit attempts so a retried Put upserts instead of duplicating.
	pending *types.MemoryEntry
}

// NewConversation creates a conversation memory backed by the given store.
// embedder and generator may be nil; recall then degrades gracefully.
func NewConversation(store storage.EntryStore, embedder llm.EmbeddingGenerator, generator llm.TextGenerator, config Config, logger *log.Logger) *Conversation {
	config.normalize()
	if logger == nil {
		logger = log.Default()
	}
	return &Conversation{
		store:     store,
		embedder:  embedder,
		generator: generator,
		config:    config,
		logger:    logger,
	}
}

// AppendUserTurn records a user utterance and stages it for commit. A second
// user turn before any assistant reply replaces the staged exchange; only
// complete pairs are persisted.
func (c *Conversation) AppendUserTurn(turn types.Turn) {
	c.mu.Lock()
	defer c.mu.Unlock()

	turn.Role = types.RoleUser
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now()
	}
	c.turns = append(c.turns, turn)

	c.pending = &types.MemoryEntry{
		ID:        uuid.NewString(),
		UserText:  turn.Text,
		Emotion:   turn.Emotion,
		Intent:    turn.Intent,
		Slots:     turn.Slots.Clone(),
		CreatedAt: turn.Timestamp,
	}
}

// AppendAssistantTurn records the assistant reply and commits the completed
// exchange to the durable store. If no user turn is staged (a proactive or
// repeated assistant turn) nothing is persisted. A failed write is retried
// once after a short backoff; if the retry also fails the exchange stays
// staged, so the next call can commit it without creating a duplicate.
func (c *Conversation) AppendAssistantTurn(ctx context.Context, turn types.Turn) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	turn.Role = types.RoleAssistant
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now()
	}
	c.turns = append(c.turns, turn)

	if c.pending == nil {
		return nil
	}
	c.pending.AssistantText = turn.Text

	return c.commitLocked(ctx)
}

// CommitPending retries persisting a staged exchange left over from a failed
// commit. It is a no-op when nothing is staged.
func (c *Conversation) CommitPending(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pending == nil || c.pending.AssistantText == "" {
		return nil
	}
	return c.commitLocked(ctx)
}

func (c *Conversation) commitLocked(ctx context.Context) error {
	entry := c.pending
	embedding := c.embedLocked(ctx, entry.Document())

	err := c.store.Put(ctx, entry, embedding)
	if err != nil {
		c.logger.Printf("memory: commit of entry %s failed, retrying: %v", entry.ID, err)
		select {
		case <-time.After(c.config.WriteRetryBackoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		err = c.store.Put(ctx, entry, embedding)
	}
	if err != nil {
		return fmt.Errorf("failed to persist exchange %s: %w", entry.ID, err)
	}

	c.pending = nil
	return nil
}

func (c *Conversation) embedLocked(ctx context.Context, text string) []float64 {
	if c.embedder == nil {
		return nil
	}
	vec, err := c.embedder.Embed(ctx, text)
	if err != nil {
		c.logger.Printf("memory: embedding failed, storing without vector: %v", err)
		return nil
	}
	out := make([]float64, len(vec))
	for i, v := range vec {
		out[i] = float64(v)
	}
	return out
}

// History returns a copy of the turn log, oldest first.
func (c *Conversation) History() []types.Turn {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]types.Turn, len(c.turns))
	copy(out, c.turns)
	return out
}

// TurnCount returns the number of logged turns.
func (c *Conversation) TurnCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.turns)
}

// Recall answers a question about earlier conversation content. It retrieves
// the most similar stored exchanges and asks the text generator to judge
// whether they contain the requested information. An empty store, a retrieval
// failure, or an unusable summarization all yield a not-found result rather
// than an error: recall is best-effort by contract.
func (c *Conversation) Recall(ctx context.Context, query string) types.RecallResult {
	notFound := types.RecallResult{Found: false, Confidence: types.ConfidenceLow}

	count, err := c.store.Count(ctx)
	if err != nil {
		c.logger.Printf("memory: recall count failed: %v", err)
		return notFound
	}
	if count == 0 {
		return notFound
	}

	c.mu.Lock()
	embedding := c.embedLocked(ctx, query)
	c.mu.Unlock()

	matches, err := c.store.SimilarityQuery(ctx, embedding, c.config.RecallCandidates)
	if err != nil {
		c.logger.Printf("memory: recall query failed: %v", err)
		return notFound
	}
	if len(matches) == 0 {
		return notFound
	}

	if c.generator == nil {
		return notFound
	}

	documents := make([]string, 0, len(matches))
	for _, m := range matches {
		documents = append(documents, m.Entry.Document())
	}

	raw, err := c.generator.Complete(ctx, llm.RecallPrompt(query, documents))
	if err != nil {
		c.logger.Printf("memory: recall summarization failed: %v", err)
		return notFound
	}
	return llm.ParseRecall(raw)
}

// Clear deletes every stored entry and resets the turn log. Because entries
// may land between the listing and the delete, it re-lists and re-deletes
// residual IDs a bounded number of times. The in-memory state is reset even
// if some entries could not be removed; the error reports the leftover.
func (c *Conversation) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.turns = nil
	c.pending = nil

	var lastErr error
	for attempt := 0; attempt < c.config.ClearRetries; attempt++ {
		entries, err := c.store.GetAll(ctx)
		if err != nil {
			lastErr = err
			continue
		}
		if len(entries) == 0 {
			return nil
		}

		ids := make([]string, 0, len(entries))
		for _, e := range entries {
			ids = append(ids, e.ID)
		}
		if err := c.store.Delete(ctx, ids); err != nil {
			lastErr = err
		}
	}

	count, err := c.store.Count(ctx)
	if err == nil && count == 0 {
		return nil
	}
	if lastErr != nil {
		return fmt.Errorf("failed to clear memory store: %w", lastErr)
	}
	return fmt.Errorf("memory store still holds %d entries after clear", count)
}

// StoredEntries returns every persisted exchange, oldest first.
func (c *Conversation) StoredEntries(ctx context.Context) ([]*types.MemoryEntry, error) {
	return c.store.GetAll(ctx)
}
