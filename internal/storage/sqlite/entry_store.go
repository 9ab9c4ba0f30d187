// Package sqlite implements the entry store on SQLite via modernc.org/sqlite
// (pure Go, no cgo). It is the default backend for single-host deployments.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"cicerone/internal/storage"
	"cicerone/pkg/types"
)

// Ensure *EntryStore implements storage.EntryStore at compile time.
var _ storage.EntryStore = (*EntryStore)(nil)

// similarityMaxCandidates caps the number of embeddings loaded into memory
// during a similarity query. Candidates are selected newest first, so recent
// exchanges are always considered. Conversation logs stay far below this cap;
// larger corpora should use the PostgreSQL backend with pgvector instead.
const similarityMaxCandidates = 10_000

// EntryStore implements storage.EntryStore using SQLite.
type EntryStore struct {
	db *sql.DB
}

// NewEntryStore opens (or creates) a SQLite entry store at dsn. Use ":memory:"
// for tests.
func NewEntryStore(dsn string) (*EntryStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to open database: %w", err)
	}

	// SQLite only supports one concurrent writer. A single open connection
	// serialises writes and avoids SQLITE_BUSY errors under concurrent load;
	// WAL mode lets readers proceed without blocking the writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to set busy timeout: %w", err)
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to create schema: %w", err)
	}

	return &EntryStore{db: db}, nil
}

// Put persists an entry and its optional embedding as one atomic row write.
// Re-putting an existing ID is an upsert, which keeps commit retries
// idempotent.
func (s *EntryStore) Put(ctx context.Context, entry *types.MemoryEntry, embedding []float64) error {
	if entry == nil {
		return storage.ErrInvalidInput
	}
	if entry.ID == "" {
		return fmt.Errorf("%w: entry ID is required", storage.ErrInvalidInput)
	}
	if entry.UserText == "" || entry.AssistantText == "" {
		return fmt.Errorf("%w: both halves of the exchange are required", storage.ErrInvalidInput)
	}

	slotsJSON, err := json.Marshal(entry.Slots)
	if err != nil {
		return fmt.Errorf("sqlite: failed to marshal slots: %w", err)
	}

	var blob []byte
	dimension := 0
	if len(embedding) > 0 {
		blob = serializeEmbedding(embedding)
		dimension = len(embedding)
	}

	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO entries (id, user_text, assistant_text, emotion, intent, slots, document, embedding, dimension, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_text      = excluded.user_text,
			assistant_text = excluded.assistant_text,
			emotion        = excluded.emotion,
			intent         = excluded.intent,
			slots          = excluded.slots,
			document       = excluded.document,
			embedding      = excluded.embedding,
			dimension      = excluded.dimension`,
		entry.ID, entry.UserText, entry.AssistantText, entry.Emotion, entry.Intent,
		string(slotsJSON), entry.Document(), blob, dimension, createdAt)
	if err != nil {
		return fmt.Errorf("sqlite: failed to store entry: %w", err)
	}
	return nil
}

// Get retrieves an entry by ID.
func (s *EntryStore) Get(ctx context.Context, id string) (*types.MemoryEntry, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: entry ID is required", storage.ErrInvalidInput)
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_text, assistant_text, emotion, intent, slots, created_at
		FROM entries WHERE id = ?`, id)

	entry, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to get entry: %w", err)
	}
	return entry, nil
}

// GetAll returns every stored entry, oldest first.
func (s *EntryStore) GetAll(ctx context.Context) ([]*types.MemoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_text, assistant_text, emotion, intent, slots, created_at
		FROM entries ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to list entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []*types.MemoryEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: error iterating entries: %w", err)
	}
	return entries, nil
}

// Delete removes the given IDs in one statement. Missing IDs are ignored.
func (s *EntryStore) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	_, err := s.db.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM entries WHERE id IN (%s)", placeholders), args...)
	if err != nil {
		return fmt.Errorf("sqlite: failed to delete entries: %w", err)
	}
	return nil
}

// SimilarityQuery loads candidate embeddings into memory and ranks them by
// cosine similarity. An empty query vector degrades to a recency scan.
func (s *EntryStore) SimilarityQuery(ctx context.Context, embedding []float64, limit int) ([]storage.SimilarityMatch, error) {
	if limit <= 0 {
		limit = 5
	}

	if len(embedding) == 0 {
		return s.recentMatches(ctx, limit)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, embedding, dimension
		FROM entries
		WHERE embedding IS NOT NULL AND dimension > 0
		ORDER BY created_at DESC
		LIMIT ?`, similarityMaxCandidates)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to load embeddings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	type scored struct {
		id    string
		score float64
	}
	var candidates []scored

	for rows.Next() {
		var id string
		var blob []byte
		var dim int
		if err := rows.Scan(&id, &blob, &dim); err != nil {
			continue
		}
		vec, err := deserializeEmbedding(blob, dim)
		if err != nil {
			continue
		}
		candidates = append(candidates, scored{id, cosineSimilarity(embedding, vec)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: error iterating embeddings: %w", err)
	}

	if len(candidates) == 0 {
		// Entries written without embeddings are still recallable.
		return s.recentMatches(ctx, limit)
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	matches := make([]storage.SimilarityMatch, 0, len(candidates))
	for _, c := range candidates {
		entry, err := s.Get(ctx, c.id)
		if err != nil {
			continue
		}
		matches = append(matches, storage.SimilarityMatch{Entry: entry, Score: c.score})
	}
	return matches, nil
}

// Count returns the number of stored entries.
func (s *EntryStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM entries").Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: failed to count entries: %w", err)
	}
	return n, nil
}

// Close closes the underlying database.
func (s *EntryStore) Close() error {
	return s.db.Close()
}

// recentMatches returns the newest entries with zero scores.
func (s *EntryStore) recentMatches(ctx context.Context, limit int) ([]storage.SimilarityMatch, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_text, assistant_text, emotion, intent, slots, created_at
		FROM entries ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to list recent entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var matches []storage.SimilarityMatch
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan entry: %w", err)
		}
		matches = append(matches, storage.SimilarityMatch{Entry: entry})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: error iterating entries: %w", err)
	}
	return matches, nil
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row rowScanner) (*types.MemoryEntry, error) {
	var entry types.MemoryEntry
	var slotsJSON string
	if err := row.Scan(&entry.ID, &entry.UserText, &entry.AssistantText,
		&entry.Emotion, &entry.Intent, &slotsJSON, &entry.CreatedAt); err != nil {
		return nil, err
	}
	if slotsJSON != "" && slotsJSON != "null" {
		if err := json.Unmarshal([]byte(slotsJSON), &entry.Slots); err != nil {
			return nil, fmt.Errorf("failed to unmarshal slots: %w", err)
		}
	}
	return &entry, nil
}
