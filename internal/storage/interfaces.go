// Package storage defines the durable store behind the conversation memory.
//
// The store holds immutable MemoryEntry records — one per completed
// user+assistant exchange — and answers similarity queries over their
// document text. Backends implement EntryStore independently; the
// conversation memory treats them as a black-box key→record store.
package storage

import (
	"context"

	"cicerone/pkg/types"
)

// EntryStore is the contract every storage backend satisfies.
//
// Entries are written atomically as a single (document, metadata, embedding)
// unit: a concurrent reader never observes a partially-written entry. The
// store is the only resource shared between sessions, so implementations must
// support concurrent Put and SimilarityQuery calls.
type EntryStore interface {
	// Put persists an entry with its optional embedding vector (nil when no
	// embedding client is configured). Writing an ID that already exists is
	// an upsert; the conversation memory relies on this for idempotent
	// commit retries.
	Put(ctx context.Context, entry *types.MemoryEntry, embedding []float64) error

	// Get retrieves an entry by ID. Returns ErrNotFound when absent.
	Get(ctx context.Context, id string) (*types.MemoryEntry, error)

	// GetAll returns every stored entry, oldest first.
	GetAll(ctx context.Context) ([]*types.MemoryEntry, error)

	// Delete removes the given IDs. Missing IDs are ignored; partial failures
	// return an error so the caller can retry the remainder.
	Delete(ctx context.Context, ids []string) error

	// SimilarityQuery ranks stored entries against the query embedding by
	// cosine similarity, best first, capped at limit. A nil or empty query
	// vector degrades to a recency-ordered scan so recall still works when
	// embeddings are unavailable.
	SimilarityQuery(ctx context.Context, embedding []float64, limit int) ([]SimilarityMatch, error)

	// Count returns the number of stored entries.
	Count(ctx context.Context) (int, error)

	// Close releases any resources held by the store.
	Close() error
}

// SimilarityMatch pairs an entry with its similarity score (0 when the query
// degraded to a recency scan).
type SimilarityMatch struct {
	Entry *types.MemoryEntry
	Score float64
}
