package sqlite

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cicerone/internal/storage"
	"cicerone/pkg/types"
)

func newTestStore(t *testing.T) *EntryStore {
	t.Helper()
	store, err := NewEntryStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testEntry(id string) *types.MemoryEntry {
	return &types.MemoryEntry{
		ID:            id,
		UserText:      "an Italian restaurant in Lyon",
		AssistantText: "What is your budget?",
		Emotion:       "neutral",
		Intent:        "restaurant_search",
		Slots:         types.SlotSet{"location": "Lyon", "food_type": "Italian"},
		CreatedAt:     time.Now().UTC(),
	}
}

func TestPutAndGetRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	entry := testEntry("e1")
	require.NoError(t, store.Put(ctx, entry, []float64{0.1, 0.2, 0.3}))

	got, err := store.Get(ctx, "e1")
	require.NoError(t, err)

	assert.Equal(t, entry.UserText, got.UserText)
	assert.Equal(t, entry.AssistantText, got.AssistantText)
	assert.Equal(t, entry.Intent, got.Intent)
	v, _ := got.Slots.Get("location")
	assert.Equal(t, "Lyon", v)
}

func TestPutUpsertIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	entry := testEntry("e1")
	require.NoError(t, store.Put(ctx, entry, nil))
	require.NoError(t, store.Put(ctx, entry, nil), "re-put of the same ID must not fail")

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "upsert must not duplicate entries")
}

func TestPutValidation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	assert.ErrorIs(t, store.Put(ctx, nil, nil), storage.ErrInvalidInput)
	assert.ErrorIs(t, store.Put(ctx, &types.MemoryEntry{UserText: "hi", AssistantText: "yo"}, nil), storage.ErrInvalidInput)
	assert.ErrorIs(t, store.Put(ctx, &types.MemoryEntry{ID: "x", UserText: "hi"}, nil), storage.ErrInvalidInput)
}

func TestGetNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestGetAllOrderedOldestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Now().UTC().Add(-time.Hour)

	for i := 0; i < 3; i++ {
		e := testEntry(fmt.Sprintf("e%d", i))
		e.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, store.Put(ctx, e, nil))
	}

	entries, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "e0", entries[0].ID)
	assert.Equal(t, "e2", entries[2].ID)
}

func TestDeleteRemovesOnlyGivenIDs(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, testEntry("e1"), nil))
	require.NoError(t, store.Put(ctx, testEntry("e2"), nil))

	require.NoError(t, store.Delete(ctx, []string{"e1", "missing"}))

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = store.Get(ctx, "e2")
	assert.NoError(t, err)
}

func TestSimilarityQueryRanksByCosine(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	near := testEntry("near")
	far := testEntry("far")
	require.NoError(t, store.Put(ctx, near, []float64{1, 0, 0}))
	require.NoError(t, store.Put(ctx, far, []float64{0, 1, 0}))

	matches, err := store.SimilarityQuery(ctx, []float64{0.9, 0.1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)

	assert.Equal(t, "near", matches[0].Entry.ID)
	assert.Greater(t, matches[0].Score, matches[1].Score)
}

func TestSimilarityQueryWithoutEmbeddingFallsBackToRecency(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Now().UTC()

	older := testEntry("older")
	older.CreatedAt = base.Add(-time.Hour)
	newer := testEntry("newer")
	newer.CreatedAt = base
	require.NoError(t, store.Put(ctx, older, nil))
	require.NoError(t, store.Put(ctx, newer, nil))

	matches, err := store.SimilarityQuery(ctx, nil, 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "newer", matches[0].Entry.ID)
	assert.Zero(t, matches[0].Score)
}

func TestEmbeddingRoundTrip(t *testing.T) {
	vec := []float64{0.25, -1.5, 3.125}
	blob := serializeEmbedding(vec)

	got, err := deserializeEmbedding(blob, 3)
	require.NoError(t, err)
	assert.Equal(t, vec, got)

	_, err = deserializeEmbedding(blob, 4)
	assert.Error(t, err)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float64{1, 2}, []float64{2, 4}), 1e-9)
	assert.InDelta(t, 0.0, cosineSimilarity([]float64{1, 0}, []float64{0, 1}), 1e-9)
	assert.Zero(t, cosineSimilarity([]float64{1}, []float64{1, 2}), "dimension mismatch")
	assert.Zero(t, cosineSimilarity([]float64{0, 0}, []float64{1, 2}), "zero vector")
}
