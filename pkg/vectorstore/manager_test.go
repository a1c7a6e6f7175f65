package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"testing"

	"docuchat-be/pkg/embedding"
	"docuchat-be/pkg/events"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

// fakeEmbedder maps each distinct text to a deterministic unit vector so
// ranking is reproducible: identical texts get identical vectors.
type fakeEmbedder struct{}

func (f *fakeEmbedder) Generate(text string, taskType string) (*embedding.EmbeddingResponse, error) {
	// Simple character histogram, normalized.
	vec := make([]float32, 8)
	for i, r := range text {
		vec[(i+int(r))%8] += 1
	}
	var mag float64
	for _, v := range vec {
		mag += float64(v) * float64(v)
	}
	mag = math.Sqrt(mag)
	if mag > 0 {
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / mag)
		}
	}
	return &embedding.EmbeddingResponse{
		Embedding: embedding.EmbeddingResponseEmbedding{Values: vec},
	}, nil
}

type storeCall struct {
	op             string // "insert", "delete"
	conversationId uuid.UUID
	size           int
}

// fakeStore is an in-memory CollectionStore that records every call and can
// be told to fail the Nth insert or any delete for a given conversation.
type fakeStore struct {
	mu            sync.Mutex
	calls         []storeCall
	docs          map[uuid.UUID][]Document
	failAtInsert  int // 1-based insert call ordinal to fail at, 0 = never
	failDeleteFor map[uuid.UUID]bool
	insertCount   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		docs:          make(map[uuid.UUID][]Document),
		failDeleteFor: make(map[uuid.UUID]bool),
	}
}

func (s *fakeStore) Insert(ctx context.Context, conversationId uuid.UUID, docs []Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insertCount++
	s.calls = append(s.calls, storeCall{op: "insert", conversationId: conversationId, size: len(docs)})
	if s.failAtInsert > 0 && s.insertCount == s.failAtInsert {
		return errors.New("insert rejected")
	}
	s.docs[conversationId] = append(s.docs[conversationId], docs...)
	return nil
}

func (s *fakeStore) Delete(ctx context.Context, conversationId uuid.UUID, ids []uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, storeCall{op: "delete", conversationId: conversationId, size: len(ids)})
	if s.failDeleteFor[conversationId] {
		return errors.New("delete rejected")
	}
	keep := s.docs[conversationId][:0]
	drop := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	for _, d := range s.docs[conversationId] {
		if !drop[d.Id] {
			keep = append(keep, d)
		}
	}
	s.docs[conversationId] = keep
	return nil
}

func (s *fakeStore) Search(ctx context.Context, conversationId uuid.UUID, vector []float32, k int) ([]SearchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, storeCall{op: "search", conversationId: conversationId, size: k})

	var results []SearchResult
	for _, d := range s.docs[conversationId] {
		var dot float64
		for i := range vector {
			if i < len(d.Embedding) {
				dot += float64(vector[i]) * float64(d.Embedding[i])
			}
		}
		results = append(results, SearchResult{Content: d.Content, Similarity: dot, ChunkIndex: d.ChunkIndex})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Similarity > results[j].Similarity })
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func (s *fakeStore) insertCalls() []storeCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []storeCall
	for _, c := range s.calls {
		if c.op == "insert" {
			out = append(out, c)
		}
	}
	return out
}

type nopLogger struct{}

func (nopLogger) Debug(module, message string, details map[string]interface{}) {}
func (nopLogger) Info(module, message string, details map[string]interface{})  {}
func (nopLogger) Warn(module, message string, details map[string]interface{})  {}
func (nopLogger) Error(module, message string, details map[string]interface{}) {}
func (nopLogger) Sync() error                                                  { return nil }

// recordingNotifier captures progress messages in emission order.
type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNotifier) Notify(ctx context.Context, e events.ProgressEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, e.Message)
	return nil
}

func newManager(store CollectionStore, batchSize int) *Manager {
	return NewManager(store, &fakeEmbedder{}, nil, nopLogger{}, batchSize)
}

func makeChunks(n int) ([]string, []uuid.UUID) {
	chunks := make([]string, n)
	ids := make([]uuid.UUID, n)
	for i := 0; i < n; i++ {
		chunks[i] = fmt.Sprintf("chunk number %d content", i)
		ids[i] = uuid.New()
	}
	return chunks, ids
}

func TestCreateCollectionLifecycle(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	m := newManager(store, 20)

	convId := uuid.New()
	userId := uuid.New()

	assert.False(t, m.IsActiveCollectionExists(convId))

	err := m.CreateCollection(ctx, convId, userId)
	assert.NoError(t, err)
	assert.True(t, m.IsActiveCollectionExists(convId))

	// Second create for an active handle is a logic error.
	err = m.CreateCollection(ctx, convId, userId)
	assert.ErrorIs(t, err, ErrCollectionExists)

	chunks, ids := makeChunks(5)
	assert.NoError(t, m.AddDocuments(ctx, convId, chunks, userId, ids))

	assert.NoError(t, m.DeleteCollections(ctx, []uuid.UUID{convId}))
	assert.False(t, m.IsActiveCollectionExists(convId))
}

func TestAddDocumentsBatching(t *testing.T) {
	tests := []struct {
		name        string
		chunks      int
		wantBatches int
		wantSizes   []int
	}{
		{name: "one partial batch", chunks: 5, wantBatches: 1, wantSizes: []int{5}},
		{name: "exactly one batch", chunks: 20, wantBatches: 1, wantSizes: []int{20}},
		{name: "two uneven batches", chunks: 21, wantBatches: 2, wantSizes: []int{20, 1}},
		{name: "three batches", chunks: 45, wantBatches: 3, wantSizes: []int{20, 20, 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store := newFakeStore()
			m := newManager(store, 20)

			convId := uuid.New()
			userId := uuid.New()
			assert.NoError(t, m.CreateCollection(ctx, convId, userId))

			chunks, ids := makeChunks(tt.chunks)
			assert.NoError(t, m.AddDocuments(ctx, convId, chunks, userId, ids))

			inserts := store.insertCalls()
			assert.Len(t, inserts, tt.wantBatches)
			for i, call := range inserts {
				assert.Equal(t, tt.wantSizes[i], call.size, "batch %d size", i+1)
				assert.LessOrEqual(t, call.size, 20)
			}
		})
	}
}

func TestAddDocumentsBatchFailureStops(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.failAtInsert = 2
	m := newManager(store, 20)

	convId := uuid.New()
	userId := uuid.New()
	assert.NoError(t, m.CreateCollection(ctx, convId, userId))

	chunks, ids := makeChunks(45) // 3 batches

	err := m.AddDocuments(ctx, convId, chunks, userId, ids)
	assert.Error(t, err)

	var storeErr *StoreOpError
	assert.ErrorAs(t, err, &storeErr)
	assert.Equal(t, "insert", storeErr.Op)

	// Batch 2 failed, so exactly 2 insert calls were made and batch 3 was
	// never attempted; batch 1 stays committed.
	inserts := store.insertCalls()
	assert.Len(t, inserts, 2)
	assert.Len(t, store.docs[convId], 20)

	// Teardown still removes the committed batch.
	assert.NoError(t, m.DeleteCollections(ctx, []uuid.UUID{convId}))
	assert.Empty(t, store.docs[convId])
}

func TestAddDocumentsBatchProgress(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	notifier := &recordingNotifier{}
	m := NewManager(store, &fakeEmbedder{}, notifier, nopLogger{}, 20)

	convId := uuid.New()
	userId := uuid.New()
	assert.NoError(t, m.CreateCollection(ctx, convId, userId))

	chunks, ids := makeChunks(45) // 3 batches
	assert.NoError(t, m.AddDocuments(ctx, convId, chunks, userId, ids))

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	// Two create-time lines, then one line per batch, in order.
	assert.Contains(t, notifier.messages, "Processing batch 1 of 3...")
	assert.Contains(t, notifier.messages, "Processing batch 2 of 3...")
	assert.Contains(t, notifier.messages, "Processing batch 3 of 3...")
	i1 := indexOf(notifier.messages, "Processing batch 1 of 3...")
	i2 := indexOf(notifier.messages, "Processing batch 2 of 3...")
	i3 := indexOf(notifier.messages, "Processing batch 3 of 3...")
	assert.Less(t, i1, i2)
	assert.Less(t, i2, i3)
}

func indexOf(xs []string, want string) int {
	for i, x := range xs {
		if x == want {
			return i
		}
	}
	return -1
}

func TestAddDocumentsValidation(t *testing.T) {
	ctx := context.Background()
	m := newManager(newFakeStore(), 20)

	convId := uuid.New()
	userId := uuid.New()
	assert.NoError(t, m.CreateCollection(ctx, convId, userId))

	chunks, _ := makeChunks(3)
	_, ids := makeChunks(2)

	var valErr *ValidationError
	err := m.AddDocuments(ctx, convId, chunks, userId, ids)
	assert.ErrorAs(t, err, &valErr)

	err = m.AddDocuments(ctx, convId, nil, userId, nil)
	assert.ErrorAs(t, err, &valErr)
}

func TestAddDocumentsRequiresCollection(t *testing.T) {
	ctx := context.Background()
	m := newManager(newFakeStore(), 20)

	chunks, ids := makeChunks(3)
	err := m.AddDocuments(ctx, uuid.New(), chunks, uuid.New(), ids)
	assert.ErrorIs(t, err, ErrCollectionNotFound)
}

func TestRepeatIngestionMergesIds(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	m := newManager(store, 20)

	convId := uuid.New()
	userId := uuid.New()
	assert.NoError(t, m.CreateCollection(ctx, convId, userId))

	first, firstIds := makeChunks(5)
	second, secondIds := makeChunks(7)
	assert.NoError(t, m.AddDocuments(ctx, convId, first, userId, firstIds))
	assert.NoError(t, m.AddDocuments(ctx, convId, second, userId, secondIds))
	assert.Len(t, store.docs[convId], 12)

	// Teardown must remove vectors from both ingestions, not just the last.
	assert.NoError(t, m.DeleteCollections(ctx, []uuid.UUID{convId}))
	assert.Empty(t, store.docs[convId])
}

func TestQueryCollectionRanking(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	m := newManager(store, 20)

	convId := uuid.New()
	userId := uuid.New()
	assert.NoError(t, m.CreateCollection(ctx, convId, userId))

	chunks := []string{
		"the quick brown fox",
		"an entirely different sentence about databases",
		"yet another passage on cooking pasta",
	}
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	assert.NoError(t, m.AddDocuments(ctx, convId, chunks, userId, ids))

	// The fake embedder gives identical texts identical vectors, so querying
	// with an ingested chunk's text must rank that chunk first.
	results, err := m.QueryCollection(ctx, convId, "the quick brown fox", 2)
	assert.NoError(t, err)
	assert.LessOrEqual(t, len(results), 2)
	assert.Equal(t, "the quick brown fox", results[0].Content)

	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Similarity, results[i].Similarity)
	}
}

func TestQueryCollectionRequiresCollection(t *testing.T) {
	ctx := context.Background()
	m := newManager(newFakeStore(), 20)

	_, err := m.QueryCollection(ctx, uuid.New(), "anything", 5)
	assert.ErrorIs(t, err, ErrCollectionNotFound)
}

func TestDeleteCollectionsIsolation(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	m := newManager(store, 20)

	userId := uuid.New()
	healthy := uuid.New()
	broken := uuid.New()
	neverIngested := uuid.New()
	unknown := uuid.New()

	for _, id := range []uuid.UUID{healthy, broken, neverIngested} {
		assert.NoError(t, m.CreateCollection(ctx, id, userId))
	}
	chunks, ids := makeChunks(3)
	assert.NoError(t, m.AddDocuments(ctx, healthy, chunks, userId, ids))
	chunks2, ids2 := makeChunks(3)
	assert.NoError(t, m.AddDocuments(ctx, broken, chunks2, userId, ids2))

	store.failDeleteFor[broken] = true

	err := m.DeleteCollections(ctx, []uuid.UUID{healthy, broken, neverIngested, unknown})
	assert.Error(t, err)

	var storeErr *StoreOpError
	assert.ErrorAs(t, err, &storeErr)
	assert.Equal(t, "delete", storeErr.Op)

	// The healthy conversation was cleaned despite its sibling failing.
	assert.False(t, m.IsActiveCollectionExists(healthy))
	assert.Empty(t, store.docs[healthy])

	// The failed one keeps its handle for a later retry; the never-ingested
	// one stored nothing, so it is simply dropped.
	assert.True(t, m.IsActiveCollectionExists(broken))
	assert.False(t, m.IsActiveCollectionExists(neverIngested))
}

func TestDeleteNeverIngestedCollectionIsClean(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	m := newManager(store, 20)

	convId := uuid.New()
	assert.NoError(t, m.CreateCollection(ctx, convId, uuid.New()))

	// Nothing was ever ingested: teardown must drop the handle without
	// touching the store, and the id must be reusable afterwards.
	assert.NoError(t, m.DeleteCollections(ctx, []uuid.UUID{convId}))
	assert.False(t, m.IsActiveCollectionExists(convId))
	for _, call := range store.calls {
		assert.NotEqual(t, "delete", call.op)
	}

	assert.NoError(t, m.CreateCollection(ctx, convId, uuid.New()))
}

func TestDeleteCollectionsMissingHandleIsClean(t *testing.T) {
	ctx := context.Background()
	m := newManager(newFakeStore(), 20)

	assert.NoError(t, m.DeleteCollections(ctx, []uuid.UUID{uuid.New(), uuid.New()}))
}

func TestConcurrentAddAndDeleteDoNotInterleave(t *testing.T) {
	ctx := context.Background()

	for round := 0; round < 20; round++ {
		store := newFakeStore()
		m := newManager(store, 20)

		convId := uuid.New()
		userId := uuid.New()
		assert.NoError(t, m.CreateCollection(ctx, convId, userId))

		seed, seedIds := makeChunks(3)
		assert.NoError(t, m.AddDocuments(ctx, convId, seed, userId, seedIds))

		chunks, ids := makeChunks(45) // 3 batches

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			// CollectionNotFound is fine if the delete won the race.
			_ = m.AddDocuments(ctx, convId, chunks, userId, ids)
		}()
		go func() {
			defer wg.Done()
			_ = m.DeleteCollections(ctx, []uuid.UUID{convId})
		}()
		wg.Wait()

		// The store must never observe an insert for this conversation after
		// its delete has started.
		store.mu.Lock()
		deleteSeen := false
		for _, call := range store.calls {
			if call.conversationId != convId {
				continue
			}
			if call.op == "delete" {
				deleteSeen = true
			}
			if call.op == "insert" && deleteSeen {
				t.Fatalf("round %d: insert observed after delete started", round)
			}
		}
		store.mu.Unlock()
	}
}

// Exercises the registry's lookup path concurrently with teardown; run with
// -race to verify the tombstone write is properly synchronized.
func TestLookupDuringDeleteIsSafe(t *testing.T) {
	ctx := context.Background()

	for round := 0; round < 50; round++ {
		store := newFakeStore()
		m := newManager(store, 20)

		convId := uuid.New()
		userId := uuid.New()
		assert.NoError(t, m.CreateCollection(ctx, convId, userId))
		chunks, ids := makeChunks(3)
		assert.NoError(t, m.AddDocuments(ctx, convId, chunks, userId, ids))

		var wg sync.WaitGroup
		wg.Add(2)
		done := make(chan struct{})
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
					m.IsActiveCollectionExists(convId)
				}
			}
		}()
		go func() {
			defer wg.Done()
			defer close(done)
			_ = m.DeleteCollections(ctx, []uuid.UUID{convId})
		}()
		wg.Wait()

		assert.False(t, m.IsActiveCollectionExists(convId))
	}
}

func TestDifferentConversationsDoNotBlock(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	m := newManager(store, 20)

	userId := uuid.New()
	convA := uuid.New()
	convB := uuid.New()
	assert.NoError(t, m.CreateCollection(ctx, convA, userId))
	assert.NoError(t, m.CreateCollection(ctx, convB, userId))

	chunksA, idsA := makeChunks(25)
	chunksB, idsB := makeChunks(25)

	var wg sync.WaitGroup
	wg.Add(2)
	var errA, errB error
	go func() {
		defer wg.Done()
		errA = m.AddDocuments(ctx, convA, chunksA, userId, idsA)
	}()
	go func() {
		defer wg.Done()
		errB = m.AddDocuments(ctx, convB, chunksB, userId, idsB)
	}()
	wg.Wait()

	assert.NoError(t, errA)
	assert.NoError(t, errB)
	assert.Len(t, store.docs[convA], 25)
	assert.Len(t, store.docs[convB], 25)
}
