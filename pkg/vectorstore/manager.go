package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"docuchat-be/internal/pkg/logger"
	"docuchat-be/pkg/embedding"
	"docuchat-be/pkg/events"

	"github.com/google/uuid"
)

const (
	// DefaultBatchSize bounds how many chunks go to the store in one insert.
	DefaultBatchSize = 20

	taskTypeDocument = "RETRIEVAL_DOCUMENT"
	taskTypeQuery    = "RETRIEVAL_QUERY"

	logModule = "vectorstore"
)

// collection is one active index handle. Its mutex serializes add, query and
// delete for the same conversation; the deleted flag lets a handle die while
// another goroutine still holds a pointer to it.
type collection struct {
	mu       sync.Mutex
	userId   uuid.UUID
	chunkIds []uuid.UUID
	deleted  bool
}

// Manager owns the conversation-to-index-handle registry and the lifecycle of
// every per-conversation vector collection: creation, batched ingestion,
// similarity query and teardown.
//
// Locking: the registry map is guarded by an RWMutex; each handle carries its
// own mutex so operations on different conversations never block each other,
// while add/query/delete on the same conversation run strictly one at a time.
type Manager struct {
	store     CollectionStore
	embedder  embedding.EmbeddingProvider
	notifier  events.ProgressNotifier
	log       logger.ILogger
	batchSize int

	mu          sync.RWMutex
	collections map[uuid.UUID]*collection
}

func NewManager(store CollectionStore, embedder embedding.EmbeddingProvider, notifier events.ProgressNotifier, log logger.ILogger, batchSize int) *Manager {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if notifier == nil {
		notifier = events.NopNotifier{}
	}
	return &Manager{
		store:       store,
		embedder:    embedder,
		notifier:    notifier,
		log:         log,
		batchSize:   batchSize,
		collections: make(map[uuid.UUID]*collection),
	}
}

// notify is best-effort: a slow or broken delivery channel must never fail
// an index operation.
func (m *Manager) notify(ctx context.Context, userId, conversationId uuid.UUID, kind events.ProgressKind, message string) {
	err := m.notifier.Notify(ctx, events.ProgressEvent{
		UserId:         userId,
		ConversationId: conversationId,
		Kind:           kind,
		Message:        message,
	})
	if err != nil {
		m.log.Warn(logModule, "progress notification dropped", map[string]interface{}{
			"conversation_id": conversationId.String(),
			"error":           err.Error(),
		})
	}
}

// CreateCollection registers an index handle for the conversation. Calling it
// again while the handle is still active is a logic error.
func (m *Manager) CreateCollection(ctx context.Context, conversationId, userId uuid.UUID) error {
	m.notify(ctx, userId, conversationId, events.ProgressIngestLog, "Creating a space for your document...")

	m.mu.Lock()
	if c, ok := m.collections[conversationId]; ok && !c.deleted {
		m.mu.Unlock()
		return fmt.Errorf("conversation %s: %w", conversationId, ErrCollectionExists)
	}
	m.collections[conversationId] = &collection{userId: userId}
	m.mu.Unlock()

	m.log.Info(logModule, "collection created", map[string]interface{}{
		"conversation_id": conversationId.String(),
		"user_id":         userId.String(),
	})
	m.notify(ctx, userId, conversationId, events.ProgressIngestLog, "Space created.")
	return nil
}

// lookup returns the live handle for a conversation, or nil.
func (m *Manager) lookup(conversationId uuid.UUID) *collection {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.collections[conversationId]
	if !ok || c.deleted {
		return nil
	}
	return c
}

// AddDocuments embeds and stores chunks in fixed-size sequential batches,
// emitting a progress line per batch. Chunks and ids are parallel sequences.
// The first failing batch aborts the call; earlier batches stay committed and
// their ids stay tracked, so teardown can still remove them. On repeat
// ingestion the new ids are appended to the tracked list.
func (m *Manager) AddDocuments(ctx context.Context, conversationId uuid.UUID, chunks []string, userId uuid.UUID, ids []uuid.UUID) error {
	if len(chunks) != len(ids) {
		return &ValidationError{Reason: fmt.Sprintf("chunk/id length mismatch: %d chunks, %d ids", len(chunks), len(ids))}
	}
	if len(chunks) == 0 {
		return &ValidationError{Reason: "no chunks to add"}
	}

	c := m.lookup(conversationId)
	if c == nil {
		return fmt.Errorf("conversation %s: %w", conversationId, ErrCollectionNotFound)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.deleted {
		return fmt.Errorf("conversation %s: %w", conversationId, ErrCollectionNotFound)
	}

	total := len(chunks)
	numBatches := (total + m.batchSize - 1) / m.batchSize

	for b := 0; b < numBatches; b++ {
		start := b * m.batchSize
		end := start + m.batchSize
		if end > total {
			end = total
		}

		m.notify(ctx, userId, conversationId, events.ProgressIngestLog,
			fmt.Sprintf("Processing batch %d of %d...", b+1, numBatches))

		docs := make([]Document, 0, end-start)
		for i := start; i < end; i++ {
			res, err := m.embedder.Generate(chunks[i], taskTypeDocument)
			if err != nil {
				return &StoreOpError{Op: "embed", ConversationId: conversationId, Err: err}
			}
			docs = append(docs, Document{
				Id:         ids[i],
				Content:    chunks[i],
				Embedding:  res.Embedding.Values,
				ChunkIndex: i,
			})
		}

		if err := m.store.Insert(ctx, conversationId, docs); err != nil {
			m.log.Error(logModule, "batch insert failed", map[string]interface{}{
				"conversation_id": conversationId.String(),
				"batch":           b + 1,
				"batches":         numBatches,
				"error":           err.Error(),
			})
			return &StoreOpError{Op: "insert", ConversationId: conversationId, Err: err}
		}

		// Track committed ids batch by batch so a later failure never
		// leaves stored vectors that teardown cannot find.
		c.chunkIds = append(c.chunkIds, ids[start:end]...)
	}

	m.log.Info(logModule, "documents ingested", map[string]interface{}{
		"conversation_id": conversationId.String(),
		"chunks":          total,
		"batches":         numBatches,
	})
	return nil
}

// QueryCollection embeds the query text and returns up to k chunks ordered by
// descending similarity.
func (m *Manager) QueryCollection(ctx context.Context, conversationId uuid.UUID, query string, k int) ([]SearchResult, error) {
	c := m.lookup(conversationId)
	if c == nil {
		return nil, fmt.Errorf("conversation %s: %w", conversationId, ErrCollectionNotFound)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.deleted {
		return nil, fmt.Errorf("conversation %s: %w", conversationId, ErrCollectionNotFound)
	}

	res, err := m.embedder.Generate(query, taskTypeQuery)
	if err != nil {
		return nil, &StoreOpError{Op: "embed", ConversationId: conversationId, Err: err}
	}

	results, err := m.store.Search(ctx, conversationId, res.Embedding.Values, k)
	if err != nil {
		return nil, &StoreOpError{Op: "search", ConversationId: conversationId, Err: err}
	}
	return results, nil
}

// IsActiveCollectionExists reports whether the conversation has a live index.
func (m *Manager) IsActiveCollectionExists(conversationId uuid.UUID) bool {
	return m.lookup(conversationId) != nil
}

// DeleteCollections tears down every listed conversation that still has an
// active handle. Each conversation's cleanup is independent: one failure is
// recorded and the rest proceed. Ids with no handle are already clean. The
// returned error joins all per-conversation failures, for the operator log
// rather than for the (usually gone) user.
func (m *Manager) DeleteCollections(ctx context.Context, conversationIds []uuid.UUID) error {
	var failures []error

	for _, id := range conversationIds {
		c := m.lookup(id)
		if c == nil {
			continue
		}

		if err := m.deleteOne(ctx, id, c); err != nil {
			m.log.Error(logModule, "collection teardown failed", map[string]interface{}{
				"conversation_id": id.String(),
				"error":           err.Error(),
			})
			failures = append(failures, err)
		}
	}

	return errors.Join(failures...)
}

func (m *Manager) deleteOne(ctx context.Context, conversationId uuid.UUID, c *collection) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.deleted {
		return nil
	}

	// Ids are recorded batch by batch as inserts commit, so an empty list
	// means nothing ever reached the store: the handle is already clean.
	if len(c.chunkIds) > 0 {
		if err := m.store.Delete(ctx, conversationId, c.chunkIds); err != nil {
			return &StoreOpError{Op: "delete", ConversationId: conversationId, Err: err}
		}
		c.chunkIds = nil
	}

	// The tombstone write pairs with lookup, which reads it under the
	// registry lock only.
	m.mu.Lock()
	c.deleted = true
	delete(m.collections, conversationId)
	m.mu.Unlock()

	m.log.Info(logModule, "collection deleted", map[string]interface{}{
		"conversation_id": conversationId.String(),
	})
	return nil
}
