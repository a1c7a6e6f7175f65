package vectorstore

import (
	"context"

	"github.com/google/uuid"
)

// Document is one embedded chunk ready for storage.
type Document struct {
	Id         uuid.UUID
	Content    string
	Embedding  []float32
	ChunkIndex int
}

// SearchResult is one retrieved chunk with its cosine similarity (1.0 = identical).
type SearchResult struct {
	Content    string
	Similarity float64
	ChunkIndex int
}

// CollectionStore is the backing vector store, scoped per conversation.
// The pgvector GORM repository implements it in production.
type CollectionStore interface {
	Insert(ctx context.Context, conversationId uuid.UUID, docs []Document) error
	Delete(ctx context.Context, conversationId uuid.UUID, ids []uuid.UUID) error
	Search(ctx context.Context, conversationId uuid.UUID, vector []float32, k int) ([]SearchResult, error)
}
