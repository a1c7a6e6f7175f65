package implementation

import (
	"context"
	"time"

	"docuchat-be/internal/entity"
	"docuchat-be/internal/repository/contract"
	"docuchat-be/pkg/vectorstore"

	"github.com/google/uuid"
)

// CollectionStoreImpl adapts the pgvector embedding repository to the
// vectorstore.CollectionStore contract consumed by the index manager.
type CollectionStoreImpl struct {
	embeddings contract.ConversationEmbeddingRepository
}

func NewCollectionStore(embeddings contract.ConversationEmbeddingRepository) vectorstore.CollectionStore {
	return &CollectionStoreImpl{embeddings: embeddings}
}

func (s *CollectionStoreImpl) Insert(ctx context.Context, conversationId uuid.UUID, docs []vectorstore.Document) error {
	rows := make([]*entity.ConversationEmbedding, len(docs))
	now := time.Now()
	for i, d := range docs {
		rows[i] = &entity.ConversationEmbedding{
			Id:             d.Id,
			ConversationId: conversationId,
			Document:       d.Content,
			EmbeddingValue: d.Embedding,
			ChunkIndex:     d.ChunkIndex,
			CreatedAt:      now,
		}
	}
	return s.embeddings.CreateBulk(ctx, rows)
}

func (s *CollectionStoreImpl) Delete(ctx context.Context, conversationId uuid.UUID, ids []uuid.UUID) error {
	return s.embeddings.DeleteByIds(ctx, conversationId, ids)
}

func (s *CollectionStoreImpl) Search(ctx context.Context, conversationId uuid.UUID, vector []float32, k int) ([]vectorstore.SearchResult, error) {
	scored, err := s.embeddings.SearchSimilar(ctx, conversationId, vector, k)
	if err != nil {
		return nil, err
	}

	results := make([]vectorstore.SearchResult, len(scored))
	for i, sc := range scored {
		results[i] = vectorstore.SearchResult{
			Content:    sc.Embedding.Document,
			Similarity: sc.Similarity,
			ChunkIndex: sc.Embedding.ChunkIndex,
		}
	}
	return results, nil
}
