package contract

import (
	"context"

	"docuchat-be/internal/entity"
	"docuchat-be/internal/repository/specification"

	"github.com/google/uuid"
)

// ScoredConversationEmbedding wraps ConversationEmbedding with its similarity score
type ScoredConversationEmbedding struct {
	Embedding  *entity.ConversationEmbedding
	Similarity float64 // 0.0 to 1.0 (1.0 = identical)
}

type ConversationEmbeddingRepository interface {
	CreateBulk(ctx context.Context, embeddings []*entity.ConversationEmbedding) error
	DeleteByIds(ctx context.Context, conversationId uuid.UUID, ids []uuid.UUID) error
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	// SearchSimilar runs a cosine nearest-neighbor search scoped to one conversation.
	SearchSimilar(ctx context.Context, conversationId uuid.UUID, embedding []float32, limit int) ([]*ScoredConversationEmbedding, error)
}
