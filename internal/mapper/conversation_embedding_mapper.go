package mapper

import (
	"docuchat-be/internal/entity"
	"docuchat-be/internal/model"

	"github.com/pgvector/pgvector-go"
)

type ConversationEmbeddingMapper struct{}

func NewConversationEmbeddingMapper() *ConversationEmbeddingMapper {
	return &ConversationEmbeddingMapper{}
}

func (m *ConversationEmbeddingMapper) ToEntity(e *model.ConversationEmbedding) *entity.ConversationEmbedding {
	if e == nil {
		return nil
	}
	return &entity.ConversationEmbedding{
		Id:             e.Id,
		ConversationId: e.ConversationId,
		Document:       e.Document,
		EmbeddingValue: e.EmbeddingValue.Slice(),
		ChunkIndex:     e.ChunkIndex,
		CreatedAt:      e.CreatedAt,
	}
}

func (m *ConversationEmbeddingMapper) ToModel(e *entity.ConversationEmbedding) *model.ConversationEmbedding {
	if e == nil {
		return nil
	}
	return &model.ConversationEmbedding{
		Id:             e.Id,
		ConversationId: e.ConversationId,
		Document:       e.Document,
		EmbeddingValue: pgvector.NewVector(e.EmbeddingValue),
		ChunkIndex:     e.ChunkIndex,
		CreatedAt:      e.CreatedAt,
	}
}
