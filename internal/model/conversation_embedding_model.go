package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

type ConversationEmbedding struct {
	Id             uuid.UUID       `gorm:"type:uuid;primaryKey"` // chunk id assigned at ingestion
	ConversationId uuid.UUID       `gorm:"type:uuid;not null;index"`
	Document       string          `gorm:"type:text"`
	EmbeddingValue pgvector.Vector `gorm:"type:vector(768)"` // text-embedding-004 / nomic-embed-text dimension
	ChunkIndex     int             `gorm:"default:0"` // 0-based position within the document
	CreatedAt      time.Time       `gorm:"autoCreateTime"`
}

func (ConversationEmbedding) TableName() string {
	return "conversation_embeddings"
}
