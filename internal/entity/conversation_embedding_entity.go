package entity

import (
	"time"

	"github.com/google/uuid"
)

// ConversationEmbedding is one stored chunk of an uploaded document: its text,
// its vector, and the conversation it belongs to. The id doubles as the chunk
// id assigned at ingestion time, so teardown can delete by id.
type ConversationEmbedding struct {
	Id             uuid.UUID
	ConversationId uuid.UUID
	Document       string
	EmbeddingValue []float32
	ChunkIndex     int
	CreatedAt      time.Time
}
