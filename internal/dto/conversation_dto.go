package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateConversationResponse struct {
	Id           uuid.UUID `json:"id"`
	Title        string    `json:"title"`
	DocumentName string    `json:"document_name"`
}

type ConversationSummary struct {
	Id           uuid.UUID `json:"id"`
	Title        string    `json:"title"`
	DocumentName string    `json:"document_name"`
	CreatedAt    time.Time `json:"created_at"`
}

type GetAllConversationsResponse struct {
	Conversations []ConversationSummary `json:"conversations"`
}

type ChatMessageItem struct {
	Id        uuid.UUID `json:"id"`
	Message   string    `json:"message"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

type ShowConversationResponse struct {
	Id           uuid.UUID `json:"id"`
	Title        string    `json:"title"`
	DocumentName string    `json:"document_name"`
	// IndexActive tells the client whether the conversation can still answer
	// questions, or the user must upload the document again.
	IndexActive bool              `json:"index_active"`
	Messages    []ChatMessageItem `json:"messages"`
	CreatedAt   time.Time         `json:"created_at"`
}

type SendMessageRequest struct {
	Message string `json:"message" validate:"required,min=1"`
}

type SendMessageResponse struct {
	Reply ChatMessageItem `json:"reply"`
}
