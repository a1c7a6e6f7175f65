package unitofwork

import (
	"context"

	"docuchat-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	UserRepository() contract.UserRepository
	ConversationRepository() contract.ConversationRepository
	ChatMessageRepository() contract.ChatMessageRepository
	ConversationEmbeddingRepository() contract.ConversationEmbeddingRepository
	NotificationRepository() contract.NotificationRepository
}
