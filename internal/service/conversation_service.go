package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"docuchat-be/internal/constant"
	"docuchat-be/internal/dto"
	"docuchat-be/internal/entity"
	"docuchat-be/internal/pkg/logger"
	"docuchat-be/internal/repository/memory"
	"docuchat-be/internal/repository/specification"
	"docuchat-be/internal/repository/unitofwork"
	"docuchat-be/pkg/chunker"
	"docuchat-be/pkg/events"
	"docuchat-be/pkg/llm"
	pktNats "docuchat-be/pkg/nats"
	"docuchat-be/pkg/prompt"
	"docuchat-be/pkg/vectorstore"

	"github.com/google/uuid"
)

// ErrNoActiveIndex is surfaced when the user asks a question in a
// conversation whose index is gone (server restart or session teardown).
var ErrNoActiveIndex = errors.New("conversation context is missing, please create a new conversation")

type IConversationService interface {
	CreateConversation(ctx context.Context, userId uuid.UUID, title, documentName, filePath string) (*dto.CreateConversationResponse, error)
	GetAllConversations(ctx context.Context, userId uuid.UUID) (*dto.GetAllConversationsResponse, error)
	GetConversationByID(ctx context.Context, userId, conversationId uuid.UUID) (*dto.ShowConversationResponse, error)
	SendMessage(ctx context.Context, userId, conversationId uuid.UUID, text string) (*dto.SendMessageResponse, error)
	CleanupUserSessions(ctx context.Context, userId uuid.UUID)
}

type conversationService struct {
	uowFactory     unitofwork.RepositoryFactory
	manager        *vectorstore.Manager
	ingester       *chunker.Ingester
	llmProvider    llm.LLMProvider
	notifier       events.ProgressNotifier
	uploads        *memory.UploadRepository
	eventPublisher *pktNats.Publisher
	logger         logger.ILogger
	queryK         int
	uploadDir      string
}

func NewConversationService(
	uowFactory unitofwork.RepositoryFactory,
	manager *vectorstore.Manager,
	ingester *chunker.Ingester,
	llmProvider llm.LLMProvider,
	notifier events.ProgressNotifier,
	uploads *memory.UploadRepository,
	eventPublisher *pktNats.Publisher,
	log logger.ILogger,
	queryK int,
	uploadDir string,
) IConversationService {
	if queryK <= 0 {
		queryK = 7
	}
	return &conversationService{
		uowFactory:     uowFactory,
		manager:        manager,
		ingester:       ingester,
		llmProvider:    llmProvider,
		notifier:       notifier,
		uploads:        uploads,
		eventPublisher: eventPublisher,
		logger:         log,
		queryK:         queryK,
		uploadDir:      uploadDir,
	}
}

func (s *conversationService) notifyIngest(ctx context.Context, userId, conversationId uuid.UUID, message string) {
	_ = s.notifier.Notify(ctx, events.ProgressEvent{
		UserId:         userId,
		ConversationId: conversationId,
		Kind:           events.ProgressIngestLog,
		Message:        message,
	})
}

func (s *conversationService) notifyChatLog(ctx context.Context, userId, conversationId uuid.UUID, message string, done bool) {
	_ = s.notifier.Notify(ctx, events.ProgressEvent{
		UserId:         userId,
		ConversationId: conversationId,
		Kind:           events.ProgressChatLog,
		Message:        message,
		Data: map[string]interface{}{
			"message": message,
			"done":    done,
		},
	})
}

// CreateConversation persists the conversation, builds its vector index from
// the uploaded document, and announces it to the client. Ingestion failure
// aborts the whole operation with the cause.
func (s *conversationService) CreateConversation(ctx context.Context, userId uuid.UUID, title, documentName, filePath string) (*dto.CreateConversationResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	conversation := &entity.Conversation{
		Id:           uuid.New(),
		UserId:       userId,
		Title:        title,
		DocumentName: documentName,
		CreatedAt:    time.Now(),
	}
	if err := uow.ConversationRepository().Create(ctx, conversation); err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}

	if err := s.manager.CreateCollection(ctx, conversation.Id, userId); err != nil {
		return nil, err
	}

	s.notifyIngest(ctx, userId, conversation.Id, "File path is valid")
	s.notifyIngest(ctx, userId, conversation.Id, "Loading the file...")

	chunkSet, err := s.ingester.ProduceChunks(filePath)
	if err != nil {
		s.abortIngestion(ctx, uow, conversation.Id)
		return nil, fmt.Errorf("failed to read document: %w", err)
	}

	s.notifyIngest(ctx, userId, conversation.Id, "File loaded")
	s.notifyIngest(ctx, userId, conversation.Id, "Splitting the file...")
	s.notifyIngest(ctx, userId, conversation.Id, fmt.Sprintf("Split into %d chunks", len(chunkSet.Chunks)))

	if err := s.manager.AddDocuments(ctx, conversation.Id, chunkSet.Chunks, userId, chunkSet.Ids); err != nil {
		s.abortIngestion(ctx, uow, conversation.Id)
		return nil, fmt.Errorf("failed to index document: %w", err)
	}

	s.uploads.Save(conversation.Id, filePath)

	_ = s.notifier.Notify(ctx, events.ProgressEvent{
		UserId:         userId,
		ConversationId: conversation.Id,
		Kind:           events.ProgressNewConversation,
		Data: map[string]interface{}{
			"conversation_id": conversation.Id.String(),
			"title":           conversation.Title,
		},
	})

	if s.eventPublisher != nil {
		event := events.NewEvent(events.EventConversationCreated, map[string]interface{}{
			"user_id":         userId.String(),
			"conversation_id": conversation.Id.String(),
			"document_name":   documentName,
		})
		if pubErr := s.eventPublisher.Publish(ctx, event); pubErr != nil {
			s.logger.Warn("ConversationService", "Failed to publish conversation created event", map[string]interface{}{"error": pubErr.Error()})
		}
	}

	return &dto.CreateConversationResponse{
		Id:           conversation.Id,
		Title:        conversation.Title,
		DocumentName: conversation.DocumentName,
	}, nil
}

// abortIngestion undoes a half-created conversation: index handle and row.
func (s *conversationService) abortIngestion(ctx context.Context, uow unitofwork.UnitOfWork, conversationId uuid.UUID) {
	if err := s.manager.DeleteCollections(ctx, []uuid.UUID{conversationId}); err != nil {
		s.logger.Warn("ConversationService", "Failed to tear down index after aborted ingestion", map[string]interface{}{
			"conversation_id": conversationId.String(),
			"error":           err.Error(),
		})
	}
	if err := uow.ConversationRepository().Delete(ctx, conversationId); err != nil {
		s.logger.Warn("ConversationService", "Failed to remove conversation after aborted ingestion", map[string]interface{}{
			"conversation_id": conversationId.String(),
			"error":           err.Error(),
		})
	}
}

func (s *conversationService) GetAllConversations(ctx context.Context, userId uuid.UUID) (*dto.GetAllConversationsResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	conversations, err := uow.ConversationRepository().FindAll(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.OrderBy{Field: "created_at", Desc: true},
	)
	if err != nil {
		return nil, err
	}

	res := &dto.GetAllConversationsResponse{
		Conversations: make([]dto.ConversationSummary, len(conversations)),
	}
	for i, c := range conversations {
		res.Conversations[i] = dto.ConversationSummary{
			Id:           c.Id,
			Title:        c.Title,
			DocumentName: c.DocumentName,
			CreatedAt:    c.CreatedAt,
		}
	}
	return res, nil
}

func (s *conversationService) GetConversationByID(ctx context.Context, userId, conversationId uuid.UUID) (*dto.ShowConversationResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	conversation, err := uow.ConversationRepository().FindOne(ctx,
		specification.ByID{ID: conversationId},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if conversation == nil {
		return nil, errors.New("conversation not found")
	}

	messages, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.ByConversationID{ConversationID: conversationId},
		specification.OrderBy{Field: "created_at", Desc: false},
	)
	if err != nil {
		return nil, err
	}

	res := &dto.ShowConversationResponse{
		Id:           conversation.Id,
		Title:        conversation.Title,
		DocumentName: conversation.DocumentName,
		IndexActive:  s.manager.IsActiveCollectionExists(conversationId),
		Messages:     make([]dto.ChatMessageItem, len(messages)),
		CreatedAt:    conversation.CreatedAt,
	}
	for i, m := range messages {
		res.Messages[i] = dto.ChatMessageItem{
			Id:        m.Id,
			Message:   m.Message,
			Role:      m.Role,
			CreatedAt: m.CreatedAt,
		}
	}
	return res, nil
}

// SendMessage answers a user question grounded in the conversation's indexed
// document.
func (s *conversationService) SendMessage(ctx context.Context, userId, conversationId uuid.UUID, text string) (*dto.SendMessageResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	conversation, err := uow.ConversationRepository().FindOne(ctx,
		specification.ByID{ID: conversationId},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if conversation == nil {
		return nil, errors.New("conversation not found")
	}

	if !s.manager.IsActiveCollectionExists(conversationId) {
		return nil, ErrNoActiveIndex
	}

	userMessage := &entity.ChatMessage{
		Id:             uuid.New(),
		Message:        text,
		Role:           constant.ChatMessageRoleUser,
		ConversationId: conversationId,
		CreatedAt:      time.Now(),
	}
	if err := uow.ChatMessageRepository().Create(ctx, userMessage); err != nil {
		return nil, err
	}

	_ = s.notifier.Notify(ctx, events.ProgressEvent{
		UserId:         userId,
		ConversationId: conversationId,
		Kind:           events.ProgressChatMessage,
		Data: map[string]interface{}{
			"id":              userMessage.Id.String(),
			"message":         userMessage.Message,
			"role":            userMessage.Role,
			"conversation_id": conversationId.String(),
			"created_at":      userMessage.CreatedAt,
		},
	})

	s.notifyChatLog(ctx, userId, conversationId, "Searching the document...", false)

	results, err := s.manager.QueryCollection(ctx, conversationId, text, s.queryK)
	if err != nil {
		if errors.Is(err, vectorstore.ErrCollectionNotFound) {
			return nil, ErrNoActiveIndex
		}
		return nil, err
	}

	passages := make([]string, len(results))
	for i, r := range results {
		passages[i] = r.Content
	}

	s.notifyChatLog(ctx, userId, conversationId, "Generating the answer...", false)

	systemPrompt := prompt.BuildGrounded(passages, text)
	reply, err := s.llmProvider.Chat(ctx, []llm.Message{
		{Role: "system", Content: systemPrompt},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate response: %w", err)
	}

	s.notifyChatLog(ctx, userId, conversationId, "Done", true)

	modelMessage := &entity.ChatMessage{
		Id:             uuid.New(),
		Message:        reply,
		Role:           constant.ChatMessageRoleModel,
		ConversationId: conversationId,
		CreatedAt:      time.Now(),
	}
	if err := uow.ChatMessageRepository().Create(ctx, modelMessage); err != nil {
		return nil, err
	}

	return &dto.SendMessageResponse{
		Reply: dto.ChatMessageItem{
			Id:        modelMessage.Id,
			Message:   modelMessage.Message,
			Role:      modelMessage.Role,
			CreatedAt: modelMessage.CreatedAt,
		},
	}, nil
}

// CleanupUserSessions tears down every index belonging to a user who just
// disconnected, then removes their upload directory. Failures are logged and
// reported to operators over the event bus; the user is already gone.
func (s *conversationService) CleanupUserSessions(ctx context.Context, userId uuid.UUID) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	conversations, err := uow.ConversationRepository().FindAll(ctx,
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		s.logger.Error("ConversationService", "Session cleanup could not list conversations", map[string]interface{}{
			"user_id": userId.String(),
			"error":   err.Error(),
		})
		return
	}

	ids := make([]uuid.UUID, len(conversations))
	for i, c := range conversations {
		ids[i] = c.Id
	}

	if err := s.manager.DeleteCollections(ctx, ids); err != nil {
		s.logger.Error("ConversationService", "Session cleanup finished with failures", map[string]interface{}{
			"user_id": userId.String(),
			"error":   err.Error(),
		})
		if s.eventPublisher != nil {
			event := events.NewEvent(events.EventSessionCleanupFailed, map[string]interface{}{
				"user_id": userId.String(),
				"error":   err.Error(),
			})
			_ = s.eventPublisher.Publish(ctx, event)
		}
	}

	for _, id := range ids {
		s.uploads.Delete(id)
	}

	userDir := filepath.Join(s.uploadDir, userId.String())
	if err := os.RemoveAll(userDir); err != nil {
		s.logger.Warn("ConversationService", "Failed to remove upload directory", map[string]interface{}{
			"dir":   userDir,
			"error": err.Error(),
		})
	}

	s.logger.Info("ConversationService", "User sessions cleaned up", map[string]interface{}{
		"user_id":       userId.String(),
		"conversations": len(ids),
	})
}
