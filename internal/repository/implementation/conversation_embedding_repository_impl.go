package implementation

import (
	"context"

	"docuchat-be/internal/entity"
	"docuchat-be/internal/mapper"
	"docuchat-be/internal/model"
	"docuchat-be/internal/repository/contract"
	"docuchat-be/internal/repository/specification"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

type ConversationEmbeddingRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ConversationEmbeddingMapper
}

func NewConversationEmbeddingRepository(db *gorm.DB) contract.ConversationEmbeddingRepository {
	return &ConversationEmbeddingRepositoryImpl{
		db:     db,
		mapper: mapper.NewConversationEmbeddingMapper(),
	}
}

func (r *ConversationEmbeddingRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *ConversationEmbeddingRepositoryImpl) CreateBulk(ctx context.Context, embeddings []*entity.ConversationEmbedding) error {
	if len(embeddings) == 0 {
		return nil
	}
	models := make([]*model.ConversationEmbedding, len(embeddings))
	for i, e := range embeddings {
		models[i] = r.mapper.ToModel(e)
	}
	return r.db.WithContext(ctx).Create(&models).Error
}

func (r *ConversationEmbeddingRepositoryImpl) DeleteByIds(ctx context.Context, conversationId uuid.UUID, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationId).
		Where("id IN ?", ids).
		Delete(&model.ConversationEmbedding{}).Error
}

func (r *ConversationEmbeddingRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	err := query.Model(&model.ConversationEmbedding{}).Count(&count).Error
	return count, err
}

// scoredRow carries the embedding columns plus the computed similarity.
type scoredRow struct {
	model.ConversationEmbedding
	Similarity float64 `gorm:"column:similarity"`
}

func (r *ConversationEmbeddingRepositoryImpl) SearchSimilar(ctx context.Context, conversationId uuid.UUID, embedding []float32, limit int) ([]*contract.ScoredConversationEmbedding, error) {
	if limit <= 0 {
		limit = 5
	}
	var rows []*scoredRow

	// pgvector `<=>` is cosine distance; similarity = 1 - distance.
	err := r.db.WithContext(ctx).
		Model(&model.ConversationEmbedding{}).
		Select("*, 1 - (embedding_value <=> ?) as similarity", pgvector.NewVector(embedding)).
		Where("conversation_id = ?", conversationId).
		Order(gorm.Expr("embedding_value <=> ?", pgvector.NewVector(embedding))).
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	results := make([]*contract.ScoredConversationEmbedding, len(rows))
	for i, row := range rows {
		results[i] = &contract.ScoredConversationEmbedding{
			Embedding:  r.mapper.ToEntity(&row.ConversationEmbedding),
			Similarity: row.Similarity,
		}
	}
	return results, nil
}
