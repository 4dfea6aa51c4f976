package repository

import (
	"context"

	"github.com/yourusername/cbt-api/internal/domain/entity"
)

// QuestionRepository — доступ к банку вопросов только на чтение
type QuestionRepository interface {
	CountByClassification(ctx context.Context, c entity.Classification) (int64, error)
	GetByClassification(ctx context.Context, c entity.Classification) ([]entity.Question, error)
	GetByIDs(ctx context.Context, ids []uint) ([]entity.Question, error)
}
