package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/yourusername/cbt-api/internal/domain/entity"
	apperrors "github.com/yourusername/cbt-api/internal/pkg/errors"
)

// QuestionRepo реализует repository.QuestionRepository
type QuestionRepo struct {
	db *gorm.DB
}

// NewQuestionRepo создает новый репозиторий вопросов
func NewQuestionRepo(db *gorm.DB) *QuestionRepo {
	return &QuestionRepo{db: db}
}

func byClassification(db *gorm.DB, c entity.Classification) *gorm.DB {
	return db.Where("class = ? AND subject = ? AND session = ? AND term = ? AND test_type = ?",
		c.Class, c.Subject, c.Session, c.Term, c.TestType)
}

// CountByClassification возвращает количество вопросов в банке для классификации
func (r *QuestionRepo) CountByClassification(ctx context.Context, c entity.Classification) (int64, error) {
	var count int64
	err := byClassification(r.db.WithContext(ctx).Model(&entity.Question{}), c).Count(&count).Error
	if err != nil {
		return 0, apperrors.NewStoreError("questions.count", err)
	}
	return count, nil
}

// GetByClassification возвращает все вопросы классификации
func (r *QuestionRepo) GetByClassification(ctx context.Context, c entity.Classification) ([]entity.Question, error) {
	var questions []entity.Question
	err := byClassification(r.db.WithContext(ctx), c).Order("id").Find(&questions).Error
	if err != nil {
		return nil, apperrors.NewStoreError("questions.list", err)
	}
	return questions, nil
}

// GetByIDs возвращает вопросы по списку ID в порядке id
func (r *QuestionRepo) GetByIDs(ctx context.Context, ids []uint) ([]entity.Question, error) {
	if len(ids) == 0 {
		return []entity.Question{}, nil
	}
	var questions []entity.Question
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id").Find(&questions).Error; err != nil {
		return nil, apperrors.NewStoreError("questions.get_by_ids", err)
	}
	return questions, nil
}
