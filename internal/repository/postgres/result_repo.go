package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/yourusername/cbt-api/internal/domain/entity"
	apperrors "github.com/yourusername/cbt-api/internal/pkg/errors"
)

// ResultRepo реализует repository.ResultRepository
type ResultRepo struct {
	db *gorm.DB
}

// NewResultRepo создает новый репозиторий результатов
func NewResultRepo(db *gorm.DB) *ResultRepo {
	return &ResultRepo{db: db}
}

// Create сохраняет результат. Повторная сдача упирается в idx_student_test_code.
func (r *ResultRepo) Create(ctx context.Context, result *entity.TestResult) error {
	return translateCreateErr("test_results.create", r.db.WithContext(ctx).Create(result).Error)
}

// Exists проверяет, сдавал ли студент тест по коду
func (r *ResultRepo) Exists(ctx context.Context, studentID, testCodeID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.TestResult{}).
		Where("student_id = ? AND test_code_id = ?", studentID, testCodeID).
		Count(&count).Error
	if err != nil {
		return false, apperrors.NewStoreError("test_results.exists", err)
	}
	return count > 0, nil
}

// CountByTestCode возвращает число результатов по коду
func (r *ResultRepo) CountByTestCode(ctx context.Context, testCodeID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.TestResult{}).
		Where("test_code_id = ?", testCodeID).
		Count(&count).Error
	if err != nil {
		return 0, apperrors.NewStoreError("test_results.count", err)
	}
	return count, nil
}

// GetByStudentAndCode возвращает результат студента по коду
func (r *ResultRepo) GetByStudentAndCode(ctx context.Context, studentID, testCodeID uint) (*entity.TestResult, error) {
	var result entity.TestResult
	err := r.db.WithContext(ctx).
		Where("student_id = ? AND test_code_id = ?", studentID, testCodeID).
		First(&result).Error
	if err != nil {
		return nil, translateFirstErr("test_results.get", err)
	}
	return &result, nil
}

// ListByTestCode возвращает страницу результатов по коду, лучшие первыми
func (r *ResultRepo) ListByTestCode(ctx context.Context, testCodeID uint, limit, offset int) ([]entity.TestResult, int64, error) {
	var results []entity.TestResult
	var total int64

	// Количество и страница читаются в одной транзакции
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&entity.TestResult{}).Where("test_code_id = ?", testCodeID).Count(&total).Error; err != nil {
			return err
		}
		return tx.Where("test_code_id = ?", testCodeID).
			Order("score DESC, time_taken ASC, id ASC").
			Limit(limit).
			Offset(offset).
			Find(&results).Error
	})
	if err != nil {
		return nil, 0, apperrors.NewStoreError("test_results.list", err)
	}
	return results, total, nil
}

// ListAllByTestCode возвращает все результаты по коду (для экспорта)
func (r *ResultRepo) ListAllByTestCode(ctx context.Context, testCodeID uint) ([]entity.TestResult, error) {
	var results []entity.TestResult
	err := r.db.WithContext(ctx).Where("test_code_id = ?", testCodeID).
		Order("score DESC, time_taken ASC, id ASC").
		Find(&results).Error
	if err != nil {
		return nil, apperrors.NewStoreError("test_results.list_all", err)
	}
	return results, nil
}
