package repository

import (
	"context"

	"github.com/yourusername/cbt-api/internal/domain/entity"
)

// ResultRepository определяет методы для работы с результатами тестов
type ResultRepository interface {
	// Create возвращает ErrDuplicateKey, если результат для пары (student, code) уже есть
	Create(ctx context.Context, result *entity.TestResult) error
	Exists(ctx context.Context, studentID, testCodeID uint) (bool, error)
	CountByTestCode(ctx context.Context, testCodeID uint) (int64, error)
	GetByStudentAndCode(ctx context.Context, studentID, testCodeID uint) (*entity.TestResult, error)
	ListByTestCode(ctx context.Context, testCodeID uint, limit, offset int) ([]entity.TestResult, int64, error)
	ListAllByTestCode(ctx context.Context, testCodeID uint) ([]entity.TestResult, error)
}
