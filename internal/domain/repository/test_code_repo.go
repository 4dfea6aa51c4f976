package repository

import (
	"context"
	"time"

	"github.com/yourusername/cbt-api/internal/domain/entity"
)

// TestCodeFilters содержит фильтры для списка кодов
type TestCodeFilters struct {
	Class    string
	Subject  string
	Session  string
	Term     string
	TestType string
	Active   *bool
}

// TestCodeRepository определяет методы для работы с тестовыми кодами
type TestCodeRepository interface {
	// Create возвращает ErrDuplicateKey, если такой code уже существует
	Create(ctx context.Context, code *entity.TestCode) error
	GetByID(ctx context.Context, id uint) (*entity.TestCode, error)
	// GetByIDForUpdate блокирует строку до конца транзакции
	GetByIDForUpdate(ctx context.Context, id uint) (*entity.TestCode, error)
	GetByCode(ctx context.Context, code string) (*entity.TestCode, error)
	CodeExists(ctx context.Context, code string) (bool, error)
	// SetActive меняет флаг active и ставит activated_at или deactivated_at
	SetActive(ctx context.Context, id uint, active bool, at time.Time) error
	List(ctx context.Context, filters TestCodeFilters, limit, offset int) ([]entity.TestCode, int64, error)
}
