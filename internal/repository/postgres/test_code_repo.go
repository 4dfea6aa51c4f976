package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yourusername/cbt-api/internal/domain/entity"
	"github.com/yourusername/cbt-api/internal/domain/repository"
	apperrors "github.com/yourusername/cbt-api/internal/pkg/errors"
)

// TestCodeRepo реализует repository.TestCodeRepository
type TestCodeRepo struct {
	db *gorm.DB
}

// NewTestCodeRepo создает новый репозиторий тестовых кодов
func NewTestCodeRepo(db *gorm.DB) *TestCodeRepo {
	return &TestCodeRepo{db: db}
}

// Create создает код. Нарушение уникального индекса возвращается как ErrDuplicateKey.
func (r *TestCodeRepo) Create(ctx context.Context, code *entity.TestCode) error {
	return translateCreateErr("test_codes.create", r.db.WithContext(ctx).Create(code).Error)
}

// GetByID возвращает код по ID
func (r *TestCodeRepo) GetByID(ctx context.Context, id uint) (*entity.TestCode, error) {
	var code entity.TestCode
	if err := r.db.WithContext(ctx).First(&code, id).Error; err != nil {
		return nil, translateFirstErr("test_codes.get", err)
	}
	return &code, nil
}

// GetByIDForUpdate возвращает код и блокирует строку (SELECT ... FOR UPDATE)
func (r *TestCodeRepo) GetByIDForUpdate(ctx context.Context, id uint) (*entity.TestCode, error) {
	var code entity.TestCode
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&code, id).Error
	if err != nil {
		return nil, translateFirstErr("test_codes.get_for_update", err)
	}
	return &code, nil
}

// GetByCode возвращает код по строковому значению
func (r *TestCodeRepo) GetByCode(ctx context.Context, value string) (*entity.TestCode, error) {
	var code entity.TestCode
	if err := r.db.WithContext(ctx).Where("code = ?", value).First(&code).Error; err != nil {
		return nil, translateFirstErr("test_codes.get_by_code", err)
	}
	return &code, nil
}

// CodeExists проверяет, занят ли код
func (r *TestCodeRepo) CodeExists(ctx context.Context, value string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.TestCode{}).Where("code = ?", value).Count(&count).Error
	if err != nil {
		return false, apperrors.NewStoreError("test_codes.exists", err)
	}
	return count > 0, nil
}

// SetActive переключает флаг active и проставляет соответствующую отметку времени
func (r *TestCodeRepo) SetActive(ctx context.Context, id uint, active bool, at time.Time) error {
	updates := map[string]interface{}{"active": active}
	if active {
		updates["activated_at"] = at
	} else {
		updates["deactivated_at"] = at
	}
	result := r.db.WithContext(ctx).Model(&entity.TestCode{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return apperrors.NewStoreError("test_codes.set_active", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// List возвращает коды с фильтрами и пагинацией, новые первыми. limit <= 0 — без ограничения.
func (r *TestCodeRepo) List(ctx context.Context, filters repository.TestCodeFilters, limit, offset int) ([]entity.TestCode, int64, error) {
	var total int64
	if err := r.filtered(ctx, filters).Count(&total).Error; err != nil {
		return nil, 0, apperrors.NewStoreError("test_codes.count", err)
	}

	query := r.filtered(ctx, filters).Order("created_at DESC, id DESC").Offset(offset)
	if limit > 0 {
		query = query.Limit(limit)
	}
	var codes []entity.TestCode
	if err := query.Find(&codes).Error; err != nil {
		return nil, 0, apperrors.NewStoreError("test_codes.list", err)
	}
	return codes, total, nil
}

func (r *TestCodeRepo) filtered(ctx context.Context, filters repository.TestCodeFilters) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&entity.TestCode{})
	if filters.Class != "" {
		query = query.Where("class = ?", filters.Class)
	}
	if filters.Subject != "" {
		query = query.Where("subject = ?", filters.Subject)
	}
	if filters.Session != "" {
		query = query.Where("session = ?", filters.Session)
	}
	if filters.Term != "" {
		query = query.Where("term = ?", filters.Term)
	}
	if filters.TestType != "" {
		query = query.Where("test_type = ?", filters.TestType)
	}
	if filters.Active != nil {
		query = query.Where("active = ?", *filters.Active)
	}
	return query
}
