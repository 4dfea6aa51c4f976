package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/yourusername/cbt-api/internal/domain/entity"
	apperrors "github.com/yourusername/cbt-api/internal/pkg/errors"
)

// ActivityLogRepo реализует repository.ActivityLogRepository
type ActivityLogRepo struct {
	db *gorm.DB
}

// NewActivityLogRepo создает новый репозиторий журнала действий
func NewActivityLogRepo(db *gorm.DB) *ActivityLogRepo {
	return &ActivityLogRepo{db: db}
}

// Create добавляет запись в журнал
func (r *ActivityLogRepo) Create(ctx context.Context, entry *entity.ActivityLog) error {
	return apperrors.NewStoreError("activity_logs.create", r.db.WithContext(ctx).Create(entry).Error)
}
