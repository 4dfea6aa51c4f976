package repository

import (
	"context"

	"github.com/yourusername/cbt-api/internal/domain/entity"
)

// ActivityLogRepository сохраняет записи журнала действий
type ActivityLogRepository interface {
	Create(ctx context.Context, entry *entity.ActivityLog) error
}
