package service

import (
	"context"
	"log"
	"time"

	"github.com/yourusername/cbt-api/internal/domain/entity"
	"github.com/yourusername/cbt-api/internal/domain/repository"
)

// Действия, которые пишутся в журнал
const (
	ActionCodesGenerated  = "test_codes_generated"
	ActionCodeActivated   = "test_code_activated"
	ActionCodeDeactivated = "test_code_deactivated"
	ActionTestSubmitted   = "test_submitted"
)

const activityLogWriteTimeout = 3 * time.Second

// ActivityLogger пишет журнал действий в режиме best-effort:
// ошибка записи только логируется и не влияет на основную операцию
type ActivityLogger struct {
	repo repository.ActivityLogRepository
}

// NewActivityLogger создает журнал действий
func NewActivityLogger(repo repository.ActivityLogRepository) *ActivityLogger {
	return &ActivityLogger{repo: repo}
}

// Log записывает действие. Вызывается после коммита, поэтому отмена запроса запись не прерывает.
func (l *ActivityLogger) Log(ctx context.Context, userID uint, action, details string) {
	if l == nil || l.repo == nil {
		return
	}
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), activityLogWriteTimeout)
	defer cancel()

	entry := &entity.ActivityLog{UserID: userID, Action: action, Details: details}
	if err := l.repo.Create(writeCtx, entry); err != nil {
		log.Printf("[ActivityLogger] Не удалось записать действие %s пользователя %d: %v", action, userID, err)
	}
}
