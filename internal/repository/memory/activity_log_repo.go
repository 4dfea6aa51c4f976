package memory

import (
	"context"

	"github.com/yourusername/cbt-api/internal/domain/entity"
)

// ActivityLogRepo реализует repository.ActivityLogRepository
type ActivityLogRepo struct {
	s *Store
}

func (r *ActivityLogRepo) Create(ctx context.Context, entry *entity.ActivityLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check(ctx, "activity_logs.create"); err != nil {
		return err
	}
	r.s.nextLogID++
	entry.ID = r.s.nextLogID
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = r.s.now()
	}
	r.s.logs = append(r.s.logs, *entry)
	return nil
}
