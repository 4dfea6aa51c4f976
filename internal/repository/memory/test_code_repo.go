package memory

import (
	"context"
	"sort"
	"time"

	"github.com/yourusername/cbt-api/internal/domain/entity"
	"github.com/yourusername/cbt-api/internal/domain/repository"
	apperrors "github.com/yourusername/cbt-api/internal/pkg/errors"
)

// TestCodeRepo реализует repository.TestCodeRepository
type TestCodeRepo struct {
	s *Store
}

// Create соблюдает уникальность test_codes.code
func (r *TestCodeRepo) Create(ctx context.Context, code *entity.TestCode) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check(ctx, "test_codes.create"); err != nil {
		return err
	}
	for _, existing := range r.s.codes {
		if existing.Code == code.Code {
			return repository.ErrDuplicateKey
		}
	}
	r.s.nextCodeID++
	code.ID = r.s.nextCodeID
	if code.CreatedAt.IsZero() {
		code.CreatedAt = r.s.now()
	}
	r.s.codes[code.ID] = *code
	return nil
}

func (r *TestCodeRepo) GetByID(ctx context.Context, id uint) (*entity.TestCode, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check(ctx, "test_codes.get"); err != nil {
		return nil, err
	}
	code, ok := r.s.codes[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &code, nil
}

// GetByIDForUpdate: транзакции уже сериализованы, отдельная блокировка строки не нужна
func (r *TestCodeRepo) GetByIDForUpdate(ctx context.Context, id uint) (*entity.TestCode, error) {
	return r.GetByID(ctx, id)
}

func (r *TestCodeRepo) GetByCode(ctx context.Context, value string) (*entity.TestCode, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check(ctx, "test_codes.get_by_code"); err != nil {
		return nil, err
	}
	for _, code := range r.s.codes {
		if code.Code == value {
			c := code
			return &c, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r *TestCodeRepo) CodeExists(ctx context.Context, value string) (bool, error) {
	_, err := r.GetByCode(ctx, value)
	if err == apperrors.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *TestCodeRepo) SetActive(ctx context.Context, id uint, active bool, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check(ctx, "test_codes.set_active"); err != nil {
		return err
	}
	code, ok := r.s.codes[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	code.Active = active
	stamp := at
	if active {
		code.ActivatedAt = &stamp
	} else {
		code.DeactivatedAt = &stamp
	}
	r.s.codes[id] = code
	return nil
}

func (r *TestCodeRepo) List(ctx context.Context, filters repository.TestCodeFilters, limit, offset int) ([]entity.TestCode, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check(ctx, "test_codes.list"); err != nil {
		return nil, 0, err
	}
	matched := make([]entity.TestCode, 0)
	for _, code := range r.s.codes {
		if matchesFilters(code, filters) {
			matched = append(matched, code)
		}
	}
	// Новые первыми, как ORDER BY created_at DESC, id DESC
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})
	total := int64(len(matched))
	return paginate(matched, limit, offset), total, nil
}

func matchesFilters(code entity.TestCode, f repository.TestCodeFilters) bool {
	switch {
	case f.Class != "" && code.Class != f.Class:
		return false
	case f.Subject != "" && code.Subject != f.Subject:
		return false
	case f.Session != "" && code.Session != f.Session:
		return false
	case f.Term != "" && code.Term != f.Term:
		return false
	case f.TestType != "" && code.TestType != f.TestType:
		return false
	case f.Active != nil && code.Active != *f.Active:
		return false
	}
	return true
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
