package memory

import (
	"context"
	"sort"

	"github.com/yourusername/cbt-api/internal/domain/entity"
	"github.com/yourusername/cbt-api/internal/domain/repository"
	apperrors "github.com/yourusername/cbt-api/internal/pkg/errors"
)

// ResultRepo реализует repository.ResultRepository
type ResultRepo struct {
	s *Store
}

// Create соблюдает уникальность пары (student_id, test_code_id)
func (r *ResultRepo) Create(ctx context.Context, result *entity.TestResult) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check(ctx, "test_results.create"); err != nil {
		return err
	}
	for _, existing := range r.s.results {
		if existing.StudentID == result.StudentID && existing.TestCodeID == result.TestCodeID {
			return repository.ErrDuplicateKey
		}
	}
	r.s.nextResultID++
	result.ID = r.s.nextResultID
	if result.CompletedAt.IsZero() {
		result.CompletedAt = r.s.now()
	}
	stored := *result
	stored.AnswersJSON = append([]byte(nil), result.AnswersJSON...)
	r.s.results[result.ID] = stored
	return nil
}

func (r *ResultRepo) Exists(ctx context.Context, studentID, testCodeID uint) (bool, error) {
	_, err := r.GetByStudentAndCode(ctx, studentID, testCodeID)
	if err == apperrors.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *ResultRepo) CountByTestCode(ctx context.Context, testCodeID uint) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check(ctx, "test_results.count"); err != nil {
		return 0, err
	}
	var count int64
	for _, res := range r.s.results {
		if res.TestCodeID == testCodeID {
			count++
		}
	}
	return count, nil
}

func (r *ResultRepo) GetByStudentAndCode(ctx context.Context, studentID, testCodeID uint) (*entity.TestResult, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check(ctx, "test_results.get"); err != nil {
		return nil, err
	}
	for _, res := range r.s.results {
		if res.StudentID == studentID && res.TestCodeID == testCodeID {
			found := res
			return &found, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r *ResultRepo) ListByTestCode(ctx context.Context, testCodeID uint, limit, offset int) ([]entity.TestResult, int64, error) {
	all, err := r.ListAllByTestCode(ctx, testCodeID)
	if err != nil {
		return nil, 0, err
	}
	return paginate(all, limit, offset), int64(len(all)), nil
}

func (r *ResultRepo) ListAllByTestCode(ctx context.Context, testCodeID uint) ([]entity.TestResult, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check(ctx, "test_results.list"); err != nil {
		return nil, err
	}
	out := make([]entity.TestResult, 0)
	for _, res := range r.s.results {
		if res.TestCodeID == testCodeID {
			out = append(out, res)
		}
	}
	// ORDER BY score DESC, time_taken ASC, id ASC
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if out[i].TimeTaken != out[j].TimeTaken {
			return out[i].TimeTaken < out[j].TimeTaken
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
