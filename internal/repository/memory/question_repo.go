package memory

import (
	"context"
	"sort"

	"github.com/yourusername/cbt-api/internal/domain/entity"
)

// QuestionRepo реализует repository.QuestionRepository
type QuestionRepo struct {
	s *Store
}

func (r *QuestionRepo) CountByClassification(ctx context.Context, c entity.Classification) (int64, error) {
	questions, err := r.GetByClassification(ctx, c)
	if err != nil {
		return 0, err
	}
	return int64(len(questions)), nil
}

func (r *QuestionRepo) GetByClassification(ctx context.Context, c entity.Classification) ([]entity.Question, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check(ctx, "questions.list"); err != nil {
		return nil, err
	}
	out := make([]entity.Question, 0)
	for _, q := range r.s.questions {
		if q.Classification == c {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *QuestionRepo) GetByIDs(ctx context.Context, ids []uint) ([]entity.Question, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check(ctx, "questions.get_by_ids"); err != nil {
		return nil, err
	}
	out := make([]entity.Question, 0, len(ids))
	for _, id := range ids {
		if q, ok := r.s.questions[id]; ok {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
