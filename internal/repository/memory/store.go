// Package memory содержит хранилище в памяти процесса с теми же гарантиями,
// что и Postgres: уникальные индексы, транзакции и точки сохранения.
// Используется в тестах и при storage.backend = memory.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/yourusername/cbt-api/internal/domain/entity"
	"github.com/yourusername/cbt-api/internal/domain/repository"
	apperrors "github.com/yourusername/cbt-api/internal/pkg/errors"
)

// FaultFunc позволяет тестам имитировать сбой хранилища для операции op
type FaultFunc func(op string) error

// Store хранит все таблицы. Транзакции сериализуются через txMu.
type Store struct {
	txMu sync.Mutex
	mu   sync.Mutex

	codes     map[uint]entity.TestCode
	results   map[uint]entity.TestResult
	questions map[uint]entity.Question
	logs      []entity.ActivityLog

	nextCodeID     uint
	nextResultID   uint
	nextQuestionID uint
	nextLogID      uint

	fault FaultFunc
	now   func() time.Time
}

// NewStore создает пустое хранилище
func NewStore() *Store {
	return &Store{
		codes:     make(map[uint]entity.TestCode),
		results:   make(map[uint]entity.TestResult),
		questions: make(map[uint]entity.Question),
		now:       time.Now,
	}
}

// SetFault устанавливает функцию имитации сбоев (nil отключает)
func (s *Store) SetFault(f FaultFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fault = f
}

// check вызывается под s.mu перед каждой операцией
func (s *Store) check(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return apperrors.NewStoreError(op, err)
	}
	if s.fault != nil {
		if err := s.fault(op); err != nil {
			return apperrors.NewStoreError(op, err)
		}
	}
	return nil
}

// AddQuestions добавляет вопросы в банк и проставляет ID
func (s *Store) AddQuestions(questions ...entity.Question) []entity.Question {
	s.mu.Lock()
	defer s.mu.Unlock()
	added := make([]entity.Question, 0, len(questions))
	for _, q := range questions {
		s.nextQuestionID++
		q.ID = s.nextQuestionID
		if q.CreatedAt.IsZero() {
			q.CreatedAt = s.now()
			q.UpdatedAt = q.CreatedAt
		}
		s.questions[q.ID] = q
		added = append(added, q)
	}
	return added
}

// ActivityLogs возвращает копию журнала
func (s *Store) ActivityLogs() []entity.ActivityLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entity.ActivityLog, len(s.logs))
	copy(out, s.logs)
	return out
}

// snapshot — копия таблиц, изменяемых в транзакциях
type snapshot struct {
	codes        map[uint]entity.TestCode
	results      map[uint]entity.TestResult
	nextCodeID   uint
	nextResultID uint
}

func (s *Store) takeSnapshot() snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := snapshot{
		codes:        make(map[uint]entity.TestCode, len(s.codes)),
		results:      make(map[uint]entity.TestResult, len(s.results)),
		nextCodeID:   s.nextCodeID,
		nextResultID: s.nextResultID,
	}
	for k, v := range s.codes {
		snap.codes[k] = v
	}
	for k, v := range s.results {
		snap.results[k] = v
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes = snap.codes
	s.results = snap.results
	s.nextCodeID = snap.nextCodeID
	s.nextResultID = snap.nextResultID
}

// TestCodes возвращает репозиторий кодов вне транзакции
func (s *Store) TestCodes() *TestCodeRepo { return &TestCodeRepo{s: s} }

// Results возвращает репозиторий результатов вне транзакции
func (s *Store) Results() *ResultRepo { return &ResultRepo{s: s} }

// Questions возвращает репозиторий банка вопросов
func (s *Store) Questions() *QuestionRepo { return &QuestionRepo{s: s} }

// ActivityLogRepo возвращает репозиторий журнала действий
func (s *Store) ActivityLogRepo() *ActivityLogRepo { return &ActivityLogRepo{s: s} }

// TxManager возвращает менеджер транзакций
func (s *Store) TxManager() *TxManager { return &TxManager{s: s} }

var _ repository.TxManager = (*TxManager)(nil)
