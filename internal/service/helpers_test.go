package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/cbt-api/internal/domain/entity"
	"github.com/yourusername/cbt-api/internal/domain/repository"
	"github.com/yourusername/cbt-api/internal/repository/memory"
)

// ============================================================================
// Общее окружение для тестов сервисов: хранилище и кеш в памяти
// ============================================================================

var testClassification = entity.Classification{
	Class:    "JSS1",
	Subject:  "Mathematics",
	Session:  "2024/2025",
	Term:     "First",
	TestType: entity.TestTypeTest,
}

type testEnv struct {
	store     *memory.Store
	cache     *memory.CacheRepo
	activity  *ActivityLogger
	generator *CodeGenerator
	gate      *ActivationGate
	tracker   *SessionTracker
	scorer    *SubmissionScorer
	results   *ResultService
	now       time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memory.NewStore()
	cache := memory.NewCacheRepo()
	activity := NewActivityLogger(store.ActivityLogRepo())

	env := &testEnv{
		store:    store,
		cache:    cache,
		activity: activity,
		now:      time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
	}
	env.generator = NewCodeGenerator(store.Questions(), store.TxManager(), activity, CodeGeneratorConfig{})
	env.gate = NewActivationGate(store.TxManager(), activity)
	env.tracker = NewSessionTracker(store.TestCodes(), store.Results(), store.Questions(), cache, DefaultSessionGrace)
	env.scorer = NewSubmissionScorer(store.TestCodes(), store.Results(), store.Questions(), store.TxManager(), env.tracker, activity)
	env.results = NewResultService(store.Results(), store.TestCodes())

	clock := func() time.Time { return env.now }
	env.gate.clock = clock
	env.tracker.clock = clock
	env.scorer.clock = clock
	cache.SetClock(clock)
	// Без перемешивания порядок вопросов детерминирован
	env.tracker.shuffle = func(int, func(i, j int)) {}
	return env
}

// seedQuestions добавляет n вопросов; правильный ответ у всех "A"
func (e *testEnv) seedQuestions(n int, c entity.Classification) []entity.Question {
	questions := make([]entity.Question, n)
	for i := range questions {
		questions[i] = entity.Question{
			Classification: c,
			Text:           fmt.Sprintf("Question %d", i+1),
			OptionA:        "a",
			OptionB:        "b",
			OptionC:        "c",
			OptionD:        "d",
			CorrectOption:  entity.OptionA,
		}
	}
	return e.store.AddQuestions(questions...)
}

// seedCode создает код напрямую в хранилище
func (e *testEnv) seedCode(t *testing.T, value string, active bool) *entity.TestCode {
	t.Helper()
	code := &entity.TestCode{
		Code:             value,
		Classification:   testClassification,
		NumQuestions:     10,
		ScorePerQuestion: 2,
		Duration:         30,
		Active:           active,
		CreatedBy:        1,
	}
	require.NoError(t, e.store.TestCodes().Create(context.Background(), code))
	return code
}

// seedResult добавляет результат по коду
func (e *testEnv) seedResult(t *testing.T, studentID, testCodeID uint) {
	t.Helper()
	result := &entity.TestResult{
		StudentID:   studentID,
		TestCodeID:  testCodeID,
		Score:       10,
		TotalScore:  20,
		AnswersJSON: []byte(`{}`),
	}
	require.NoError(t, e.store.Results().Create(context.Background(), result))
}

func (e *testEnv) getCode(t *testing.T, id uint) *entity.TestCode {
	t.Helper()
	code, err := e.store.TestCodes().GetByID(context.Background(), id)
	require.NoError(t, err)
	return code
}

func (e *testEnv) countCodes(t *testing.T) int64 {
	t.Helper()
	_, total, err := e.store.TestCodes().List(context.Background(), repository.TestCodeFilters{}, 0, 0)
	require.NoError(t, err)
	return total
}

// tokenSequence возвращает заданные токены по очереди, последний повторяется
func tokenSequence(tokens ...string) func() string {
	i := 0
	return func() string {
		token := tokens[i]
		if i < len(tokens)-1 {
			i++
		}
		return token
	}
}

// ============================================================================
// Моки
// ============================================================================

// MockCacheRepository реализует repository.CacheRepository
type MockCacheRepository struct {
	mock.Mock
}

func (m *MockCacheRepository) Delete(ctx context.Context, keys ...string) error {
	args := m.Called(ctx, keys)
	return args.Error(0)
}

func (m *MockCacheRepository) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	args := m.Called(ctx, key, value, expiration)
	return args.Error(0)
}

func (m *MockCacheRepository) GetJSON(ctx context.Context, key string, dest interface{}) error {
	args := m.Called(ctx, key, dest)
	return args.Error(0)
}

func (m *MockCacheRepository) HSet(ctx context.Context, key, field, value string, expiration time.Duration) error {
	args := m.Called(ctx, key, field, value, expiration)
	return args.Error(0)
}

func (m *MockCacheRepository) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]string), args.Error(1)
}

func (m *MockCacheRepository) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	args := m.Called(ctx, key, window)
	return args.Get(0).(int64), args.Error(1)
}

// MockTestCodeRepository реализует repository.TestCodeRepository
type MockTestCodeRepository struct {
	mock.Mock
}

func (m *MockTestCodeRepository) Create(ctx context.Context, code *entity.TestCode) error {
	args := m.Called(ctx, code)
	return args.Error(0)
}

func (m *MockTestCodeRepository) GetByID(ctx context.Context, id uint) (*entity.TestCode, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.TestCode), args.Error(1)
}

func (m *MockTestCodeRepository) GetByIDForUpdate(ctx context.Context, id uint) (*entity.TestCode, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.TestCode), args.Error(1)
}

func (m *MockTestCodeRepository) GetByCode(ctx context.Context, value string) (*entity.TestCode, error) {
	args := m.Called(ctx, value)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.TestCode), args.Error(1)
}

func (m *MockTestCodeRepository) CodeExists(ctx context.Context, value string) (bool, error) {
	args := m.Called(ctx, value)
	return args.Bool(0), args.Error(1)
}

func (m *MockTestCodeRepository) SetActive(ctx context.Context, id uint, active bool, at time.Time) error {
	args := m.Called(ctx, id, active, at)
	return args.Error(0)
}

func (m *MockTestCodeRepository) List(ctx context.Context, filters repository.TestCodeFilters, limit, offset int) ([]entity.TestCode, int64, error) {
	args := m.Called(ctx, filters, limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]entity.TestCode), args.Get(1).(int64), args.Error(2)
}

// MockActivityLogRepository реализует repository.ActivityLogRepository
type MockActivityLogRepository struct {
	mock.Mock
}

func (m *MockActivityLogRepository) Create(ctx context.Context, entry *entity.ActivityLog) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

// mockTx — транзакция поверх мок-репозиториев, точка сохранения просто вызывает fn
type mockTx struct {
	codes   repository.TestCodeRepository
	results repository.ResultRepository
}

func (t *mockTx) TestCodes() repository.TestCodeRepository { return t.codes }

func (t *mockTx) Results() repository.ResultRepository { return t.results }

func (t *mockTx) Savepoint(ctx context.Context, fn func(tx repository.Tx) error) error {
	return fn(t)
}

type mockTxManager struct {
	tx *mockTx
}

func (m *mockTxManager) WithinTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	return fn(m.tx)
}
