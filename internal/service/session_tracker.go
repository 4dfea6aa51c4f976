package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/cbt-api/internal/domain/entity"
	"github.com/yourusername/cbt-api/internal/domain/repository"
	apperrors "github.com/yourusername/cbt-api/internal/pkg/errors"
)

// Ключи в кеше
const (
	sessionKeyFormat = "cbt:session:student:%d"
	answersKeyFormat = "cbt:session:%s:answers"
)

// DefaultSessionGrace — запас поверх длительности теста на сетевые задержки
const DefaultSessionGrace = 5 * time.Minute

func sessionKey(studentID uint) string {
	return fmt.Sprintf(sessionKeyFormat, studentID)
}

func answersKey(sessionID string) string {
	return fmt.Sprintf(answersKeyFormat, sessionID)
}

// StartedSession — то, что получает студент при входе по коду
type StartedSession struct {
	Session   *entity.TestSession
	TestCode  *entity.TestCode
	Questions []entity.Question
	Answers   map[string]string
	Resumed   bool
}

// SessionTracker хранит текущую попытку студента в кеше (Redis).
// У студента не больше одной отслеживаемой сессии, ключ — ID студента.
type SessionTracker struct {
	codes     repository.TestCodeRepository
	results   repository.ResultRepository
	questions repository.QuestionRepository
	cache     repository.CacheRepository
	grace     time.Duration
	clock     func() time.Time
	shuffle   func(n int, swap func(i, j int))
	newID     func() string
}

// NewSessionTracker создает трекер сессий
func NewSessionTracker(
	codes repository.TestCodeRepository,
	results repository.ResultRepository,
	questions repository.QuestionRepository,
	cache repository.CacheRepository,
	grace time.Duration,
) *SessionTracker {
	if grace < 0 {
		grace = DefaultSessionGrace
	}
	return &SessionTracker{
		codes:     codes,
		results:   results,
		questions: questions,
		cache:     cache,
		grace:     grace,
		clock:     time.Now,
		shuffle:   rand.Shuffle,
		newID:     uuid.NewString,
	}
}

// Start начинает попытку по коду. Живая сессия по тому же коду возвращается повторно.
func (t *SessionTracker) Start(ctx context.Context, studentID uint, rawCode string) (*StartedSession, error) {
	value := strings.ToUpper(strings.TrimSpace(rawCode))
	if value == "" {
		return nil, fmt.Errorf("%w: code is required", apperrors.ErrValidation)
	}

	code, err := t.codes.GetByCode(ctx, value)
	if err != nil {
		return nil, err
	}
	if !code.IsUsable() {
		return nil, apperrors.ErrTestInactive
	}

	submitted, err := t.results.Exists(ctx, studentID, code.ID)
	if err != nil {
		return nil, err
	}
	if submitted {
		return nil, apperrors.ErrAlreadySubmitted
	}

	now := t.clock()
	existing, err := t.Current(ctx, studentID)
	switch {
	case err == nil && existing.TestCodeID == code.ID && !existing.IsExpired(now):
		return t.resume(ctx, existing, code)
	case err == nil:
		// Сессия по другому коду или просроченная заменяется новой
		if delErr := t.cache.Delete(ctx, answersKey(existing.ID)); delErr != nil {
			log.Printf("[SessionTracker] Не удалось удалить ответы старой сессии %s: %v", existing.ID, delErr)
		}
	case !errors.Is(err, apperrors.ErrNotFound):
		return nil, err
	}

	bank, err := t.questions.GetByClassification(ctx, code.Classification)
	if err != nil {
		return nil, err
	}
	if len(bank) < code.NumQuestions {
		return nil, &apperrors.InsufficientQuestionsError{Available: int64(len(bank)), Required: code.NumQuestions}
	}
	t.shuffle(len(bank), func(i, j int) { bank[i], bank[j] = bank[j], bank[i] })
	assigned := bank[:code.NumQuestions]

	ids := make([]uint, len(assigned))
	for i := range assigned {
		ids[i] = assigned[i].ID
	}
	session := &entity.TestSession{
		ID:          t.newID(),
		StudentID:   studentID,
		TestCodeID:  code.ID,
		StartTime:   now,
		ExpiresAt:   now.Add(time.Duration(code.Duration)*time.Minute + t.grace),
		QuestionIDs: ids,
	}
	if err := t.cache.SetJSON(ctx, sessionKey(studentID), session, session.ExpiresAt.Sub(now)); err != nil {
		return nil, apperrors.NewStoreError("session.save", err)
	}
	log.Printf("[SessionTracker] Студент %d начал тест по коду %s (сессия %s)", studentID, code.Code, session.ID)

	return &StartedSession{
		Session:   session,
		TestCode:  code,
		Questions: assigned,
		Answers:   map[string]string{},
	}, nil
}

func (t *SessionTracker) resume(ctx context.Context, session *entity.TestSession, code *entity.TestCode) (*StartedSession, error) {
	questions, err := t.questions.GetByIDs(ctx, session.QuestionIDs)
	if err != nil {
		return nil, err
	}
	answers, err := t.CachedAnswers(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	return &StartedSession{
		Session:   session,
		TestCode:  code,
		Questions: orderByIDs(questions, session.QuestionIDs),
		Answers:   answers,
		Resumed:   true,
	}, nil
}

// Current возвращает отслеживаемую сессию студента или apperrors.ErrNotFound
func (t *SessionTracker) Current(ctx context.Context, studentID uint) (*entity.TestSession, error) {
	var session entity.TestSession
	if err := t.cache.GetJSON(ctx, sessionKey(studentID), &session); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewStoreError("session.get", err)
	}
	return &session, nil
}

// Validate проверяет, что sessionID — текущая живая сессия студента по коду testCodeID
func (t *SessionTracker) Validate(ctx context.Context, studentID uint, sessionID string, testCodeID uint) (*entity.TestSession, error) {
	session, err := t.Current(ctx, studentID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, apperrors.ErrInvalidSession
	}
	if err != nil {
		return nil, err
	}
	if sessionID == "" || session.ID != sessionID || session.TestCodeID != testCodeID {
		return nil, apperrors.ErrInvalidSession
	}
	if session.IsExpired(t.clock()) {
		return nil, apperrors.ErrInvalidSession
	}
	return session, nil
}

// SaveAnswer сохраняет промежуточный ответ на вопрос из назначенного набора
func (t *SessionTracker) SaveAnswer(ctx context.Context, studentID uint, sessionID string, testCodeID, questionID uint, answer string) error {
	session, err := t.Validate(ctx, studentID, sessionID, testCodeID)
	if err != nil {
		return err
	}
	if !containsID(session.QuestionIDs, questionID) {
		return fmt.Errorf("%w: question %d is not part of this test", apperrors.ErrValidation, questionID)
	}
	switch answer {
	case entity.OptionA, entity.OptionB, entity.OptionC, entity.OptionD:
	default:
		return fmt.Errorf("%w: answer must be one of A, B, C, D", apperrors.ErrValidation)
	}

	ttl := session.ExpiresAt.Sub(t.clock())
	field := fmt.Sprintf("%d", questionID)
	if err := t.cache.HSet(ctx, answersKey(session.ID), field, answer, ttl); err != nil {
		return apperrors.NewStoreError("session.save_answer", err)
	}
	return nil
}

// CachedAnswers возвращает промежуточные ответы сессии
func (t *SessionTracker) CachedAnswers(ctx context.Context, sessionID string) (map[string]string, error) {
	answers, err := t.cache.HGetAll(ctx, answersKey(sessionID))
	if err != nil {
		return nil, apperrors.NewStoreError("session.answers", err)
	}
	return answers, nil
}

// Destroy удаляет сессию студента и её промежуточные ответы
func (t *SessionTracker) Destroy(ctx context.Context, studentID uint, sessionID string) error {
	return t.cache.Delete(ctx, sessionKey(studentID), answersKey(sessionID))
}

func containsID(ids []uint, id uint) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// orderByIDs восстанавливает порядок вопросов, назначенный при старте
func orderByIDs(questions []entity.Question, ids []uint) []entity.Question {
	byID := make(map[uint]entity.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}
	ordered := make([]entity.Question, 0, len(ids))
	for _, id := range ids {
		if q, ok := byID[id]; ok {
			ordered = append(ordered, q)
		}
	}
	return ordered
}
