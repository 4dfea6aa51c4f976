package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/datatypes"

	"github.com/yourusername/cbt-api/internal/domain/entity"
	"github.com/yourusername/cbt-api/internal/domain/repository"
	apperrors "github.com/yourusername/cbt-api/internal/pkg/errors"
)

// SubmitRequest — отправка теста студентом
type SubmitRequest struct {
	SessionID  string
	TestCodeID uint
	StudentID  uint
	Answers    map[string]string
}

// SubmitResult — сохраненный результат и процент
type SubmitResult struct {
	Result     *entity.TestResult
	Percentage float64
}

// SubmissionScorer проверяет отправку, считает баллы и сохраняет результат.
// На пару (студент, код) приходится не больше одного результата.
type SubmissionScorer struct {
	codes     repository.TestCodeRepository
	results   repository.ResultRepository
	questions repository.QuestionRepository
	txManager repository.TxManager
	sessions  *SessionTracker
	activity  *ActivityLogger
	clock     func() time.Time
}

// NewSubmissionScorer создает сервис приема ответов
func NewSubmissionScorer(
	codes repository.TestCodeRepository,
	results repository.ResultRepository,
	questions repository.QuestionRepository,
	txManager repository.TxManager,
	sessions *SessionTracker,
	activity *ActivityLogger,
) *SubmissionScorer {
	return &SubmissionScorer{
		codes:     codes,
		results:   results,
		questions: questions,
		txManager: txManager,
		sessions:  sessions,
		activity:  activity,
		clock:     time.Now,
	}
}

// Submit принимает ответы. Сессия удаляется только после успешного коммита
// или при отказе из-за повторной отправки.
func (s *SubmissionScorer) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	// 1. Сессия. Повторная отправка после успешной приходит уже без сессии,
	// поэтому при невалидной сессии сначала проверяем, нет ли результата.
	session, err := s.sessions.Validate(ctx, req.StudentID, req.SessionID, req.TestCodeID)
	if errors.Is(err, apperrors.ErrInvalidSession) {
		exists, existsErr := s.results.Exists(ctx, req.StudentID, req.TestCodeID)
		if existsErr != nil {
			return nil, existsErr
		}
		if exists {
			return nil, apperrors.ErrAlreadySubmitted
		}
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	// 2. Быстрая проверка повторной отправки
	exists, err := s.results.Exists(ctx, req.StudentID, req.TestCodeID)
	if err != nil {
		return nil, err
	}
	if exists {
		s.destroySession(ctx, req.StudentID, session.ID)
		return nil, apperrors.ErrAlreadySubmitted
	}

	// 3. Код должен быть активен
	code, err := s.codes.GetByID(ctx, req.TestCodeID)
	if err != nil {
		return nil, err
	}
	if !code.IsUsable() {
		return nil, apperrors.ErrTestInactive
	}

	// 4. Ключ ответов по всему банку классификации
	bank, err := s.questions.GetByClassification(ctx, code.Classification)
	if err != nil {
		return nil, err
	}
	index := entity.IndexByKey(bank)

	// 5. Подсчет
	cached, err := s.sessions.CachedAnswers(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	answers := answersToScore(cached, req.Answers)
	score := ScoreAnswers(index, answers, code.ScorePerQuestion)

	answersJSON, err := json.Marshal(answers)
	if err != nil {
		return nil, fmt.Errorf("%w: answers cannot be encoded", apperrors.ErrValidation)
	}

	now := s.clock()
	result := &entity.TestResult{
		StudentID:         req.StudentID,
		TestCodeID:        code.ID,
		Score:             score.Score,
		TotalScore:        code.TotalScore(),
		TimeTaken:         session.Elapsed(now),
		QuestionsAnswered: score.Answered,
		CorrectAnswers:    score.Correct,
		WrongAnswers:      score.Wrong,
		AnswersJSON:       datatypes.JSON(answersJSON),
		CompletedAt:       now,
	}

	// 6. Сохранение. Уникальный индекс (student_id, test_code_id) решает гонку двух отправок.
	err = s.txManager.WithinTx(ctx, func(tx repository.Tx) error {
		return tx.Results().Create(ctx, result)
	})
	if errors.Is(err, repository.ErrDuplicateKey) {
		log.Printf("[SubmissionScorer] Повторная отправка студентом %d по коду %d отклонена индексом", req.StudentID, code.ID)
		s.destroySession(ctx, req.StudentID, session.ID)
		return nil, apperrors.ErrAlreadySubmitted
	}
	if err != nil {
		log.Printf("[SubmissionScorer] Ошибка сохранения результата студента %d по коду %d: %v", req.StudentID, code.ID, err)
		return nil, apperrors.NewStoreError("test_results.create", err)
	}

	s.destroySession(ctx, req.StudentID, session.ID)
	s.activity.Log(ctx, req.StudentID, ActionTestSubmitted, fmt.Sprintf(
		"Submitted test code %s: %d/%d", code.Code, result.Score, result.TotalScore,
	))

	return &SubmitResult{Result: result, Percentage: result.Percentage()}, nil
}

// destroySession удаляет сессию; ошибка кеша не влияет на уже принятый результат
func (s *SubmissionScorer) destroySession(ctx context.Context, studentID uint, sessionID string) {
	if err := s.sessions.Destroy(context.WithoutCancel(ctx), studentID, sessionID); err != nil {
		log.Printf("[SubmissionScorer] Не удалось удалить сессию %s студента %d: %v", sessionID, studentID, err)
	}
}
