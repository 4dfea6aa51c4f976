package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/cbt-api/internal/domain/entity"
	apperrors "github.com/yourusername/cbt-api/internal/pkg/errors"
	"github.com/yourusername/cbt-api/internal/repository/memory"
)

// startSession начинает тест по коду AB12CD34 (10 вопросов по 2 балла) для студента 42
func startSession(t *testing.T, env *testEnv) *StartedSession {
	t.Helper()
	env.seedCode(t, "AB12CD34", true)
	started, err := env.tracker.Start(context.Background(), 42, "AB12CD34")
	require.NoError(t, err)
	return started
}

// answersWithCorrect отвечает на все вопросы, первые correct — правильно
func answersWithCorrect(questions []entity.Question, correct int) map[string]string {
	answers := make(map[string]string, len(questions))
	for i, q := range questions {
		if i < correct {
			answers[q.Key()] = q.CorrectOption
		} else {
			answers[q.Key()] = entity.OptionB
		}
	}
	return answers
}

func TestSubmissionScorer_Submit_Scoring(t *testing.T) {
	// Arrange: 10 вопросов по 2 балла, 7 правильных
	env := newTestEnv(t)
	env.seedQuestions(10, testClassification)
	started := startSession(t, env)
	answers := answersWithCorrect(started.Questions, 7)
	env.now = env.now.Add(12*time.Minute + 30*time.Second + 400*time.Millisecond)

	// Act
	submitted, err := env.scorer.Submit(context.Background(), SubmitRequest{
		SessionID:  started.Session.ID,
		TestCodeID: started.TestCode.ID,
		StudentID:  42,
		Answers:    answers,
	})

	// Assert
	require.NoError(t, err)
	result := submitted.Result
	assert.Equal(t, 14, result.Score)
	assert.Equal(t, 20, result.TotalScore)
	assert.Equal(t, 70.0, submitted.Percentage)
	assert.Equal(t, 7, result.CorrectAnswers)
	assert.Equal(t, 3, result.WrongAnswers)
	assert.Equal(t, 10, result.QuestionsAnswered)
	assert.Equal(t, 750, result.TimeTaken, "Время считается в целых секундах")
	assert.Equal(t, env.now, result.CompletedAt)

	stored, err := env.results.GetStudentResult(context.Background(), 42, started.TestCode.ID)
	require.NoError(t, err)
	assert.Equal(t, 14, stored.Score)

	_, err = env.tracker.Current(context.Background(), 42)
	assert.ErrorIs(t, err, apperrors.ErrNotFound, "Сессия удаляется после успешной отправки")
}

func TestSubmissionScorer_Submit_AnswersJSONRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	env.seedQuestions(10, testClassification)
	started := startSession(t, env)
	answers := map[string]string{
		started.Questions[0].Key(): "A",
		started.Questions[1].Key(): "c",
		"not-a-question":           "A",
	}

	submitted, err := env.scorer.Submit(context.Background(), SubmitRequest{
		SessionID:  started.Session.ID,
		TestCodeID: started.TestCode.ID,
		StudentID:  42,
		Answers:    answers,
	})
	require.NoError(t, err)

	stored, err := env.results.GetStudentResult(context.Background(), 42, started.TestCode.ID)
	require.NoError(t, err)
	decoded, err := stored.Answers()
	require.NoError(t, err)
	assert.Equal(t, answers, decoded, "answers_json хранит отправленную карту без изменений")
	assert.Equal(t, 1, submitted.Result.CorrectAnswers, "Сравнение чувствительно к регистру")
	assert.Equal(t, 1, submitted.Result.WrongAnswers)
}

func TestSubmissionScorer_Submit_UnknownQuestionsIgnored(t *testing.T) {
	// Arrange: вопросы из другой классификации и несуществующие ID
	env := newTestEnv(t)
	env.seedQuestions(10, testClassification)
	other := testClassification
	other.Subject = "Biology"
	foreign := env.seedQuestions(3, other)
	started := startSession(t, env)

	answers := answersWithCorrect(started.Questions[:2], 2)
	answers[foreign[0].Key()] = foreign[0].CorrectOption
	answers["100000"] = "A"

	// Act
	submitted, err := env.scorer.Submit(context.Background(), SubmitRequest{
		SessionID:  started.Session.ID,
		TestCodeID: started.TestCode.ID,
		StudentID:  42,
		Answers:    answers,
	})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 4, submitted.Result.Score)
	assert.Equal(t, 2, submitted.Result.QuestionsAnswered, "Неизвестные вопросы не учитываются")
	assert.Equal(t, 0, submitted.Result.WrongAnswers)
}

func TestSubmissionScorer_Submit_ScoresAgainstWholeBank(t *testing.T) {
	// Ответ на вопрос банка, не попавший в выдачу, все равно засчитывается
	env := newTestEnv(t)
	env.seedQuestions(12, testClassification)
	started := startSession(t, env)

	submitted, err := env.scorer.Submit(context.Background(), SubmitRequest{
		SessionID:  started.Session.ID,
		TestCodeID: started.TestCode.ID,
		StudentID:  42,
		Answers:    map[string]string{"12": "A"},
	})

	require.NoError(t, err)
	assert.Equal(t, 2, submitted.Result.Score)
}

func TestSubmissionScorer_Submit_Idempotence(t *testing.T) {
	env := newTestEnv(t)
	env.seedQuestions(10, testClassification)
	started := startSession(t, env)
	req := SubmitRequest{
		SessionID:  started.Session.ID,
		TestCodeID: started.TestCode.ID,
		StudentID:  42,
		Answers:    answersWithCorrect(started.Questions, 5),
	}

	_, err := env.scorer.Submit(context.Background(), req)
	require.NoError(t, err)

	// Повтор с той же сессией: сессии уже нет, но результат есть
	second, err := env.scorer.Submit(context.Background(), req)
	assert.ErrorIs(t, err, apperrors.ErrAlreadySubmitted)
	assert.Nil(t, second)

	count, err := env.store.Results().CountByTestCode(context.Background(), started.TestCode.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count, "Должен остаться ровно один результат")
}

func TestSubmissionScorer_Submit_ExistingResultDestroysSession(t *testing.T) {
	// Arrange: результат появился после старта сессии
	env := newTestEnv(t)
	env.seedQuestions(10, testClassification)
	started := startSession(t, env)
	env.seedResult(t, 42, started.TestCode.ID)

	// Act
	_, err := env.scorer.Submit(context.Background(), SubmitRequest{
		SessionID:  started.Session.ID,
		TestCodeID: started.TestCode.ID,
		StudentID:  42,
		Answers:    map[string]string{},
	})

	// Assert
	assert.ErrorIs(t, err, apperrors.ErrAlreadySubmitted)
	_, err = env.tracker.Current(context.Background(), 42)
	assert.ErrorIs(t, err, apperrors.ErrNotFound, "Сессия удаляется при отказе из-за повторной отправки")
}

func TestSubmissionScorer_Submit_UniqueIndexIsAuthoritative(t *testing.T) {
	// Arrange: предварительная проверка не видит результат (гонка), вставка упирается в индекс
	env := newTestEnv(t)
	env.seedQuestions(10, testClassification)
	started := startSession(t, env)
	env.seedResult(t, 42, started.TestCode.ID)

	scorer := NewSubmissionScorer(env.store.TestCodes(), &racingResults{ResultRepo: env.store.Results()},
		env.store.Questions(), env.store.TxManager(), env.tracker, env.activity)
	scorer.clock = env.scorer.clock

	// Act
	_, err := scorer.Submit(context.Background(), SubmitRequest{
		SessionID:  started.Session.ID,
		TestCodeID: started.TestCode.ID,
		StudentID:  42,
		Answers:    answersWithCorrect(started.Questions, 10),
	})

	// Assert
	assert.ErrorIs(t, err, apperrors.ErrAlreadySubmitted)
	count, err := env.store.Results().CountByTestCode(context.Background(), started.TestCode.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	_, err = env.tracker.Current(context.Background(), 42)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestSubmissionScorer_Submit_InvalidSession(t *testing.T) {
	env := newTestEnv(t)
	env.seedQuestions(10, testClassification)
	started := startSession(t, env)
	other := env.seedCode(t, "EF56AB78", true)

	testCases := []struct {
		name string
		req  SubmitRequest
	}{
		{"wrong session id", SubmitRequest{SessionID: "forged", TestCodeID: started.TestCode.ID, StudentID: 42}},
		{"empty session id", SubmitRequest{SessionID: "", TestCodeID: started.TestCode.ID, StudentID: 42}},
		{"other test code", SubmitRequest{SessionID: started.Session.ID, TestCodeID: other.ID, StudentID: 42}},
		{"other student", SubmitRequest{SessionID: started.Session.ID, TestCodeID: started.TestCode.ID, StudentID: 43}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.scorer.Submit(context.Background(), tc.req)
			assert.ErrorIs(t, err, apperrors.ErrInvalidSession)
		})
	}

	_, err := env.tracker.Current(context.Background(), 42)
	assert.NoError(t, err, "Отклоненная отправка не меняет состояние")
}

func TestSubmissionScorer_Submit_MismatchedSessionAfterResult(t *testing.T) {
	// Результат уже сохранен: неверная сессия сообщает о повторной отправке,
	// живая сессия и результат не меняются
	env := newTestEnv(t)
	env.seedQuestions(10, testClassification)
	started := startSession(t, env)
	env.seedResult(t, 42, started.TestCode.ID)

	_, err := env.scorer.Submit(context.Background(), SubmitRequest{
		SessionID:  "forged",
		TestCodeID: started.TestCode.ID,
		StudentID:  42,
		Answers:    answersWithCorrect(started.Questions, 10),
	})

	assert.ErrorIs(t, err, apperrors.ErrAlreadySubmitted)
	assert.NotErrorIs(t, err, apperrors.ErrInvalidSession)
	session, err := env.tracker.Current(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, started.Session.ID, session.ID)
	count, err := env.store.Results().CountByTestCode(context.Background(), started.TestCode.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestSubmissionScorer_Submit_InactiveCode(t *testing.T) {
	env := newTestEnv(t)
	env.seedQuestions(10, testClassification)
	started := startSession(t, env)
	_, err := env.gate.Deactivate(context.Background(), started.TestCode.ID, 1)
	require.NoError(t, err)

	_, err = env.scorer.Submit(context.Background(), SubmitRequest{
		SessionID:  started.Session.ID,
		TestCodeID: started.TestCode.ID,
		StudentID:  42,
		Answers:    map[string]string{},
	})

	assert.ErrorIs(t, err, apperrors.ErrTestInactive)
	_, err = env.tracker.Current(context.Background(), 42)
	assert.NoError(t, err)
}

func TestSubmissionScorer_Submit_StoreFailureKeepsSession(t *testing.T) {
	env := newTestEnv(t)
	env.seedQuestions(10, testClassification)
	started := startSession(t, env)
	env.store.SetFault(func(op string) error {
		if op == "test_results.create" {
			return errors.New("could not serialize access")
		}
		return nil
	})

	_, err := env.scorer.Submit(context.Background(), SubmitRequest{
		SessionID:  started.Session.ID,
		TestCodeID: started.TestCode.ID,
		StudentID:  42,
		Answers:    answersWithCorrect(started.Questions, 3),
	})

	assert.ErrorIs(t, err, apperrors.ErrStoreUnavailable)
	env.store.SetFault(nil)
	session, err := env.tracker.Current(context.Background(), 42)
	require.NoError(t, err, "Сессия должна сохраниться для повторной попытки")
	assert.Equal(t, started.Session.ID, session.ID)
	exists, err := env.store.Results().Exists(context.Background(), 42, started.TestCode.ID)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestSubmissionScorer_Submit_ScoresOnlySubmittedAnswers(t *testing.T) {
	env := newTestEnv(t)
	env.seedQuestions(10, testClassification)
	started := startSession(t, env)
	ctx := context.Background()
	s := started.Session
	require.NoError(t, env.tracker.SaveAnswer(ctx, 42, s.ID, s.TestCodeID, s.QuestionIDs[0], "A"))
	require.NoError(t, env.tracker.SaveAnswer(ctx, 42, s.ID, s.TestCodeID, s.QuestionIDs[1], "A"))

	// Ответ на первый вопрос студент убрал перед отправкой, второй изменил
	submittedAnswers := map[string]string{started.Questions[1].Key(): "D"}
	submitted, err := env.scorer.Submit(ctx, SubmitRequest{
		SessionID:  s.ID,
		TestCodeID: s.TestCodeID,
		StudentID:  42,
		Answers:    submittedAnswers,
	})

	require.NoError(t, err)
	assert.Zero(t, submitted.Result.Score)
	assert.Equal(t, 0, submitted.Result.CorrectAnswers)
	assert.Equal(t, 1, submitted.Result.WrongAnswers)
	assert.Equal(t, 1, submitted.Result.QuestionsAnswered)

	stored, err := env.store.Results().GetByStudentAndCode(ctx, 42, s.TestCodeID)
	require.NoError(t, err)
	storedAnswers, err := stored.Answers()
	require.NoError(t, err)
	assert.Equal(t, submittedAnswers, storedAnswers, "answers_json совпадает с отправленными ответами")

	cached, err := env.tracker.CachedAnswers(ctx, s.ID)
	require.NoError(t, err)
	assert.Empty(t, cached, "Промежуточные ответы удаляются вместе с сессией")
}

func TestSubmissionScorer_Submit_EmptySubmissionUsesSavedAnswers(t *testing.T) {
	env := newTestEnv(t)
	env.seedQuestions(10, testClassification)
	started := startSession(t, env)
	ctx := context.Background()
	s := started.Session
	require.NoError(t, env.tracker.SaveAnswer(ctx, 42, s.ID, s.TestCodeID, s.QuestionIDs[0], "A"))
	require.NoError(t, env.tracker.SaveAnswer(ctx, 42, s.ID, s.TestCodeID, s.QuestionIDs[1], "C"))

	submitted, err := env.scorer.Submit(ctx, SubmitRequest{
		SessionID:  s.ID,
		TestCodeID: s.TestCodeID,
		StudentID:  42,
	})

	require.NoError(t, err)
	assert.Equal(t, 1, submitted.Result.CorrectAnswers)
	assert.Equal(t, 1, submitted.Result.WrongAnswers)
	assert.Equal(t, started.TestCode.ScorePerQuestion, submitted.Result.Score)
}

// racingResults скрывает существующий результат от предварительной проверки
type racingResults struct {
	*memory.ResultRepo
}

func (r *racingResults) Exists(ctx context.Context, studentID, testCodeID uint) (bool, error) {
	return false, nil
}
