package dto

import (
	"log"
	"time"

	"github.com/yourusername/cbt-api/internal/domain/entity"
	"github.com/yourusername/cbt-api/internal/handler/helper"
)

// StartTestRequest — вход студента по коду
type StartTestRequest struct {
	Code string `json:"code" binding:"required"`
}

// SaveAnswerRequest — промежуточное сохранение ответа
type SaveAnswerRequest struct {
	SessionID  string `json:"session_id" binding:"required"`
	TestCodeID uint   `json:"test_code_id" binding:"required"`
	QuestionID uint   `json:"question_id" binding:"required"`
	Answer     string `json:"answer" binding:"required"`
}

// SubmitTestRequest — отправка теста. Ключи answers — ID вопросов строкой.
type SubmitTestRequest struct {
	SessionID  string            `json:"session_id" binding:"required"`
	TestCodeID uint              `json:"test_code_id" binding:"required"`
	Answers    map[string]string `json:"answers"`
}

// QuestionResponse — вопрос без правильного ответа
type QuestionResponse struct {
	ID      uint                    `json:"id"`
	Text    string                  `json:"text"`
	Options []helper.QuestionOption `json:"options"`
}

// TestInfoResponse — сведения о тесте, которые видит студент
type TestInfoResponse struct {
	ID           uint   `json:"id"`
	Code         string `json:"code"`
	Class        string `json:"class"`
	Subject      string `json:"subject"`
	Term         string `json:"term"`
	Session      string `json:"session"`
	TestType     string `json:"test_type"`
	NumQuestions int    `json:"num_questions"`
	TotalScore   int    `json:"total_score"`
	Duration     int    `json:"duration"`
}

// SessionResponse — начатая или продолженная попытка
type SessionResponse struct {
	SessionID    string              `json:"session_id"`
	StartTime    time.Time           `json:"start_time"`
	ExpiresAt    time.Time           `json:"expires_at"`
	Resumed      bool                `json:"resumed"`
	Test         *TestInfoResponse   `json:"test"`
	Questions    []*QuestionResponse `json:"questions"`
	SavedAnswers map[string]string   `json:"saved_answers"`
}

// ResultResponse представляет результат теста в формате для ответа клиенту
type ResultResponse struct {
	ID                uint              `json:"id"`
	StudentID         uint              `json:"student_id"`
	TestCodeID        uint              `json:"test_code_id"`
	Score             int               `json:"score"`
	TotalScore        int               `json:"total_score"`
	Percentage        float64           `json:"percentage"`
	TimeTaken         int               `json:"time_taken"`
	QuestionsAnswered int               `json:"questions_answered"`
	CorrectAnswers    int               `json:"correct_answers"`
	WrongAnswers      int               `json:"wrong_answers"`
	Answers           map[string]string `json:"answers,omitempty"`
	CompletedAt       time.Time         `json:"completed_at"`
}

// PaginatedResultResponse представляет пагинированный список результатов
type PaginatedResultResponse struct {
	TestCode *TestCodeResponse `json:"test_code"`
	Results  []*ResultResponse `json:"results"`
	Total    int64             `json:"total"`
	Page     int               `json:"page"`
	PerPage  int               `json:"per_page"`
}

// NewQuestionResponse создает DTO для вопроса
func NewQuestionResponse(q *entity.Question) *QuestionResponse {
	return &QuestionResponse{
		ID:      q.ID,
		Text:    q.Text,
		Options: helper.ConvertOptionsToObjects(q),
	}
}

// NewTestInfoResponse создает DTO теста для студента
func NewTestInfoResponse(code *entity.TestCode) *TestInfoResponse {
	return &TestInfoResponse{
		ID:           code.ID,
		Code:         code.Code,
		Class:        code.Class,
		Subject:      code.Subject,
		Term:         code.Term,
		Session:      code.Session,
		TestType:     code.TestType,
		NumQuestions: code.NumQuestions,
		TotalScore:   code.TotalScore(),
		Duration:     code.Duration,
	}
}

// NewSessionResponse собирает ответ на старт теста
func NewSessionResponse(session *entity.TestSession, code *entity.TestCode, questions []entity.Question, answers map[string]string, resumed bool) *SessionResponse {
	items := make([]*QuestionResponse, 0, len(questions))
	for i := range questions {
		items = append(items, NewQuestionResponse(&questions[i]))
	}
	if answers == nil {
		answers = map[string]string{}
	}
	return &SessionResponse{
		SessionID:    session.ID,
		StartTime:    session.StartTime,
		ExpiresAt:    session.ExpiresAt,
		Resumed:      resumed,
		Test:         NewTestInfoResponse(code),
		Questions:    items,
		SavedAnswers: answers,
	}
}

// NewResultResponse создает DTO результата. withAnswers добавляет сохраненную карту ответов.
func NewResultResponse(r *entity.TestResult, withAnswers bool) *ResultResponse {
	resp := &ResultResponse{
		ID:                r.ID,
		StudentID:         r.StudentID,
		TestCodeID:        r.TestCodeID,
		Score:             r.Score,
		TotalScore:        r.TotalScore,
		Percentage:        r.Percentage(),
		TimeTaken:         r.TimeTaken,
		QuestionsAnswered: r.QuestionsAnswered,
		CorrectAnswers:    r.CorrectAnswers,
		WrongAnswers:      r.WrongAnswers,
		CompletedAt:       r.CompletedAt,
	}
	if withAnswers {
		answers, err := r.Answers()
		if err != nil {
			log.Printf("[ResultResponse] Не удалось разобрать answers_json результата %d: %v", r.ID, err)
		} else {
			resp.Answers = answers
		}
	}
	return resp
}

// NewResultListResponse создает список DTO результатов
func NewResultListResponse(results []entity.TestResult) []*ResultResponse {
	list := make([]*ResultResponse, 0, len(results))
	for i := range results {
		list = append(list, NewResultResponse(&results[i], false))
	}
	return list
}
