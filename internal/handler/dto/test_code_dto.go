package dto

import (
	"time"

	"github.com/yourusername/cbt-api/internal/domain/entity"
)

// GenerateCodesRequest — запрос на генерацию партии кодов.
// Числовые поля проверяет сервис, чтобы ошибки валидации были единообразными.
type GenerateCodesRequest struct {
	Class            string `json:"class" binding:"required"`
	Subject          string `json:"subject" binding:"required"`
	Session          string `json:"session" binding:"required"`
	Term             string `json:"term" binding:"required"`
	TestType         string `json:"test_type" binding:"required"`
	NumQuestions     int    `json:"num_questions"`
	ScorePerQuestion int    `json:"score_per_question"`
	Duration         int    `json:"duration"`
	Count            int    `json:"count"`
}

// BatchOperationRequest — пакетная активация, деактивация или переключение
type BatchOperationRequest struct {
	TestCodeIDs []uint `json:"test_code_ids" binding:"required,min=1,max=100"`
	Operation   string `json:"operation" binding:"required,oneof=activate deactivate toggle"`
}

// TestCodeResponse представляет код в формате для ответа клиенту
type TestCodeResponse struct {
	ID               uint       `json:"id"`
	Code             string     `json:"code"`
	Class            string     `json:"class"`
	Subject          string     `json:"subject"`
	Session          string     `json:"session"`
	Term             string     `json:"term"`
	TestType         string     `json:"test_type"`
	NumQuestions     int        `json:"num_questions"`
	ScorePerQuestion int        `json:"score_per_question"`
	TotalScore       int        `json:"total_score"`
	Duration         int        `json:"duration"`
	Status           string     `json:"status"`
	Active           bool       `json:"active"`
	Disabled         bool       `json:"disabled"`
	ActivatedAt      *time.Time `json:"activated_at,omitempty"`
	DeactivatedAt    *time.Time `json:"deactivated_at,omitempty"`
	CreatedBy        uint       `json:"created_by"`
	CreatedAt        time.Time  `json:"created_at"`
}

// GeneratedCodesResponse — результат генерации
type GeneratedCodesResponse struct {
	Count     int                 `json:"count"`
	TestCodes []*TestCodeResponse `json:"test_codes"`
}

// TransitionResponse — результат одиночной смены статуса
type TransitionResponse struct {
	Action   string            `json:"action"`
	TestCode *TestCodeResponse `json:"test_code"`
}

// PaginatedTestCodeResponse представляет страницу кодов
type PaginatedTestCodeResponse struct {
	TestCodes []*TestCodeResponse `json:"test_codes"`
	Total     int64               `json:"total"`
	Page      int                 `json:"page"`
	PerPage   int                 `json:"per_page"`
}

// NewTestCodeResponse создает DTO для кода
func NewTestCodeResponse(code *entity.TestCode) *TestCodeResponse {
	if code == nil {
		return nil
	}
	return &TestCodeResponse{
		ID:               code.ID,
		Code:             code.Code,
		Class:            code.Class,
		Subject:          code.Subject,
		Session:          code.Session,
		Term:             code.Term,
		TestType:         code.TestType,
		NumQuestions:     code.NumQuestions,
		ScorePerQuestion: code.ScorePerQuestion,
		TotalScore:       code.TotalScore(),
		Duration:         code.Duration,
		Status:           code.Status(),
		Active:           code.Active,
		Disabled:         code.Disabled,
		ActivatedAt:      code.ActivatedAt,
		DeactivatedAt:    code.DeactivatedAt,
		CreatedBy:        code.CreatedBy,
		CreatedAt:        code.CreatedAt,
	}
}

// NewTestCodeListResponse создает список DTO кодов
func NewTestCodeListResponse(codes []entity.TestCode) []*TestCodeResponse {
	result := make([]*TestCodeResponse, 0, len(codes))
	for i := range codes {
		result = append(result, NewTestCodeResponse(&codes[i]))
	}
	return result
}
