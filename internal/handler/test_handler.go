package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/cbt-api/internal/handler/dto"
	"github.com/yourusername/cbt-api/internal/middleware"
	"github.com/yourusername/cbt-api/internal/service"
)

// TestHandler обрабатывает запросы студентов: вход по коду, ответы, отправка
type TestHandler struct {
	sessions      *service.SessionTracker
	scorer        *service.SubmissionScorer
	resultService *service.ResultService
	storeTimeout  time.Duration
}

// NewTestHandler создает обработчик попыток
func NewTestHandler(
	sessions *service.SessionTracker,
	scorer *service.SubmissionScorer,
	resultService *service.ResultService,
	storeTimeout time.Duration,
) *TestHandler {
	return &TestHandler{
		sessions:      sessions,
		scorer:        scorer,
		resultService: resultService,
		storeTimeout:  storeTimeout,
	}
}

// StartTest начинает попытку по коду или возвращает уже начатую
func (h *TestHandler) StartTest(c *gin.Context) {
	studentID, ok := middleware.UserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Unauthorized", nil)
		return
	}

	var req dto.StartTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	ctx, cancel := storeContext(c, h.storeTimeout)
	defer cancel()

	started, err := h.sessions.Start(ctx, studentID, req.Code)
	if err != nil {
		handleError(c, "StartTest", err)
		return
	}

	status, message := http.StatusCreated, "Test started"
	if started.Resumed {
		status, message = http.StatusOK, "Test resumed"
	}
	respondSuccess(c, status, message, dto.NewSessionResponse(
		started.Session, started.TestCode, started.Questions, started.Answers, started.Resumed,
	))
}

// SaveAnswer сохраняет промежуточный ответ
func (h *TestHandler) SaveAnswer(c *gin.Context) {
	studentID, ok := middleware.UserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Unauthorized", nil)
		return
	}

	var req dto.SaveAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	ctx, cancel := storeContext(c, h.storeTimeout)
	defer cancel()

	if err := h.sessions.SaveAnswer(ctx, studentID, req.SessionID, req.TestCodeID, req.QuestionID, req.Answer); err != nil {
		handleError(c, "SaveAnswer", err)
		return
	}
	respondSuccess(c, http.StatusOK, "Answer saved", gin.H{
		"question_id": req.QuestionID,
		"answer":      req.Answer,
	})
}

// SubmitTest принимает и оценивает тест
func (h *TestHandler) SubmitTest(c *gin.Context) {
	studentID, ok := middleware.UserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Unauthorized", nil)
		return
	}

	var req dto.SubmitTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	ctx, cancel := storeContext(c, h.storeTimeout)
	defer cancel()

	submitted, err := h.scorer.Submit(ctx, service.SubmitRequest{
		SessionID:  req.SessionID,
		TestCodeID: req.TestCodeID,
		StudentID:  studentID,
		Answers:    req.Answers,
	})
	if err != nil {
		handleError(c, "SubmitTest", err)
		return
	}

	result := submitted.Result
	respondSuccess(c, http.StatusCreated,
		fmt.Sprintf("Test submitted. You scored %d out of %d", result.Score, result.TotalScore),
		dto.NewResultResponse(result, false),
	)
}

// GetMyResult возвращает результат текущего студента по коду
func (h *TestHandler) GetMyResult(c *gin.Context) {
	studentID, ok := middleware.UserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Unauthorized", nil)
		return
	}
	testCodeID, ok := pathTestCodeID(c)
	if !ok {
		return
	}

	ctx, cancel := storeContext(c, h.storeTimeout)
	defer cancel()

	result, err := h.resultService.GetStudentResult(ctx, studentID, testCodeID)
	if err != nil {
		handleError(c, "GetMyResult", err)
		return
	}
	respondSuccess(c, http.StatusOK, "Result retrieved", dto.NewResultResponse(result, true))
}
