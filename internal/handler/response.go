package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/cbt-api/internal/middleware"
	apperrors "github.com/yourusername/cbt-api/internal/pkg/errors"
)

// DefaultStoreTimeout используется, если таймаут хранилища не задан
const DefaultStoreTimeout = 5 * time.Second

// envelope — общий формат JSON-ответов API
type envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Errors  []string    `json:"errors,omitempty"`
}

// batchEnvelope — ответ пакетной операции, поле errors присутствует всегда
type batchEnvelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
	Errors  []string    `json:"errors"`
}

func respondSuccess(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, envelope{Success: true, Message: message, Data: data})
}

func respondError(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, envelope{Success: false, Message: message, Data: data})
}

// pathTestCodeID читает ID кода, проверенный ExtractUintParam
func pathTestCodeID(c *gin.Context) (uint, bool) {
	id, ok := middleware.PathID(c, ContextTestCodeID)
	if !ok {
		respondError(c, http.StatusBadRequest, "Invalid test code ID", nil)
	}
	return id, ok
}

// storeContext ограничивает время обращений к хранилищу в рамках запроса
func storeContext(c *gin.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = DefaultStoreTimeout
	}
	return context.WithTimeout(c.Request.Context(), timeout)
}

// handleError переводит ошибки сервисов в HTTP-ответы.
// Сбои хранилища и прочие внутренние ошибки логируются, клиент получает общее сообщение.
func handleError(c *gin.Context, op string, err error) {
	var insufficient *apperrors.InsufficientQuestionsError
	var hasSubmissions *apperrors.HasSubmissionsError

	switch {
	case errors.As(err, &insufficient):
		respondError(c, http.StatusUnprocessableEntity, insufficient.Error(), gin.H{
			"available": insufficient.Available,
			"required":  insufficient.Required,
		})
	case errors.As(err, &hasSubmissions):
		respondError(c, http.StatusConflict, hasSubmissions.Error(), gin.H{"count": hasSubmissions.Count})
	case errors.Is(err, apperrors.ErrValidation):
		respondError(c, http.StatusUnprocessableEntity, err.Error(), nil)
	case errors.Is(err, apperrors.ErrNotFound):
		respondError(c, http.StatusNotFound, "Not found", nil)
	case errors.Is(err, apperrors.ErrAlreadyActive):
		respondError(c, http.StatusConflict, "Test code is already active", nil)
	case errors.Is(err, apperrors.ErrAlreadyInactive):
		respondError(c, http.StatusConflict, "Test code is already inactive", nil)
	case errors.Is(err, apperrors.ErrInvalidSession):
		respondError(c, http.StatusBadRequest, "Invalid or expired test session", nil)
	case errors.Is(err, apperrors.ErrTestInactive):
		respondError(c, http.StatusForbidden, "This test is not active", nil)
	case errors.Is(err, apperrors.ErrAlreadySubmitted):
		respondError(c, http.StatusConflict, "You have already submitted this test", nil)
	case errors.Is(err, apperrors.ErrCodeGenerationExhausted):
		log.Printf("[%s] Генерация кодов не удалась: %v", op, err)
		respondError(c, http.StatusServiceUnavailable, "Could not generate unique test codes, please retry", nil)
	case errors.Is(err, apperrors.ErrStoreUnavailable), errors.Is(err, context.DeadlineExceeded):
		log.Printf("[%s] Хранилище недоступно: %v", op, err)
		respondError(c, http.StatusServiceUnavailable, "Service temporarily unavailable", nil)
	default:
		log.Printf("ERROR: Internal server error in %s: %v", op, err)
		respondError(c, http.StatusInternalServerError, "Internal server error", nil)
	}
}

// bindError отвечает 400 на некорректное тело запроса
func bindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, envelope{Success: false, Message: "Invalid request data", Errors: []string{err.Error()}})
}
