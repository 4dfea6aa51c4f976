package handler

import (
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/cbt-api/internal/domain/repository"
	"github.com/yourusername/cbt-api/internal/handler/dto"
	"github.com/yourusername/cbt-api/internal/middleware"
	"github.com/yourusername/cbt-api/internal/service"
)

// Ключ контекста для ID кода из URL
const ContextTestCodeID = "testCodeID"

// TestCodeHandler обрабатывает административные запросы по тестовым кодам
type TestCodeHandler struct {
	generator     *service.CodeGenerator
	gate          *service.ActivationGate
	codeService   *service.TestCodeService
	resultService *service.ResultService
	storeTimeout  time.Duration
}

// NewTestCodeHandler создает новый обработчик кодов
func NewTestCodeHandler(
	generator *service.CodeGenerator,
	gate *service.ActivationGate,
	codeService *service.TestCodeService,
	resultService *service.ResultService,
	storeTimeout time.Duration,
) *TestCodeHandler {
	return &TestCodeHandler{
		generator:     generator,
		gate:          gate,
		codeService:   codeService,
		resultService: resultService,
		storeTimeout:  storeTimeout,
	}
}

// GenerateCodes создает партию неактивных кодов
func (h *TestCodeHandler) GenerateCodes(c *gin.Context) {
	actorID, ok := middleware.UserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Unauthorized", nil)
		return
	}

	var req dto.GenerateCodesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	ctx, cancel := storeContext(c, h.storeTimeout)
	defer cancel()

	codes, err := h.generator.GenerateBatch(ctx, service.GenerateRequest{
		Class:            req.Class,
		Subject:          req.Subject,
		Session:          req.Session,
		Term:             req.Term,
		TestType:         req.TestType,
		NumQuestions:     req.NumQuestions,
		ScorePerQuestion: req.ScorePerQuestion,
		Duration:         req.Duration,
		CreatedBy:        actorID,
		Count:            req.Count,
	})
	if err != nil {
		handleError(c, "GenerateCodes", err)
		return
	}

	respondSuccess(c, http.StatusCreated, fmt.Sprintf("%d test code(s) generated", len(codes)), dto.GeneratedCodesResponse{
		Count:     len(codes),
		TestCodes: dto.NewTestCodeListResponse(codes),
	})
}

// ListTestCodes возвращает страницу кодов с фильтрами
func (h *TestCodeHandler) ListTestCodes(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("per_page", strconv.Itoa(service.DefaultPageSize)))
	page, pageSize = service.NormalizePage(page, pageSize)

	filters := repository.TestCodeFilters{
		Class:    c.Query("class"),
		Subject:  c.Query("subject"),
		Session:  c.Query("session"),
		Term:     c.Query("term"),
		TestType: c.Query("test_type"),
	}
	if raw := c.Query("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, "Invalid active filter", nil)
			return
		}
		filters.Active = &active
	}

	ctx, cancel := storeContext(c, h.storeTimeout)
	defer cancel()

	codes, total, err := h.codeService.List(ctx, filters, page, pageSize)
	if err != nil {
		handleError(c, "ListTestCodes", err)
		return
	}

	respondSuccess(c, http.StatusOK, "Test codes retrieved", dto.PaginatedTestCodeResponse{
		TestCodes: dto.NewTestCodeListResponse(codes),
		Total:     total,
		Page:      page,
		PerPage:   pageSize,
	})
}

// GetTestCode возвращает код по ID
func (h *TestCodeHandler) GetTestCode(c *gin.Context) {
	id, ok := pathTestCodeID(c)
	if !ok {
		return
	}

	ctx, cancel := storeContext(c, h.storeTimeout)
	defer cancel()

	code, err := h.codeService.Get(ctx, id)
	if err != nil {
		handleError(c, "GetTestCode", err)
		return
	}
	respondSuccess(c, http.StatusOK, "Test code retrieved", dto.NewTestCodeResponse(code))
}

// ActivateTestCode активирует код
func (h *TestCodeHandler) ActivateTestCode(c *gin.Context) {
	h.transition(c, service.OpActivate)
}

// DeactivateTestCode деактивирует код, если по нему нет результатов
func (h *TestCodeHandler) DeactivateTestCode(c *gin.Context) {
	h.transition(c, service.OpDeactivate)
}

// ToggleTestCode переключает статус кода
func (h *TestCodeHandler) ToggleTestCode(c *gin.Context) {
	h.transition(c, service.OpToggle)
}

func (h *TestCodeHandler) transition(c *gin.Context, op string) {
	actorID, ok := middleware.UserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Unauthorized", nil)
		return
	}
	id, ok := pathTestCodeID(c)
	if !ok {
		return
	}

	ctx, cancel := storeContext(c, h.storeTimeout)
	defer cancel()

	var (
		result *service.Transition
		err    error
	)
	switch op {
	case service.OpActivate:
		result, err = h.gate.Activate(ctx, id, actorID)
	case service.OpDeactivate:
		result, err = h.gate.Deactivate(ctx, id, actorID)
	default:
		result, err = h.gate.Toggle(ctx, id, actorID)
	}
	if err != nil {
		handleError(c, "TestCodeTransition", err)
		return
	}

	respondSuccess(c, http.StatusOK, fmt.Sprintf("Test code %s %s", result.TestCode.Code, result.Action), dto.TransitionResponse{
		Action:   result.Action,
		TestCode: dto.NewTestCodeResponse(result.TestCode),
	})
}

// BatchOperate применяет операцию к нескольким кодам.
// Ошибки отдельных кодов возвращаются в errors, успешные изменения сохраняются.
func (h *TestCodeHandler) BatchOperate(c *gin.Context) {
	actorID, ok := middleware.UserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Unauthorized", nil)
		return
	}

	var req dto.BatchOperationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	ctx, cancel := storeContext(c, h.storeTimeout)
	defer cancel()

	result, err := h.gate.BatchOperate(ctx, req.TestCodeIDs, req.Operation, actorID)
	if err != nil {
		handleError(c, "BatchOperate", err)
		return
	}

	errs := result.Errors
	if errs == nil {
		errs = []string{}
	}
	message := fmt.Sprintf("%d of %d test code(s) processed", result.SuccessCount, len(req.TestCodeIDs))
	c.JSON(http.StatusOK, batchEnvelope{
		Success: result.SuccessCount > 0 || result.ErrorCount == 0,
		Message: message,
		Data:    result,
		Errors:  errs,
	})
}

// GetResults возвращает страницу результатов по коду
func (h *TestCodeHandler) GetResults(c *gin.Context) {
	id, ok := pathTestCodeID(c)
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("per_page", strconv.Itoa(service.DefaultPageSize)))
	page, pageSize = service.NormalizePage(page, pageSize)

	ctx, cancel := storeContext(c, h.storeTimeout)
	defer cancel()

	code, results, total, err := h.resultService.ListResults(ctx, id, page, pageSize)
	if err != nil {
		handleError(c, "GetResults", err)
		return
	}

	respondSuccess(c, http.StatusOK, "Results retrieved", dto.PaginatedResultResponse{
		TestCode: dto.NewTestCodeResponse(code),
		Results:  dto.NewResultListResponse(results),
		Total:    total,
		Page:     page,
		PerPage:  pageSize,
	})
}

// ExportResults выгружает все результаты кода в CSV или XLSX
func (h *TestCodeHandler) ExportResults(c *gin.Context) {
	id, ok := pathTestCodeID(c)
	if !ok {
		return
	}
	format := c.DefaultQuery("format", "csv")
	if format != "csv" && format != "xlsx" {
		respondError(c, http.StatusBadRequest, "Unsupported export format", nil)
		return
	}

	ctx, cancel := storeContext(c, h.storeTimeout)
	defer cancel()

	code, results, err := h.resultService.ExportResults(ctx, id)
	if err != nil {
		handleError(c, "ExportResults", err)
		return
	}

	filename := fmt.Sprintf("test_%s_results_%s", code.Code, time.Now().Format("2006-01-02"))
	log.Printf("[TestCodeHandler] Экспорт %d результатов кода %s в %s", len(results), code.Code, format)

	switch format {
	case "xlsx":
		exportXLSX(c, code, results, filename)
	default:
		exportCSV(c, code, results, filename)
	}
}
