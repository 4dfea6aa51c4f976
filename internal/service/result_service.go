package service

import (
	"context"

	"github.com/yourusername/cbt-api/internal/domain/entity"
	"github.com/yourusername/cbt-api/internal/domain/repository"
)

// Параметры пагинации по умолчанию
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ResultService предоставляет методы для чтения результатов
type ResultService struct {
	resultRepo repository.ResultRepository
	codeRepo   repository.TestCodeRepository
}

// NewResultService создает новый сервис результатов
func NewResultService(resultRepo repository.ResultRepository, codeRepo repository.TestCodeRepository) *ResultService {
	return &ResultService{
		resultRepo: resultRepo,
		codeRepo:   codeRepo,
	}
}

// NormalizePage корректирует page и pageSize
func NormalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize
}

// GetStudentResult возвращает результат студента по коду
func (s *ResultService) GetStudentResult(ctx context.Context, studentID, testCodeID uint) (*entity.TestResult, error) {
	return s.resultRepo.GetByStudentAndCode(ctx, studentID, testCodeID)
}

// ListResults возвращает код и страницу его результатов
func (s *ResultService) ListResults(ctx context.Context, testCodeID uint, page, pageSize int) (*entity.TestCode, []entity.TestResult, int64, error) {
	code, err := s.codeRepo.GetByID(ctx, testCodeID)
	if err != nil {
		return nil, nil, 0, err
	}
	page, pageSize = NormalizePage(page, pageSize)
	results, total, err := s.resultRepo.ListByTestCode(ctx, testCodeID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, nil, 0, err
	}
	return code, results, total, nil
}

// ExportResults возвращает код и все его результаты для выгрузки
func (s *ResultService) ExportResults(ctx context.Context, testCodeID uint) (*entity.TestCode, []entity.TestResult, error) {
	code, err := s.codeRepo.GetByID(ctx, testCodeID)
	if err != nil {
		return nil, nil, err
	}
	results, err := s.resultRepo.ListAllByTestCode(ctx, testCodeID)
	if err != nil {
		return nil, nil, err
	}
	return code, results, nil
}
