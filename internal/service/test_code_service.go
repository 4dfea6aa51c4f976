package service

import (
	"context"

	"github.com/yourusername/cbt-api/internal/domain/entity"
	"github.com/yourusername/cbt-api/internal/domain/repository"
)

// TestCodeService — чтение списка кодов для администратора
type TestCodeService struct {
	codeRepo repository.TestCodeRepository
}

// NewTestCodeService создает сервис списка кодов
func NewTestCodeService(codeRepo repository.TestCodeRepository) *TestCodeService {
	return &TestCodeService{codeRepo: codeRepo}
}

// List возвращает страницу кодов по фильтрам
func (s *TestCodeService) List(ctx context.Context, filters repository.TestCodeFilters, page, pageSize int) ([]entity.TestCode, int64, error) {
	page, pageSize = NormalizePage(page, pageSize)
	return s.codeRepo.List(ctx, filters, pageSize, (page-1)*pageSize)
}

// Get возвращает код по ID
func (s *TestCodeService) Get(ctx context.Context, id uint) (*entity.TestCode, error) {
	return s.codeRepo.GetByID(ctx, id)
}
