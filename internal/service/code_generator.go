package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/yourusername/cbt-api/internal/domain/entity"
	"github.com/yourusername/cbt-api/internal/domain/repository"
	apperrors "github.com/yourusername/cbt-api/internal/pkg/errors"
)

// Значения по умолчанию для генерации кодов
const (
	DefaultMaxBatchSize = 50
	DefaultCodeAttempts = 10
	codeTokenLength     = 8
)

// GenerateRequest описывает партию кодов для генерации
type GenerateRequest struct {
	Class            string `validate:"required,max=50"`
	Subject          string `validate:"required,max=100"`
	Session          string `validate:"required,max=20"`
	Term             string `validate:"required,max=20"`
	TestType         string `validate:"required,test_type"`
	NumQuestions     int    `validate:"gt=0"`
	ScorePerQuestion int    `validate:"gt=0"`
	Duration         int    `validate:"gt=0"`
	CreatedBy        uint   `validate:"required"`
	Count            int    `validate:"gt=0"`
}

// Classification возвращает классификацию банка вопросов
func (r GenerateRequest) Classification() entity.Classification {
	return entity.Classification{
		Class:    r.Class,
		Subject:  r.Subject,
		Session:  r.Session,
		Term:     r.Term,
		TestType: r.TestType,
	}
}

// CodeGeneratorConfig — ограничения генератора
type CodeGeneratorConfig struct {
	MaxBatchSize int
	MaxAttempts  int
}

// CodeGenerator создает партии уникальных неактивных кодов
type CodeGenerator struct {
	questions repository.QuestionRepository
	txManager repository.TxManager
	activity  *ActivityLogger
	config    CodeGeneratorConfig
	newToken  func() string
}

// NewCodeGenerator создает генератор кодов
func NewCodeGenerator(
	questions repository.QuestionRepository,
	txManager repository.TxManager,
	activity *ActivityLogger,
	config CodeGeneratorConfig,
) *CodeGenerator {
	if config.MaxBatchSize <= 0 || config.MaxBatchSize > DefaultMaxBatchSize {
		config.MaxBatchSize = DefaultMaxBatchSize
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = DefaultCodeAttempts
	}
	return &CodeGenerator{
		questions: questions,
		txManager: txManager,
		activity:  activity,
		config:    config,
		newToken:  NewCodeToken,
	}
}

// NewCodeToken возвращает 8 случайных шестнадцатеричных символов в верхнем регистре
func NewCodeToken() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(raw[:codeTokenLength])
}

// GenerateBatch создает count кодов в одной транзакции: либо все, либо ни одного
func (g *CodeGenerator) GenerateBatch(ctx context.Context, req GenerateRequest) ([]entity.TestCode, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if req.Count > g.config.MaxBatchSize {
		return nil, fmt.Errorf("%w: count must be at most %d", apperrors.ErrValidation, g.config.MaxBatchSize)
	}

	classification := req.Classification()
	available, err := g.questions.CountByClassification(ctx, classification)
	if err != nil {
		log.Printf("[CodeGenerator] Ошибка подсчета вопросов для %+v: %v", classification, err)
		return nil, apperrors.NewStoreError("questions.count", err)
	}
	if available < int64(req.NumQuestions) {
		return nil, &apperrors.InsufficientQuestionsError{Available: available, Required: req.NumQuestions}
	}

	var codes []entity.TestCode
	err = g.txManager.WithinTx(ctx, func(tx repository.Tx) error {
		codes = make([]entity.TestCode, 0, req.Count)
		seen := make(map[string]struct{}, req.Count)
		for i := 0; i < req.Count; i++ {
			code, err := g.createUnique(ctx, tx, req, seen)
			if err != nil {
				return err
			}
			codes = append(codes, *code)
		}
		return nil
	})
	if err != nil {
		log.Printf("[CodeGenerator] Партия из %d кодов отменена: %v", req.Count, err)
		return nil, err
	}

	g.activity.Log(ctx, req.CreatedBy, ActionCodesGenerated, fmt.Sprintf(
		"Generated %d test code(s) for %s %s %s %s %s",
		len(codes), classification.Class, classification.Subject, classification.Session, classification.Term, classification.TestType,
	))
	log.Printf("[CodeGenerator] Создано %d кодов пользователем %d", len(codes), req.CreatedBy)
	return codes, nil
}

// createUnique подбирает свободный код. Проверки по партии и по таблице только ускоряют отказ,
// гарантию уникальности дает индекс test_codes.code.
func (g *CodeGenerator) createUnique(ctx context.Context, tx repository.Tx, req GenerateRequest, seen map[string]struct{}) (*entity.TestCode, error) {
	for attempt := 1; attempt <= g.config.MaxAttempts; attempt++ {
		token := g.newToken()
		if _, dup := seen[token]; dup {
			continue
		}
		exists, err := tx.TestCodes().CodeExists(ctx, token)
		if err != nil {
			return nil, err
		}
		if exists {
			continue
		}

		code := &entity.TestCode{
			Code:             token,
			Classification:   req.Classification(),
			NumQuestions:     req.NumQuestions,
			ScorePerQuestion: req.ScorePerQuestion,
			Duration:         req.Duration,
			Active:           false,
			CreatedBy:        req.CreatedBy,
		}
		err = tx.Savepoint(ctx, func(sp repository.Tx) error {
			return sp.TestCodes().Create(ctx, code)
		})
		if errors.Is(err, repository.ErrDuplicateKey) {
			log.Printf("[CodeGenerator] Конфликт кода %s (попытка %d), генерируем заново", token, attempt)
			continue
		}
		if err != nil {
			return nil, err
		}
		seen[token] = struct{}{}
		return code, nil
	}
	return nil, fmt.Errorf("%w after %d attempts", apperrors.ErrCodeGenerationExhausted, g.config.MaxAttempts)
}
