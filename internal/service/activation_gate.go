package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/yourusername/cbt-api/internal/domain/entity"
	"github.com/yourusername/cbt-api/internal/domain/repository"
	apperrors "github.com/yourusername/cbt-api/internal/pkg/errors"
)

// Операции над статусом кода
const (
	OpActivate   = "activate"
	OpDeactivate = "deactivate"
	OpToggle     = "toggle"
)

// Действия в ответах API
const (
	ActionActivated   = "activated"
	ActionDeactivated = "deactivated"
)

// BatchItemResult — успешно обработанный код из партии
type BatchItemResult struct {
	Code      string `json:"code"`
	Action    string `json:"action"`
	NewStatus string `json:"new_status"`
}

// BatchResult — итог пакетной операции
type BatchResult struct {
	Results      []BatchItemResult `json:"results"`
	Errors       []string          `json:"errors"`
	SuccessCount int               `json:"success_count"`
	ErrorCount   int               `json:"error_count"`
}

// Transition — результат одиночной операции
type Transition struct {
	TestCode *entity.TestCode
	Action   string
}

// ActivationGate управляет переходами Inactive <-> Active
type ActivationGate struct {
	txManager repository.TxManager
	activity  *ActivityLogger
	clock     func() time.Time
}

// NewActivationGate создает сервис активации кодов
func NewActivationGate(txManager repository.TxManager, activity *ActivityLogger) *ActivationGate {
	return &ActivationGate{
		txManager: txManager,
		activity:  activity,
		clock:     time.Now,
	}
}

// IsValidOp проверяет название операции
func IsValidOp(op string) bool {
	return op == OpActivate || op == OpDeactivate || op == OpToggle
}

// Activate активирует код
func (g *ActivationGate) Activate(ctx context.Context, id, actorID uint) (*Transition, error) {
	return g.single(ctx, id, actorID, OpActivate)
}

// Deactivate деактивирует код, если по нему нет результатов
func (g *ActivationGate) Deactivate(ctx context.Context, id, actorID uint) (*Transition, error) {
	return g.single(ctx, id, actorID, OpDeactivate)
}

// Toggle переключает статус кода
func (g *ActivationGate) Toggle(ctx context.Context, id, actorID uint) (*Transition, error) {
	return g.single(ctx, id, actorID, OpToggle)
}

func (g *ActivationGate) single(ctx context.Context, id, actorID uint, op string) (*Transition, error) {
	var transition *Transition
	err := g.txManager.WithinTx(ctx, func(tx repository.Tx) error {
		code, action, err := g.apply(ctx, tx, id, op)
		if err != nil {
			return err
		}
		transition = &Transition{TestCode: code, Action: action}
		return nil
	})
	if err != nil {
		if !apperrors.IsDomain(err) {
			log.Printf("[ActivationGate] Ошибка %s для кода %d: %v", op, id, err)
		}
		return nil, err
	}
	g.logTransition(ctx, actorID, transition.TestCode, transition.Action)
	return transition, nil
}

// BatchOperate применяет op к каждому id в отдельной точке сохранения.
// Ошибки отдельных кодов собираются, сбой хранилища откатывает всю партию.
func (g *ActivationGate) BatchOperate(ctx context.Context, ids []uint, op string, actorID uint) (*BatchResult, error) {
	if !IsValidOp(op) {
		return nil, fmt.Errorf("%w: action must be one of [activate deactivate toggle]", apperrors.ErrValidation)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: test_code_ids must not be empty", apperrors.ErrValidation)
	}

	var result *BatchResult
	var changed []*entity.TestCode
	err := g.txManager.WithinTx(ctx, func(tx repository.Tx) error {
		result = &BatchResult{Results: []BatchItemResult{}, Errors: []string{}}
		changed = changed[:0]
		for _, id := range ids {
			var code *entity.TestCode
			var action string
			err := tx.Savepoint(ctx, func(sp repository.Tx) error {
				var applyErr error
				code, action, applyErr = g.apply(ctx, sp, id, op)
				return applyErr
			})
			if err != nil {
				if !apperrors.IsDomain(err) {
					return err
				}
				result.Errors = append(result.Errors, batchItemError(id, code, err))
				continue
			}
			result.Results = append(result.Results, BatchItemResult{
				Code:      code.Code,
				Action:    action,
				NewStatus: code.Status(),
			})
			changed = append(changed, code)
		}
		return nil
	})
	if err != nil {
		log.Printf("[ActivationGate] Пакетная операция %s отменена: %v", op, err)
		return nil, err
	}

	result.SuccessCount = len(result.Results)
	result.ErrorCount = len(result.Errors)
	for i, code := range changed {
		g.logTransition(ctx, actorID, code, result.Results[i].Action)
	}
	return result, nil
}

// apply выполняет переход внутри транзакции. Строка кода блокируется до коммита,
// поэтому проверка результатов и обновление видят одно и то же состояние.
// При доменной ошибке возвращает загруженный код (если он найден) для сообщения.
func (g *ActivationGate) apply(ctx context.Context, tx repository.Tx, id uint, op string) (*entity.TestCode, string, error) {
	code, err := tx.TestCodes().GetByIDForUpdate(ctx, id)
	if err != nil {
		return nil, "", err
	}

	target := op
	if op == OpToggle {
		if code.Active {
			target = OpDeactivate
		} else {
			target = OpActivate
		}
	}

	now := g.clock()
	switch target {
	case OpActivate:
		if code.Active {
			return code, "", apperrors.ErrAlreadyActive
		}
		if err := tx.TestCodes().SetActive(ctx, id, true, now); err != nil {
			return code, "", err
		}
		code.Active = true
		code.ActivatedAt = &now
		return code, ActionActivated, nil
	default:
		if !code.Active {
			return code, "", apperrors.ErrAlreadyInactive
		}
		count, err := tx.Results().CountByTestCode(ctx, id)
		if err != nil {
			return code, "", err
		}
		if count > 0 {
			return code, "", &apperrors.HasSubmissionsError{Code: code.Code, Count: count}
		}
		if err := tx.TestCodes().SetActive(ctx, id, false, now); err != nil {
			return code, "", err
		}
		code.Active = false
		code.DeactivatedAt = &now
		return code, ActionDeactivated, nil
	}
}

func (g *ActivationGate) logTransition(ctx context.Context, actorID uint, code *entity.TestCode, action string) {
	logAction := ActionCodeActivated
	verb := "Activated"
	if action == ActionDeactivated {
		logAction = ActionCodeDeactivated
		verb = "Deactivated"
	}
	g.activity.Log(ctx, actorID, logAction, fmt.Sprintf("%s test code %s (ID %d)", verb, code.Code, code.ID))
}

func batchItemError(id uint, code *entity.TestCode, err error) string {
	label := fmt.Sprintf("Test code ID %d", id)
	if code != nil {
		label = fmt.Sprintf("Test code %s", code.Code)
	}
	var hasSubs *apperrors.HasSubmissionsError
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return label + " not found"
	case errors.Is(err, apperrors.ErrAlreadyActive):
		return label + " is already active"
	case errors.Is(err, apperrors.ErrAlreadyInactive):
		return label + " is already inactive"
	case errors.As(err, &hasSubs):
		return fmt.Sprintf("%s cannot be deactivated: %d submission(s) exist", label, hasSubs.Count)
	default:
		return fmt.Sprintf("%s: %v", label, err)
	}
}
