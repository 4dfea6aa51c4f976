package errors

import (
	"errors"
	"fmt"
)

// Общие ошибки приложения
var (
	// ErrNotFound используется, когда запись или ресурс не найдены.
	ErrNotFound = errors.New("record not found")

	// ErrValidation используется для ошибок валидации входных данных.
	ErrValidation = errors.New("validation failed")
)

// Ошибки жизненного цикла тестовых кодов и приёма ответов
var (
	// ErrInsufficientQuestions — в банке вопросов меньше вопросов, чем требует код.
	ErrInsufficientQuestions = errors.New("insufficient questions in bank")

	// ErrCodeGenerationExhausted — не удалось подобрать уникальный код за отведённое число попыток.
	ErrCodeGenerationExhausted = errors.New("could not generate a unique test code")

	ErrAlreadyActive   = errors.New("test code is already active")
	ErrAlreadyInactive = errors.New("test code is already inactive")

	// ErrHasSubmissions — деактивация запрещена, пока на код ссылаются результаты.
	ErrHasSubmissions = errors.New("test code has submissions")

	ErrInvalidSession   = errors.New("invalid test session")
	ErrTestInactive     = errors.New("test is not active")
	ErrAlreadySubmitted = errors.New("test already submitted")

	// ErrStoreUnavailable — хранилище недоступно, таймаут или сбой транзакции.
	// Детали наружу не отдаются.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// InsufficientQuestionsError несёт количество доступных вопросов
type InsufficientQuestionsError struct {
	Available int64
	Required  int
}

func (e *InsufficientQuestionsError) Error() string {
	return fmt.Sprintf("only %d question(s) available, %d required", e.Available, e.Required)
}

func (e *InsufficientQuestionsError) Is(target error) bool {
	return target == ErrInsufficientQuestions
}

// HasSubmissionsError несёт количество результатов, блокирующих деактивацию
type HasSubmissionsError struct {
	Code  string
	Count int64
}

func (e *HasSubmissionsError) Error() string {
	return fmt.Sprintf("test code %s has %d submission(s) and cannot be deactivated", e.Code, e.Count)
}

func (e *HasSubmissionsError) Is(target error) bool {
	return target == ErrHasSubmissions
}

// StoreError оборачивает ошибку хранилища с именем операции.
// errors.Is(err, ErrStoreUnavailable) == true, исходная ошибка доступна через Unwrap.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func (e *StoreError) Is(target error) bool {
	return target == ErrStoreUnavailable
}

// NewStoreError оборачивает err в StoreError. Доменные ошибки возвращаются как есть.
func NewStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsDomain(err) {
		return err
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

// IsDomain сообщает, является ли ошибка ожидаемой доменной (не сбоем хранилища)
func IsDomain(err error) bool {
	for _, target := range []error{
		ErrNotFound,
		ErrValidation,
		ErrInsufficientQuestions,
		ErrCodeGenerationExhausted,
		ErrAlreadyActive,
		ErrAlreadyInactive,
		ErrHasSubmissions,
		ErrInvalidSession,
		ErrTestInactive,
		ErrAlreadySubmitted,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
