package repository

import "errors"

var (
	// ErrDuplicateKey означает нарушение уникального индекса (23505).
	// Сервисы превращают её в доменную ошибку или повтор.
	ErrDuplicateKey = errors.New("duplicate key value violates unique constraint")
)
