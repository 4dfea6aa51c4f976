package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/yourusername/cbt-api/internal/domain/repository"
	apperrors "github.com/yourusername/cbt-api/internal/pkg/errors"
)

// TxManager реализует repository.TxManager поверх gorm.DB.Transaction
type TxManager struct {
	db *gorm.DB
}

// NewTxManager создает менеджер транзакций
func NewTxManager(db *gorm.DB) *TxManager {
	return &TxManager{db: db}
}

// WithinTx выполняет fn в транзакции. Ошибка fn или паника откатывают её целиком.
func (m *TxManager) WithinTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTx{db: tx})
	})
	if err == nil || errors.Is(err, repository.ErrDuplicateKey) {
		return err
	}
	return apperrors.NewStoreError("tx", err)
}

// gormTx связывает репозитории с открытой транзакцией
type gormTx struct {
	db *gorm.DB
}

func (t *gormTx) TestCodes() repository.TestCodeRepository {
	return NewTestCodeRepo(t.db)
}

func (t *gormTx) Results() repository.ResultRepository {
	return NewResultRepo(t.db)
}

// Savepoint: вложенный Transaction в GORM выполняется через SAVEPOINT / ROLLBACK TO SAVEPOINT,
// поэтому ошибка внутри не ломает внешнюю транзакцию Postgres
func (t *gormTx) Savepoint(ctx context.Context, fn func(tx repository.Tx) error) error {
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTx{db: tx})
	})
}
