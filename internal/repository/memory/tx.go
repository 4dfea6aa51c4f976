package memory

import (
	"context"
	"errors"

	"github.com/yourusername/cbt-api/internal/domain/repository"
	apperrors "github.com/yourusername/cbt-api/internal/pkg/errors"
)

// TxManager реализует repository.TxManager: снимок состояния до fn, откат при ошибке
type TxManager struct {
	s *Store
}

// WithinTx выполняет fn в транзакции
func (m *TxManager) WithinTx(ctx context.Context, fn func(tx repository.Tx) error) (err error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return apperrors.NewStoreError("tx.begin", ctxErr)
	}
	m.s.txMu.Lock()
	defer m.s.txMu.Unlock()

	snap := m.s.takeSnapshot()
	defer func() {
		if r := recover(); r != nil {
			m.s.restore(snap)
			panic(r)
		}
	}()

	if err = fn(&memTx{s: m.s}); err != nil {
		m.s.restore(snap)
		if errors.Is(err, repository.ErrDuplicateKey) {
			return err
		}
		return apperrors.NewStoreError("tx", err)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		m.s.restore(snap)
		return apperrors.NewStoreError("tx.commit", ctxErr)
	}
	return nil
}

type memTx struct {
	s *Store
}

func (t *memTx) TestCodes() repository.TestCodeRepository { return &TestCodeRepo{s: t.s} }

func (t *memTx) Results() repository.ResultRepository { return &ResultRepo{s: t.s} }

// Savepoint откатывает только изменения fn
func (t *memTx) Savepoint(ctx context.Context, fn func(tx repository.Tx) error) error {
	snap := t.s.takeSnapshot()
	if err := fn(t); err != nil {
		t.s.restore(snap)
		return err
	}
	return nil
}
