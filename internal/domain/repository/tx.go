package repository

import "context"

// Tx — репозитории, работающие внутри одной транзакции
type Tx interface {
	TestCodes() TestCodeRepository
	Results() ResultRepository
	// Savepoint выполняет fn во вложенной транзакции (SAVEPOINT).
	// Ошибка fn откатывает только её изменения, внешняя транзакция продолжается.
	Savepoint(ctx context.Context, fn func(tx Tx) error) error
}

// TxManager запускает единицу работы в транзакции.
// Если fn вернула ошибку, транзакция откатывается целиком.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}
