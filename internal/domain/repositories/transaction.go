package repositories

import "context"

// TxFn runs with a context that carries the transaction.
type TxFn func(ctx context.Context) error

// TransactionManager runs multi-repository writes atomically. The memory
// manager only serializes fn and cannot roll back.
type TransactionManager interface {
	ExecTx(ctx context.Context, fn TxFn) error
}
