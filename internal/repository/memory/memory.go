// Package memory implements the repositories in process memory. It backs the
// "memory" storage driver for local development and the service tests.
package memory

import (
	"context"
	"sync"

	"folio/internal/domain/repositories"
)

// TransactionManager runs fn under a single lock. There is no rollback:
// memory repositories are only used where partial writes are acceptable.
type TransactionManager struct {
	mu sync.Mutex
}

// NewTransactionManager creates a transaction manager for memory repositories
func NewTransactionManager() repositories.TransactionManager {
	return &TransactionManager{}
}

// ExecTx executes fn while holding the manager's lock
func (tm *TransactionManager) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	return fn(ctx)
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
