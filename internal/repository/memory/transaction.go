package memory

import (
	"context"
	"sync"

	"inkwell/internal/domain/repositories"
)

// TransactionManager serializes transactional functions. There is no
// rollback: a function that fails part way leaves its earlier writes.
type TransactionManager struct {
	mu sync.Mutex
}

// NewTransactionManager creates a new transaction manager
func NewTransactionManager() repositories.TransactionManager {
	return &TransactionManager{}
}

// ExecTx runs fn while holding the manager's lock
func (tm *TransactionManager) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	return fn(ctx)
}
