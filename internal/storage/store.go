// Package storage persists ledger rows and budgets. Rows are append-only:
// there is no update or delete for transactions.
package storage

import (
	"context"
	"errors"

	"fxledger/internal/core"
)

var ErrDuplicateID = errors.New("transaction id already exists")

// Store is the persistence contract shared by every backend.
//
// ListTransactions returns the owner's rows in insertion order and
// materializes them all; there is no pagination.
type Store interface {
	AppendTransaction(ctx context.Context, tx core.Transaction) error
	ListTransactions(ctx context.Context, owner string) ([]core.Transaction, error)
	CountTransactions(ctx context.Context, owner string) (int, error)
	UpsertBudget(ctx context.Context, b core.Budget) error
	ListBudgets(ctx context.Context, owner string) ([]core.Budget, error)
	Ping(ctx context.Context) error
	Close() error
}
