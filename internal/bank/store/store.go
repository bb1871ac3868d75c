// Package store persists ledger state. Implementations provide transactional
// access so multi-record operations (stake settlements, loans, transfers)
// commit or roll back as a unit.
package store

import (
	"context"

	"devbank/internal/bank/models"
	"devbank/pkg/domain"
)

// Tx is a single ledger transaction. Reads return copies; mutations are not
// visible outside the transaction until it commits. Implementations return
// sentinel.ErrNotFound / sentinel.ErrConflict for the corresponding facts.
type Tx interface {
	// Bank returns the singleton bank record.
	Bank() (*models.Bank, error)
	// PutBank inserts or updates the bank record.
	PutBank(bank *models.Bank) error
	// Account returns the account owned by the given address.
	Account(owner domain.Address) (*models.Account, error)
	// PutAccount inserts or updates an account.
	PutAccount(account *models.Account) error
	// DeleteAccount removes an account.
	DeleteAccount(owner domain.Address) error
	// Accounts returns every account, ordered by creation time.
	Accounts() ([]*models.Account, error)
}

// Store is the transactional ledger store.
type Store interface {
	// View runs fn in a read-only transaction.
	View(ctx context.Context, fn func(Tx) error) error
	// Update runs fn in a read-write transaction, committing on nil return
	// and rolling back otherwise.
	Update(ctx context.Context, fn func(Tx) error) error
}
