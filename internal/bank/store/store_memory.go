package store

import (
	"context"
	"sort"
	"sync"

	"devbank/internal/bank/models"
	"devbank/pkg/domain"
	"devbank/pkg/platform/sentinel"
)

// InMemoryStore implements Store with process-local state. Suitable for
// devnet single-node runs and unit tests; use PostgresStore when state must
// survive restarts.
type InMemoryStore struct {
	mu       sync.RWMutex
	bank     *models.Bank
	accounts map[domain.Address]*models.Account
}

// NewInMemory creates an empty in-memory ledger store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		accounts: make(map[domain.Address]*models.Account),
	}
}

// memTx views or mutates the store's maps directly. Mutations buffer into
// pending state and apply on commit so a failed Update leaves no trace.
type memTx struct {
	store    *InMemoryStore
	writable bool

	pendingBank     *models.Bank
	pendingAccounts map[domain.Address]*models.Account
	deleted         map[domain.Address]struct{}
}

// View implements Store.
func (s *InMemoryStore) View(ctx context.Context, fn func(Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(&memTx{store: s})
}

// Update implements Store.
func (s *InMemoryStore) Update(ctx context.Context, fn func(Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{
		store:           s,
		writable:        true,
		pendingAccounts: make(map[domain.Address]*models.Account),
		deleted:         make(map[domain.Address]struct{}),
	}
	if err := fn(tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

func (tx *memTx) commit() {
	if tx.pendingBank != nil {
		tx.store.bank = tx.pendingBank
	}
	for owner, account := range tx.pendingAccounts {
		tx.store.accounts[owner] = account
	}
	for owner := range tx.deleted {
		delete(tx.store.accounts, owner)
	}
}

func (tx *memTx) Bank() (*models.Bank, error) {
	if tx.pendingBank != nil {
		clone := *tx.pendingBank
		return &clone, nil
	}
	if tx.store.bank == nil {
		return nil, sentinel.ErrNotFound
	}
	clone := *tx.store.bank
	return &clone, nil
}

func (tx *memTx) PutBank(bank *models.Bank) error {
	if !tx.writable {
		return sentinel.ErrReadOnly
	}
	clone := *bank
	tx.pendingBank = &clone
	return nil
}

func (tx *memTx) Account(owner domain.Address) (*models.Account, error) {
	if _, gone := tx.deleted[owner]; gone {
		return nil, sentinel.ErrNotFound
	}
	if account, ok := tx.pendingAccounts[owner]; ok {
		clone := *account
		return &clone, nil
	}
	account, ok := tx.store.accounts[owner]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *account
	return &clone, nil
}

func (tx *memTx) PutAccount(account *models.Account) error {
	if !tx.writable {
		return sentinel.ErrReadOnly
	}
	delete(tx.deleted, account.Owner)
	clone := *account
	tx.pendingAccounts[account.Owner] = &clone
	return nil
}

func (tx *memTx) DeleteAccount(owner domain.Address) error {
	if !tx.writable {
		return sentinel.ErrReadOnly
	}
	if _, err := tx.Account(owner); err != nil {
		return err
	}
	delete(tx.pendingAccounts, owner)
	tx.deleted[owner] = struct{}{}
	return nil
}

func (tx *memTx) Accounts() ([]*models.Account, error) {
	seen := make(map[domain.Address]struct{})
	accounts := make([]*models.Account, 0, len(tx.store.accounts))
	for owner, account := range tx.pendingAccounts {
		clone := *account
		accounts = append(accounts, &clone)
		seen[owner] = struct{}{}
	}
	for owner, account := range tx.store.accounts {
		if _, gone := tx.deleted[owner]; gone {
			continue
		}
		if _, ok := seen[owner]; ok {
			continue
		}
		clone := *account
		accounts = append(accounts, &clone)
	}
	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].CreatedAt.Before(accounts[j].CreatedAt)
	})
	return accounts, nil
}
