// Package service implements the ledger's operations: account lifecycle,
// deposits and withdrawals, staking with slot-based rewards, collateralized
// loans, transfers, and admin controls. All balance arithmetic is
// overflow-checked; every state change emits an event.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"devbank/internal/bank/metrics"
	"devbank/internal/bank/models"
	"devbank/internal/bank/store"
	"devbank/pkg/checked"
	"devbank/pkg/domain"
	dErrors "devbank/pkg/domain-errors"
	"devbank/pkg/platform/sentinel"
	"devbank/pkg/requestcontext"
)

// SlotSource reports the chain clock's current slot. Staking rewards accrue
// per slot elapsed.
type SlotSource interface {
	CurrentSlot() uint64
}

// EventPublisher receives the event emitted by each completed operation.
type EventPublisher interface {
	Emit(ctx context.Context, event models.Event)
}

// Service executes ledger operations against a Store.
type Service struct {
	store   store.Store
	slots   SlotSource
	events  EventPublisher
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithEvents sets the event publisher.
func WithEvents(events EventPublisher) Option {
	return func(s *Service) { s.events = events }
}

// WithMetrics sets the Prometheus collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// New constructs a ledger service.
func New(st store.Store, slots SlotSource, opts ...Option) (*Service, error) {
	if st == nil {
		return nil, fmt.Errorf("ledger store is required")
	}
	if slots == nil {
		return nil, fmt.Errorf("slot source is required")
	}
	svc := &Service{
		store:  st,
		slots:  slots,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// InitializeBank creates the singleton bank record with its initial balance.
// Conflict if the bank already exists.
func (s *Service) InitializeBank(ctx context.Context, admin domain.Address) (bank *models.Bank, err error) {
	defer func() { s.observe(ctx, "initialize_bank", 0, err) }()

	if admin.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "admin address is required")
	}
	now := requestcontext.Now(ctx)
	err = s.store.Update(ctx, func(tx store.Tx) error {
		if _, err := tx.Bank(); err == nil {
			return dErrors.New(dErrors.CodeConflict, "bank already initialized")
		} else if !errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeInternal, "load bank")
		}
		bank = &models.Bank{
			Admin:       admin,
			Balance:     models.InitialBankBalance,
			Operational: true,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		return tx.PutBank(bank)
	})
	if err != nil {
		return nil, err
	}
	s.emit(ctx, models.EventBankInitialized, admin, map[string]any{
		"balance": bank.Balance,
	})
	return bank, nil
}

// CreateAccount opens a zeroed account for owner and bumps the bank's user
// count.
func (s *Service) CreateAccount(ctx context.Context, owner domain.Address) (account *models.Account, err error) {
	defer func() { s.observe(ctx, "create_account", 0, err) }()

	now := requestcontext.Now(ctx)
	err = s.store.Update(ctx, func(tx store.Tx) error {
		bank, err := s.loadBank(tx)
		if err != nil {
			return err
		}
		if _, err := tx.Account(owner); err == nil {
			return dErrors.New(dErrors.CodeConflict, "account already exists")
		} else if !errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeInternal, "load account")
		}
		total, ok := checked.Add(bank.TotalUsers, 1)
		if !ok {
			return overflow()
		}
		bank.TotalUsers = total
		bank.UpdatedAt = now
		if err := tx.PutBank(bank); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "save bank")
		}
		account = &models.Account{Owner: owner, CreatedAt: now, UpdatedAt: now}
		return tx.PutAccount(account)
	})
	if err != nil {
		return nil, err
	}
	s.emit(ctx, models.EventAccountCreated, owner, nil)
	return account, nil
}

// DeleteAccount closes an account. Refused while any balance is non-zero.
func (s *Service) DeleteAccount(ctx context.Context, owner domain.Address) (err error) {
	defer func() { s.observe(ctx, "delete_account", 0, err) }()

	now := requestcontext.Now(ctx)
	err = s.store.Update(ctx, func(tx store.Tx) error {
		bank, err := s.loadBank(tx)
		if err != nil {
			return err
		}
		account, err := s.loadAccount(tx, owner)
		if err != nil {
			return err
		}
		if !account.IsDrained() {
			return dErrors.New(dErrors.CodeInsufficientBalance, "account still holds funds")
		}
		total, ok := checked.Sub(bank.TotalUsers, 1)
		if !ok {
			return overflow()
		}
		bank.TotalUsers = total
		bank.UpdatedAt = now
		if err := tx.PutBank(bank); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "save bank")
		}
		return tx.DeleteAccount(owner)
	})
	if err != nil {
		return err
	}
	s.emit(ctx, models.EventAccountDeleted, owner, nil)
	return nil
}

// Deposit credits an account. The bank must be operational and the amount
// within the per-deposit cap.
func (s *Service) Deposit(ctx context.Context, owner domain.Address, amount domain.Lamports) (account *models.Account, err error) {
	defer func() { s.observe(ctx, "deposit", amount, err) }()

	if amount == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidAmount, "amount must be greater than zero")
	}
	if amount > models.MaxDepositLamports {
		return nil, dErrors.New(dErrors.CodeAmountTooLarge, "amount exceeds maximum deposit")
	}
	now := requestcontext.Now(ctx)
	err = s.store.Update(ctx, func(tx store.Tx) error {
		bank, err := s.loadBank(tx)
		if err != nil {
			return err
		}
		if !bank.Operational {
			return bankClosed()
		}
		account, err = s.loadAccount(tx, owner)
		if err != nil {
			return err
		}
		balance, ok := checked.Add(account.Balance, amount)
		if !ok {
			return overflow()
		}
		account.Balance = balance
		account.UpdatedAt = now
		return tx.PutAccount(account)
	})
	if err != nil {
		return nil, err
	}
	s.emit(ctx, models.EventDeposit, owner, map[string]any{
		"amount":      amount,
		"new_balance": account.Balance,
	})
	return account, nil
}

// Withdraw debits an account. The bank must be operational.
func (s *Service) Withdraw(ctx context.Context, owner domain.Address, amount domain.Lamports) (account *models.Account, err error) {
	defer func() { s.observe(ctx, "withdraw", amount, err) }()

	if amount == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidAmount, "amount must be greater than zero")
	}
	now := requestcontext.Now(ctx)
	err = s.store.Update(ctx, func(tx store.Tx) error {
		bank, err := s.loadBank(tx)
		if err != nil {
			return err
		}
		if !bank.Operational {
			return bankClosed()
		}
		account, err = s.loadAccount(tx, owner)
		if err != nil {
			return err
		}
		if account.Balance < amount {
			return insufficient()
		}
		balance, ok := checked.Sub(account.Balance, amount)
		if !ok {
			return overflow()
		}
		account.Balance = balance
		account.UpdatedAt = now
		return tx.PutAccount(account)
	})
	if err != nil {
		return nil, err
	}
	s.emit(ctx, models.EventWithdraw, owner, map[string]any{
		"amount":      amount,
		"new_balance": account.Balance,
	})
	return account, nil
}

// Balance returns a snapshot of an account and emits a balance-checked event.
func (s *Service) Balance(ctx context.Context, owner domain.Address) (account *models.Account, err error) {
	defer func() { s.observe(ctx, "balance", 0, err) }()

	err = s.store.View(ctx, func(tx store.Tx) error {
		account, err = s.loadAccount(tx, owner)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.emit(ctx, models.EventBalanceChecked, owner, map[string]any{
		"balance":        account.Balance,
		"staked_balance": account.StakedBalance,
		"lent_balance":   account.LentBalance,
	})
	return account, nil
}

// Bank returns a snapshot of the bank record.
func (s *Service) Bank(ctx context.Context) (bank *models.Bank, err error) {
	err = s.store.View(ctx, func(tx store.Tx) error {
		bank, err = s.loadBank(tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return bank, nil
}

// Accounts returns every account, ordered by creation time.
func (s *Service) Accounts(ctx context.Context) (accounts []*models.Account, err error) {
	err = s.store.View(ctx, func(tx store.Tx) error {
		accounts, err = tx.Accounts()
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "list accounts")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

// SetOperational toggles whether the bank accepts balance-changing
// operations. Admin only.
func (s *Service) SetOperational(ctx context.Context, operator domain.Address, operational bool) (err error) {
	defer func() { s.observe(ctx, "set_operational", 0, err) }()

	now := requestcontext.Now(ctx)
	err = s.store.Update(ctx, func(tx store.Tx) error {
		bank, err := s.loadBank(tx)
		if err != nil {
			return err
		}
		if bank.Admin != operator {
			return dErrors.New(dErrors.CodeUnauthorized, "operator is not the bank admin")
		}
		bank.Operational = operational
		bank.UpdatedAt = now
		return tx.PutBank(bank)
	})
	if err != nil {
		return err
	}
	s.emit(ctx, models.EventBankStatusSet, operator, map[string]any{
		"operational": operational,
	})
	return nil
}

// FundBank adds liquidity to the bank's own balance. Admin only.
func (s *Service) FundBank(ctx context.Context, operator domain.Address, amount domain.Lamports) (err error) {
	defer func() { s.observe(ctx, "fund_bank", amount, err) }()

	if amount == 0 {
		return dErrors.New(dErrors.CodeInvalidAmount, "amount must be greater than zero")
	}
	now := requestcontext.Now(ctx)
	var newBalance domain.Lamports
	err = s.store.Update(ctx, func(tx store.Tx) error {
		bank, err := s.loadBank(tx)
		if err != nil {
			return err
		}
		if bank.Admin != operator {
			return dErrors.New(dErrors.CodeUnauthorized, "operator is not the bank admin")
		}
		balance, ok := checked.Add(bank.Balance, amount)
		if !ok {
			return overflow()
		}
		bank.Balance = balance
		bank.UpdatedAt = now
		newBalance = balance
		return tx.PutBank(bank)
	})
	if err != nil {
		return err
	}
	s.emit(ctx, models.EventBankFunded, operator, map[string]any{
		"amount":      amount,
		"new_balance": newBalance,
	})
	return nil
}

func (s *Service) loadBank(tx store.Tx) (*models.Bank, error) {
	bank, err := tx.Bank()
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "bank not initialized")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load bank")
	}
	return bank, nil
}

func (s *Service) loadAccount(tx store.Tx, owner domain.Address) (*models.Account, error) {
	account, err := tx.Account(owner)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "account not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load account")
	}
	return account, nil
}

func (s *Service) emit(ctx context.Context, eventType models.EventType, address domain.Address, fields map[string]any) {
	if s.events == nil {
		return
	}
	s.events.Emit(ctx, models.NewEvent(eventType, address.String(), fields))
}

func (s *Service) observe(ctx context.Context, op string, amount domain.Lamports, err error) {
	s.metrics.Observe(op, amount, err)
	if err != nil {
		s.logger.WarnContext(ctx, "ledger operation failed",
			"op", op,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
}

func overflow() error {
	return dErrors.New(dErrors.CodeArithmeticOverflow, "arithmetic overflow")
}

func insufficient() error {
	return dErrors.New(dErrors.CodeInsufficientBalance, "insufficient balance")
}

func bankClosed() error {
	return dErrors.New(dErrors.CodeBankClosed, "bank is not operational")
}
