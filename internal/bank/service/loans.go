package service

import (
	"context"
	"time"

	"devbank/internal/bank/models"
	"devbank/internal/bank/store"
	"devbank/pkg/checked"
	"devbank/pkg/domain"
	dErrors "devbank/pkg/domain-errors"
	"devbank/pkg/requestcontext"
)

// Borrow lends bank funds to an account. One loan at a time; the amount is
// capped at the collateral ratio of the account's current balance.
func (s *Service) Borrow(ctx context.Context, owner domain.Address, amount domain.Lamports) (account *models.Account, err error) {
	defer func() { s.observe(ctx, "borrow", amount, err) }()

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
		if account.HasActiveLoan() {
			return dErrors.New(dErrors.CodeActiveLoanExists, "account already has an active loan")
		}
		if bank.Balance < amount {
			return dErrors.New(dErrors.CodeBankInsufficient, "bank has insufficient funds")
		}

		maxBorrow, ok := checked.Mul(account.Balance, models.CollateralRatio)
		if !ok {
			return overflow()
		}
		if maxBorrow, ok = checked.Div(maxBorrow, models.PercentageDivisor); !ok {
			return overflow()
		}
		if amount > maxBorrow {
			return dErrors.New(dErrors.CodeCollateralExceeded, "amount exceeds collateral limit")
		}

		account.LentBalance = amount
		if account.Balance, err = addChecked(account.Balance, amount); err != nil {
			return err
		}
		account.LoanTime = now
		if bank.Balance, err = subChecked(bank.Balance, amount); err != nil {
			return err
		}
		if bank.LentBalance, err = addChecked(bank.LentBalance, amount); err != nil {
			return err
		}

		account.UpdatedAt = now
		bank.UpdatedAt = now
		if err := tx.PutBank(bank); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "save bank")
		}
		return tx.PutAccount(account)
	})
	if err != nil {
		return nil, err
	}
	s.emit(ctx, models.EventBorrow, owner, map[string]any{
		"amount":      amount,
		"new_balance": account.Balance,
	})
	return account, nil
}

// Repay settles the account's active loan in full: principal plus simple
// interest on the time the loan was outstanding.
func (s *Service) Repay(ctx context.Context, owner domain.Address) (account *models.Account, err error) {
	var repaid domain.Lamports
	defer func() { s.observe(ctx, "repay", repaid, err) }()

	now := requestcontext.Now(ctx)
	var principal, interest domain.Lamports

	err = s.store.Update(ctx, func(tx store.Tx) error {
		bank, err := s.loadBank(tx)
		if err != nil {
			return err
		}
		account, err = s.loadAccount(tx, owner)
		if err != nil {
			return err
		}
		if !account.HasActiveLoan() {
			return dErrors.New(dErrors.CodeNoActiveLoan, "account has no active loan")
		}

		interest, err = loanInterest(account.LentBalance, now.Sub(account.LoanTime))
		if err != nil {
			return err
		}
		principal = account.LentBalance
		total, err := addChecked(principal, interest)
		if err != nil {
			return err
		}
		if account.Balance < total {
			return insufficient()
		}

		if bank.LentBalance, err = subChecked(bank.LentBalance, principal); err != nil {
			return err
		}
		if bank.Balance, err = addChecked(bank.Balance, total); err != nil {
			return err
		}
		if account.Balance, err = subChecked(account.Balance, total); err != nil {
			return err
		}
		account.LentBalance = 0
		account.LoanTime = time.Time{}

		account.UpdatedAt = now
		bank.UpdatedAt = now
		repaid = total
		if err := tx.PutBank(bank); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "save bank")
		}
		return tx.PutAccount(account)
	})
	if err != nil {
		return nil, err
	}
	s.emit(ctx, models.EventRepay, owner, map[string]any{
		"principal": principal,
		"interest":  interest,
		"total":     repaid,
	})
	return account, nil
}

// loanInterest computes simple interest on a principal over the elapsed
// duration: principal * rate% * seconds / 100 / seconds_per_year. Negative or
// zero elapsed time accrues nothing.
func loanInterest(principal domain.Lamports, elapsed time.Duration) (domain.Lamports, error) {
	seconds := int64(elapsed / time.Second)
	if seconds <= 0 {
		return 0, nil
	}
	interest, ok := checked.Mul(principal, models.LendingInterestRate)
	if !ok {
		return 0, overflow()
	}
	if interest, ok = checked.Mul(interest, uint64(seconds)); !ok {
		return 0, overflow()
	}
	if interest, ok = checked.Div(interest, models.PercentageDivisor); !ok {
		return 0, overflow()
	}
	if interest, ok = checked.Div(interest, models.SecondsPerYear); !ok {
		return 0, overflow()
	}
	return interest, nil
}
