// Package models defines the ledger's persistent state: the singleton bank
// record and per-owner accounts.
package models

import (
	"time"

	"devbank/pkg/domain"
)

// Program constants. Rates are expressed the way the ledger computes them:
// staking in basis points against slots elapsed, loan interest as a whole
// percentage against seconds elapsed.
const (
	StakingAPYBasisPoints uint64 = 500 // 5% APY
	LendingInterestRate   uint64 = 13  // 13% simple interest per year
	PercentageDivisor     uint64 = 100
	BasisPointsDivisor    uint64 = 10_000
	CollateralRatio       uint64 = 80 // borrow up to 80% of balance
	SlotsPerYear          uint64 = 432_000 * 365
	SecondsPerYear        uint64 = 365 * 24 * 60 * 60

	MaxDepositLamports uint64 = 1_000_000 * domain.LamportsPerToken
	InitialBankBalance uint64 = 5_000 * domain.LamportsPerToken
)

// Bank is the singleton bank record. Balances are aggregates over all
// accounts; Balance is the bank's own liquidity from which rewards and loans
// are paid.
type Bank struct {
	Admin         domain.Address
	Balance       domain.Lamports
	StakedBalance domain.Lamports
	LentBalance   domain.Lamports
	TotalUsers    uint64
	Operational   bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Account is a per-owner ledger account. StakeSlot is the slot at which the
// current stake position was last settled; LoanTime is when the active loan
// was taken (zero when no loan is active).
type Account struct {
	Owner         domain.Address
	Balance       domain.Lamports
	StakedBalance domain.Lamports
	StakeSlot     uint64
	LentBalance   domain.Lamports
	LoanTime      time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// HasActiveLoan reports whether the account currently owes the bank.
func (a *Account) HasActiveLoan() bool {
	return a.LentBalance > 0
}

// IsDrained reports whether every balance is zero, the precondition for
// closing the account.
func (a *Account) IsDrained() bool {
	return a.Balance == 0 && a.StakedBalance == 0 && a.LentBalance == 0
}
