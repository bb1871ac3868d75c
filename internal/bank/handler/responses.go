package handler

import (
	"time"

	"devbank/internal/bank/models"
)

// BankResponse is the HTTP representation of the bank ledger.
type BankResponse struct {
	Admin         string    `json:"admin"`
	Balance       uint64    `json:"balance"`
	StakedBalance uint64    `json:"staked_balance"`
	LentBalance   uint64    `json:"lent_balance"`
	TotalUsers    uint64    `json:"total_users"`
	Operational   bool      `json:"operational"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// AccountResponse is the HTTP representation of a user account.
type AccountResponse struct {
	Owner         string     `json:"owner"`
	Balance       uint64     `json:"balance"`
	StakedBalance uint64     `json:"staked_balance"`
	StakeSlot     uint64     `json:"stake_slot,omitempty"`
	LentBalance   uint64     `json:"lent_balance"`
	LoanTime      *time.Time `json:"loan_time,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// AccountsResponse is the HTTP response for GET /accounts.
type AccountsResponse struct {
	Accounts []*AccountResponse `json:"accounts"`
}

// FromBank converts a bank model to its HTTP response.
func FromBank(bank *models.Bank) *BankResponse {
	return &BankResponse{
		Admin:         bank.Admin.String(),
		Balance:       bank.Balance,
		StakedBalance: bank.StakedBalance,
		LentBalance:   bank.LentBalance,
		TotalUsers:    bank.TotalUsers,
		Operational:   bank.Operational,
		CreatedAt:     bank.CreatedAt,
		UpdatedAt:     bank.UpdatedAt,
	}
}

// FromAccount converts an account model to its HTTP response.
func FromAccount(account *models.Account) *AccountResponse {
	resp := &AccountResponse{
		Owner:         account.Owner.String(),
		Balance:       account.Balance,
		StakedBalance: account.StakedBalance,
		StakeSlot:     account.StakeSlot,
		LentBalance:   account.LentBalance,
		CreatedAt:     account.CreatedAt,
		UpdatedAt:     account.UpdatedAt,
	}
	if account.HasActiveLoan() {
		loanTime := account.LoanTime
		resp.LoanTime = &loanTime
	}
	return resp
}

// FromAccounts converts a list of account models.
func FromAccounts(accounts []*models.Account) *AccountsResponse {
	out := make([]*AccountResponse, 0, len(accounts))
	for _, account := range accounts {
		out = append(out, FromAccount(account))
	}
	return &AccountsResponse{Accounts: out}
}
