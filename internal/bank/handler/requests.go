package handler

import (
	"devbank/pkg/domain"
	dErrors "devbank/pkg/domain-errors"
)

// InitializeBankRequest is the HTTP request body for POST /bank.
type InitializeBankRequest struct {
	Admin string `json:"admin"`

	parsedAdmin domain.Address
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *InitializeBankRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	admin, err := domain.ParseAddress(r.Admin)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInvalidInput, "admin address is invalid")
	}
	r.parsedAdmin = admin
	return nil
}

// ParsedAdmin returns the validated admin address.
func (r *InitializeBankRequest) ParsedAdmin() domain.Address {
	return r.parsedAdmin
}

// CreateAccountRequest is the HTTP request body for POST /accounts.
type CreateAccountRequest struct {
	Owner string `json:"owner"`

	parsedOwner domain.Address
}

func (r *CreateAccountRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	owner, err := domain.ParseAddress(r.Owner)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInvalidInput, "owner address is invalid")
	}
	r.parsedOwner = owner
	return nil
}

// ParsedOwner returns the validated owner address.
func (r *CreateAccountRequest) ParsedOwner() domain.Address {
	return r.parsedOwner
}

// AmountRequest is the HTTP request body for the lamport-moving account
// operations (deposit, withdraw, stake, unstake, borrow).
type AmountRequest struct {
	Lamports domain.Lamports `json:"lamports"`
}

func (r *AmountRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.Lamports == 0 {
		return dErrors.New(dErrors.CodeInvalidAmount, "lamports must be greater than zero")
	}
	return nil
}

// TransferRequest is the HTTP request body for POST /transfer.
type TransferRequest struct {
	From     string          `json:"from"`
	To       string          `json:"to"`
	Lamports domain.Lamports `json:"lamports"`

	parsedFrom domain.Address
	parsedTo   domain.Address
}

func (r *TransferRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	from, err := domain.ParseAddress(r.From)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInvalidInput, "from address is invalid")
	}
	to, err := domain.ParseAddress(r.To)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInvalidInput, "to address is invalid")
	}
	if r.Lamports == 0 {
		return dErrors.New(dErrors.CodeInvalidAmount, "lamports must be greater than zero")
	}
	r.parsedFrom = from
	r.parsedTo = to
	return nil
}

// ParsedFrom returns the validated sender address.
func (r *TransferRequest) ParsedFrom() domain.Address {
	return r.parsedFrom
}

// ParsedTo returns the validated recipient address.
func (r *TransferRequest) ParsedTo() domain.Address {
	return r.parsedTo
}

// SetStatusRequest is the HTTP request body for POST /bank/status.
type SetStatusRequest struct {
	Operational *bool `json:"operational"`
}

func (r *SetStatusRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.Operational == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "operational is required")
	}
	return nil
}
