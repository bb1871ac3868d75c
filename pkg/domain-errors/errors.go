// Package dErrors provides coded domain errors. Services wrap infrastructure
// failures and validation faults with a Code; the HTTP layer translates codes
// into status responses without inspecting error strings.
package dErrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a domain error.
type Code string

const (
	CodeInvalidInput Code = "invalid_input"
	CodeBadRequest   Code = "bad_request"
	CodeUnauthorized Code = "unauthorized"
	CodeNotFound     Code = "not_found"
	CodeConflict     Code = "conflict"
	CodeInternal     Code = "internal"

	// Ledger operation faults, mirroring the on-chain program's error set.
	CodeInvalidAmount       Code = "invalid_amount"
	CodeAmountTooLarge      Code = "amount_too_large"
	CodeInsufficientBalance Code = "insufficient_balance"
	CodeBankInsufficient    Code = "bank_insufficient_funds"
	CodeBankClosed          Code = "bank_not_operational"
	CodeArithmeticOverflow  Code = "arithmetic_overflow"
	CodeActiveLoanExists    Code = "active_loan_exists"
	CodeNoActiveLoan        Code = "no_active_loan"
	CodeCollateralExceeded  Code = "collateral_ratio_exceeded"
	CodeRateLimited         Code = "rate_limited"
)

// Error is a domain error carrying a Code and an operator-facing message.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the wrapped cause for errors.Is / errors.As chains.
func (e *Error) Unwrap() error {
	return e.cause
}

// New creates a domain error with no underlying cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error. A nil err returns
// nil so call sites can wrap unconditionally.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var derr *Error
	if errors.As(err, &derr) {
		return derr.Code == code
	}
	return false
}

// CodeOf returns the code carried by err, or CodeInternal when err carries
// none.
func CodeOf(err error) Code {
	var derr *Error
	if errors.As(err, &derr) {
		return derr.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a code to an HTTP status for the JSON error envelope.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeInvalidInput, CodeBadRequest, CodeInvalidAmount, CodeAmountTooLarge:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeActiveLoanExists, CodeNoActiveLoan:
		return http.StatusConflict
	case CodeInsufficientBalance, CodeBankInsufficient, CodeCollateralExceeded:
		return http.StatusUnprocessableEntity
	case CodeBankClosed:
		return http.StatusServiceUnavailable
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeArithmeticOverflow, CodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
