package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and infrastructure layers
// return these (optionally wrapped) so services can translate them into domain
// errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: account or bank record does not exist in store
// - ErrConflict: record already exists (bank initialized twice, duplicate account)
// - ErrUnavailable: backing service (postgres, redis, broker) temporarily down
//
// For validation errors (bad input, bad amounts), use pkg/domain-errors directly.
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrReadOnly    = errors.New("read-only transaction")
	ErrUnavailable = errors.New("unavailable")
)
