package errors

import "errors"

var (
	ErrNotFound      = errors.New("ledger entry not found")
	ErrInvalidFilter = errors.New("invalid ledger filter")
	ErrCorruptLog    = errors.New("ledger log is corrupt")
	ErrConflict      = errors.New("ledger position conflict")
	ErrMisconfigured = errors.New("ballot ledger is misconfigured")
)
