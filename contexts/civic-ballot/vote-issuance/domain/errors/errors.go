package errors

import "errors"

var (
	ErrReservationNotFound = errors.New("reservation not found")
	ErrOutboxNotFound      = errors.New("outbox message not found")
	ErrConflict            = errors.New("issuance conflict")
	ErrMisconfigured       = errors.New("vote issuance is misconfigured")
)
