// Package failures is the typed error taxonomy shared by the ballot, trust and
// polling contexts. Every mutating operation returns one of these on failure so
// callers can branch on Kind instead of parsing messages.
package failures

import (
	"errors"
	"fmt"
	"strings"
)

type Kind string

const (
	KindInvalidPayload        Kind = "invalid_payload"
	KindDuplicateVote         Kind = "duplicate_vote"
	KindExpiredBallot         Kind = "expired_ballot"
	KindSignature             Kind = "invalid_signature"
	KindInsufficientResponses Kind = "insufficient_responses"
	KindAccessDenied          Kind = "access_denied"
	KindSourceUnavailable     Kind = "source_unavailable"
	KindProcessing            Kind = "processing_error"
	KindUnknown               Kind = "unknown"
)

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid payload: " + e.Reason
	}
	return fmt.Sprintf("invalid payload: %s: %s", e.Field, e.Reason)
}

func Invalid(field string, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// DuplicateError carries the id of the token that already occupies the slot.
type DuplicateError struct {
	ExistingID string
}

func (e *DuplicateError) Error() string {
	return "duplicate vote: existing token " + e.ExistingID
}

type ExpiredError struct {
	Subject string
}

func (e *ExpiredError) Error() string {
	if e.Subject == "" {
		return "expired"
	}
	return e.Subject + " expired"
}

type SignatureError struct {
	TokenID string
}

func (e *SignatureError) Error() string {
	return "signature verification failed for token " + e.TokenID
}

type InsufficientResponsesError struct {
	Have int
	Need int
}

func (e *InsufficientResponsesError) Error() string {
	return fmt.Sprintf("insufficient responses: have %d, need %d", e.Have, e.Need)
}

type AccessDeniedError struct {
	Subject  string
	Required string
}

func (e *AccessDeniedError) Error() string {
	return fmt.Sprintf("access denied for %q: requires %s", e.Subject, e.Required)
}

type SourceUnavailableError struct {
	Source string
	Err    error
}

func (e *SourceUnavailableError) Error() string {
	if e.Err == nil {
		return "source unavailable: " + e.Source
	}
	return fmt.Sprintf("source unavailable: %s: %v", e.Source, e.Err)
}

func (e *SourceUnavailableError) Unwrap() error {
	return e.Err
}

type ProcessingError struct {
	Op  string
	Err error
}

func (e *ProcessingError) Error() string {
	if e.Err == nil {
		return "processing error: " + e.Op
	}
	return fmt.Sprintf("processing error: %s: %v", e.Op, e.Err)
}

func (e *ProcessingError) Unwrap() error {
	return e.Err
}

// Processing wraps err unless it already carries a taxonomy kind.
func Processing(op string, err error) error {
	if err == nil {
		return nil
	}
	if KindOf(err) != KindUnknown {
		return err
	}
	return &ProcessingError{Op: strings.TrimSpace(op), Err: err}
}

// KindOf reports the discriminant for err, searching the wrap chain.
func KindOf(err error) Kind {
	var (
		validation   *ValidationError
		duplicate    *DuplicateError
		expired      *ExpiredError
		signature    *SignatureError
		insufficient *InsufficientResponsesError
		denied       *AccessDeniedError
		source       *SourceUnavailableError
		processing   *ProcessingError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &validation):
		return KindInvalidPayload
	case errors.As(err, &duplicate):
		return KindDuplicateVote
	case errors.As(err, &expired):
		return KindExpiredBallot
	case errors.As(err, &signature):
		return KindSignature
	case errors.As(err, &insufficient):
		return KindInsufficientResponses
	case errors.As(err, &denied):
		return KindAccessDenied
	case errors.As(err, &source):
		return KindSourceUnavailable
	case errors.As(err, &processing):
		return KindProcessing
	default:
		return KindUnknown
	}
}
