package errors

import "errors"

var (
	ErrInvalidRequest = errors.New("invalid reputation request")
	ErrInvalidPolicy  = errors.New("invalid decay policy")
	ErrNoSources      = errors.New("no credential sources configured")
)
