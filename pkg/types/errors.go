package types

import (
	"errors"
	"fmt"
)

// Record and collection errors.
var (
	ErrNotFound    = errors.New("record not found")
	ErrInvalidID   = errors.New("invalid record ID")
	ErrDuplicateID = errors.New("duplicate record ID")
	ErrInvalidKind = errors.New("invalid record kind")
)

// Validation errors. Every one of them wraps ErrValidation so callers can
// reject malformed input with a single errors.Is check.
var (
	ErrValidation        = errors.New("validation failed")
	ErrInvalidStatus     = fmt.Errorf("%w: invalid status value", ErrValidation)
	ErrInvalidField      = fmt.Errorf("%w: field cannot be patched", ErrValidation)
	ErrTypeMismatch      = fmt.Errorf("%w: type mismatch", ErrValidation)
	ErrInvalidFilter     = fmt.Errorf("%w: invalid filter", ErrValidation)
	ErrInvalidDateRange  = fmt.Errorf("%w: date range ends before it starts", ErrValidation)
	ErrInvalidPagination = fmt.Errorf("%w: page size must be positive", ErrValidation)
)

// Mutation errors.
var (
	ErrMutationRejected  = errors.New("mutation rejected")
	ErrInvalidTransition = errors.New("invalid status transition")
)
