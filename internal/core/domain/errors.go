package domain

import (
	"errors"
	"fmt"
)

// FetchErrorKind classifies failures of the blockchain fetch path. Callers
// branch on the kind: NotFound is terminal for this cycle, Transient is
// retryable, DecodeError is logged and left for the next crawl pass.
type FetchErrorKind string

const (
	FetchNotFound  FetchErrorKind = "not_found"
	FetchTransient FetchErrorKind = "transient"
	FetchDecode    FetchErrorKind = "decode"
)

// FetchError wraps a failure from the blockchain fetcher with its kind.
type FetchError struct {
	Kind    FetchErrorKind
	TokenID uint64
	Err     error
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("fetch token %d: %s", e.TokenID, e.Kind)
	}
	return fmt.Sprintf("fetch token %d: %s: %v", e.TokenID, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// NewFetchError builds a classified fetch error.
func NewFetchError(kind FetchErrorKind, tokenID uint64, err error) *FetchError {
	return &FetchError{Kind: kind, TokenID: tokenID, Err: err}
}

// FetchKind extracts the kind from an error chain. Unclassified errors are
// treated as transient so they stay retryable.
func FetchKind(err error) FetchErrorKind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return FetchTransient
}

var (
	// ErrValidation marks malformed caller input rejected at the boundary.
	ErrValidation = errors.New("validation error")

	// ErrPageOutOfRange marks a pagination request outside [1, totalPages].
	ErrPageOutOfRange = errors.New("page out of range")

	// ErrCursorNotFound is returned when no refresh cursor exists yet.
	ErrCursorNotFound = errors.New("refresh cursor not found")
)
