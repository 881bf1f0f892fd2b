// Package apperr defines the error kinds shared across the trading core, the
// way a single small sentinel-error type threads through every layer instead
// of a bespoke exception hierarchy per package.
package apperr

import (
	"errors"
	"fmt"
)

// Kind is one of the documented error categories. HTTP status mapping and
// client-facing messages are derived from Kind alone.
type Kind string

const (
	Unauthorized        Kind = "Unauthorized"
	MissingField        Kind = "MissingField"
	Malformed           Kind = "Malformed"
	InvalidMarket       Kind = "InvalidMarket"
	MarketNotFound      Kind = "MarketNotFound"
	PortfolioMissing    Kind = "PortfolioMissing"
	InsufficientFunds   Kind = "InsufficientFunds"
	Contention          Kind = "Contention"
	ConfirmationTooLate Kind = "ConfirmationTooLate"
	TransactionFailed   Kind = "TransactionFailed"
	NumericDomain       Kind = "NumericDomain"
)

// Error wraps an underlying cause with a Kind so callers can branch on
// errors.As without string-matching messages.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a Kind-tagged error with a message.
func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap builds a Kind-tagged error wrapping an underlying cause.
func Wrap(kind Kind, msg string, err error) error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf extracts the Kind from err, or "" if err does not carry one.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
