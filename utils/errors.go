package utils

import (
	"errors"
	"fmt"
)

// ErrorKind classifies application failures so controllers can pick an
// HTTP status without string matching.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindNotFound
	KindConflict
	KindValidation
	KindGateway
	KindInvariant
)

type AppError struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *AppError) Unwrap() error { return e.Err }

func NotFoundError(msg string) error {
	return &AppError{Kind: KindNotFound, Msg: msg}
}

func ConflictError(msg string) error {
	return &AppError{Kind: KindConflict, Msg: msg}
}

func ValidationError(msg string) error {
	return &AppError{Kind: KindValidation, Msg: msg}
}

func GatewayError(msg string, err error) error {
	return &AppError{Kind: KindGateway, Msg: msg, Err: err}
}

// InvariantError marks a state that should be unreachable, e.g. finalizing
// an invoice that was never created.
func InvariantError(msg string) error {
	return &AppError{Kind: KindInvariant, Msg: msg}
}

// KindOf returns the ErrorKind of err, unwrapping as needed.
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindUnknown
}
