package common

import (
	"errors"
	"strings"
)

type ErrorKind string

const (
	ErrorKindAuth      ErrorKind = "auth"
	ErrorKindTransport ErrorKind = "transport"
	ErrorKindVendor    ErrorKind = "vendor"
	ErrorKindStore     ErrorKind = "store"
	ErrorKindConfig    ErrorKind = "config"
	ErrorKindInvalid   ErrorKind = "invalid input"
)

// Error carries the failure class of an operation. Sentinels below match any
// Error of the same kind through errors.Is.
type Error struct {
	Kind ErrorKind
	Op   string
	Msg  string
	Err  error
}

var (
	ErrAuth      = &Error{Kind: ErrorKindAuth}
	ErrTransport = &Error{Kind: ErrorKindTransport}
	ErrVendor    = &Error{Kind: ErrorKindVendor}
	ErrStore     = &Error{Kind: ErrorKindStore}
	ErrConfig    = &Error{Kind: ErrorKindConfig}
	ErrInvalid   = &Error{Kind: ErrorKindInvalid}
)

func (e *Error) Error() string {
	parts := make([]string, 0, 4)
	parts = append(parts, string(e.Kind)+" error")
	if e.Op != "" {
		parts = append(parts, e.Op)
	}
	if e.Msg != "" {
		parts = append(parts, e.Msg)
	}
	if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}
	return strings.Join(parts, ": ")
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Msg == "" && t.Err == nil
}

func NewAuthError(op, msg string, err error) error {
	return &Error{Kind: ErrorKindAuth, Op: op, Msg: msg, Err: err}
}

func NewTransportError(op string, err error) error {
	return &Error{Kind: ErrorKindTransport, Op: op, Err: err}
}

func NewVendorError(op, msg string) error {
	return &Error{Kind: ErrorKindVendor, Op: op, Msg: msg}
}

func NewStoreError(op string, err error) error {
	return &Error{Kind: ErrorKindStore, Op: op, Err: err}
}

func NewConfigError(msg string) error {
	return &Error{Kind: ErrorKindConfig, Msg: msg}
}

func NewInvalidError(op, msg string) error {
	return &Error{Kind: ErrorKindInvalid, Op: op, Msg: msg}
}

// Kind reports the ErrorKind of the first *Error in err's chain, or "" if none.
func Kind(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
