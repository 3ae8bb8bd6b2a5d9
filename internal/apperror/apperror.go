package apperror

import "errors"

// Kind describes a stable error category that can be mapped to HTTP status codes
// or to a resolution outcome.
type Kind string

const (
	KindNotFound    Kind = "not_found"
	KindValidation  Kind = "validation"
	KindUnavailable Kind = "unavailable"
	KindRemote      Kind = "remote"
	KindComputation Kind = "computation"
)

// Error is a typed error with a stable Kind and a human-readable message.
// Msg should be safe to return to clients for Validation/NotFound.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func New(kind Kind, msg string, err error) error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

func NotFound(msg string, err error) error    { return New(KindNotFound, msg, err) }
func Validation(msg string, err error) error  { return New(KindValidation, msg, err) }
func Unavailable(msg string, err error) error { return New(KindUnavailable, msg, err) }
func Remote(msg string, err error) error      { return New(KindRemote, msg, err) }
func Computation(msg string, err error) error { return New(KindComputation, msg, err) }

func Is(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}
