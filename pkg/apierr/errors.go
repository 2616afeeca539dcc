package apierr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

var (
	ErrAuthentication = errors.New("authentication")
	ErrValidation     = errors.New("validation")
	ErrNotFound       = errors.New("not found")
	ErrTransient      = errors.New("transient")
	ErrDecode         = errors.New("decode")
)

// StatusError is a failed call to the backend. It unwraps to one of the
// package sentinels so callers can branch with errors.Is.
type StatusError struct {
	Op      string
	Status  int
	Message string
	Kind    error
	Err     error
}

func (e *StatusError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status > 0 {
		return fmt.Sprintf("%s: %s: status %d: %s", e.Op, e.Kind, e.Status, msg)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, msg)
}

func (e *StatusError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

func KindForStatus(status int) error {
	switch {
	case status == http.StatusUnauthorized:
		return ErrAuthentication
	case status == http.StatusNotFound:
		return ErrNotFound
	case status >= 500:
		return ErrTransient
	case status >= 400:
		return ErrValidation
	default:
		return nil
	}
}

func FromStatus(op string, status int, message string) error {
	kind := KindForStatus(status)
	if kind == nil {
		return nil
	}
	return &StatusError{Op: op, Status: status, Message: message, Kind: kind}
}

// FromTransport classifies a failure that happened before any response was read.
func FromTransport(op string, err error) error {
	if err == nil {
		return nil
	}
	// caller gave up; not a backend condition worth retrying
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return &StatusError{Op: op, Kind: ErrTransient, Err: err}
}

func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func Decode(op string, err error) error {
	return &StatusError{Op: op, Kind: ErrDecode, Err: err}
}

func Status(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status
	}
	return 0
}
