package client

import (
	"errors"
	"fmt"
)

var (
	ErrClosed     = errors.New("connection closed")
	ErrServer     = errors.New("signaling server error")
	ErrTimeout    = errors.New("timeout")
	ErrNotInRoom  = errors.New("not in a room")
	ErrConnection = errors.New("connection failed")
)

// SessionError describes a failed step of a room session.
type SessionError struct {
	Op      string
	Err     error
	Details string
}

func (e *SessionError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %v (%s)", e.Op, e.Err, e.Details)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *SessionError) Unwrap() error {
	return e.Err
}

func NewError(op string, err error) *SessionError {
	return &SessionError{Op: op, Err: err}
}

func WrapError(op string, err error, details string) *SessionError {
	return &SessionError{Op: op, Err: err, Details: details}
}
