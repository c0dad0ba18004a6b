// Package apperr defines the error taxonomy shared by every layer.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrValidation    = errors.New("validation failed")
	ErrAuth          = errors.New("authentication failed")
	ErrRequest       = errors.New("request failed")
)

// RequestError describes a failed call against the remote item collection.
// Status is zero when the request never produced a response.
type RequestError struct {
	Op     string
	Status int
	Err    error
}

func (e *RequestError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("HTTP error! status: %d", e.Status)
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return ErrRequest.Error()
}

// Unwrap exposes ErrRequest and the transport cause to errors.Is / errors.As.
func (e *RequestError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrRequest}
	}
	return []error{ErrRequest, e.Err}
}

// Validation returns an ErrValidation carrying msg.
func Validation(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}

// Auth returns an ErrAuth carrying msg.
func Auth(msg string) error {
	return fmt.Errorf("%w: %s", ErrAuth, msg)
}
