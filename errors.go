// SPDX-FileCopyrightText: 2024 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

package pir

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrInvalidConfig indicates a driver was requested for a pin outside the
	// set allowed by the registry, or with an unusable option.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrHardwareAccess indicates the GPIO subsystem could not provision or
	// release a pin.
	ErrHardwareAccess = errors.New("hardware access failed")

	// ErrClosed indicates the provider or line has already been closed.
	ErrClosed = errors.New("already closed")
)

// HandlerError indicates a Handler panicked while handling a transition.
//
// HandlerErrors are logged at the dispatch boundary and do not propagate.
type HandlerError struct {
	// The name of the pin being handled.
	Pin string

	// The value recovered from the panic.
	Value interface{}
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("handler for %s panicked: %v", e.Pin, e.Value)
}

// Unwrap returns the recovered value if it is itself an error.
func (e *HandlerError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// hardwareError wraps an error returned by a Provider or Line.
type hardwareError struct {
	op  string
	pin Pin
	err error
}

func (e *hardwareError) Error() string {
	return fmt.Sprintf("%s %s: %s: %s", e.op, e.pin.Name(), ErrHardwareAccess, e.err)
}

// Is reports ErrHardwareAccess, so callers need not know the underlying cause.
func (e *hardwareError) Is(target error) bool {
	return target == ErrHardwareAccess
}

func (e *hardwareError) Unwrap() error {
	return e.err
}

func newHardwareError(op string, pin Pin, err error) error {
	return errors.WithStack(&hardwareError{op: op, pin: pin, err: err})
}
