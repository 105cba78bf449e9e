// Package errors carries the framework error helpers. Control rejections and
// transient exchange failures are ordinary wrapped errors; ErrDomain marks a
// programming or configuration defect that must stop the engine.
package errors

import (
	"errors"
	"fmt"
)

var (
	_ error = (*wrappedError)(nil)

	// ErrDomain is the marker for domain invariant violations.
	ErrDomain = errors.New("domain invariant violated")
)

func New(text string) error {
	return errors.New(text)
}

func Newf(format string, args ...any) error {
	return fmt.Errorf(format, args...)
}

func Is(err, target error) bool {
	return errors.Is(err, target)
}

// Wrap annotates err with text, preserving the chain for errors.Is.
func Wrap(err error, text string) error {
	if err == nil {
		return nil
	}

	if len(text) == 0 {
		return err
	}

	return &wrappedError{
		err: err,
		msg: text,
	}
}

// Domain builds a fail-fast error for an invariant breach, e.g. an order type
// outside the closed set. It matches ErrDomain under errors.Is.
func Domain(format string, args ...any) error {
	return &wrappedError{
		err: ErrDomain,
		msg: fmt.Sprintf(format, args...),
	}
}

type wrappedError struct {
	err error
	msg string
}

const sep = ", err: "

func (err wrappedError) Error() string {
	if err.err == nil {
		return err.msg
	}

	return err.msg + sep + err.err.Error()
}

func (err wrappedError) Unwrap() error {
	if err.err == nil {
		return errors.New(err.msg)
	}

	return err.err
}
