// Package multierr aggregates independent validation failures so that a
// construct can report every problem with its configuration in one pass
// instead of failing on the first.
package multierr

import (
	"errors"
	"fmt"
	"strings"
)

type Error []error

func (e Error) Error() string {
	switch len(e) {
	case 0:
		return "<nil>"
	case 1:
		return e[0].Error()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d errors occurred:", len(e))
	for _, err := range e {
		fmt.Fprintf(&sb, "\n\t* %v", err)
	}
	return sb.String()
}

// Append mutates e, appending err. Appending nil is a no-op, so callers can
// funnel every validation result through it unconditionally:
//
//	var e multierr.Error
//	e.Append(validateName(name))
func (e *Error) Append(err error) {
	if e == nil || err == nil {
		return
	}
	*e = append(*e, err)
}

// ErrOrNil converts the aggregate into a plain error, avoiding the typed-nil
// trap ((Error)(nil) != nil). A single-element aggregate unwraps to its sole
// member.
func (e Error) ErrOrNil() error {
	switch len(e) {
	case 0:
		return nil
	case 1:
		return e[0]
	}
	return e
}

// Is reports whether any member matches target, per errors.Is.
func (e Error) Is(target error) bool {
	for _, err := range e {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// As reports whether any member matches target, per errors.As.
func (e Error) As(target any) bool {
	for _, err := range e {
		if errors.As(err, target) {
			return true
		}
	}
	return false
}
