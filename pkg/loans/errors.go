package loans

import (
	"errors"
)

type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindConflict
	KindUnauthenticated
	KindUnavailable
)

// Error is the failure contract of every loan operation. NotFound and
// Conflict are business-rule failures shown to the caller verbatim,
// Unauthenticated means the bearer credential was missing or expired,
// Unavailable means the store could not be reached in time.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func NotFound(entity string) error {
	return &Error{Kind: KindNotFound, Message: entity + " not found"}
}

func Conflict(message string) error {
	return &Error{Kind: KindConflict, Message: message}
}

func Unauthenticated(message string) error {
	return &Error{Kind: KindUnauthenticated, Message: message}
}

func Unavailable(message string) error {
	return &Error{Kind: KindUnavailable, Message: message}
}

func Internal(message string) error {
	return &Error{Kind: KindInternal, Message: message}
}

// KindOf extracts the error kind; anything that is not a loans.Error
// counts as internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func IsNotFound(err error) bool        { return err != nil && KindOf(err) == KindNotFound }
func IsConflict(err error) bool        { return err != nil && KindOf(err) == KindConflict }
func IsUnauthenticated(err error) bool { return err != nil && KindOf(err) == KindUnauthenticated }
func IsUnavailable(err error) bool     { return err != nil && KindOf(err) == KindUnavailable }
