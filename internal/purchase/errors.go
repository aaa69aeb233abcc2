package purchase

import (
	"errors"
	"fmt"
	"time"
)

// Kind is the stable, machine-checkable class of an Error.
type Kind string

const (
	KindNotFound              Kind = "not_found"
	KindInsufficientInventory Kind = "insufficient_inventory"
	KindInvalidStatus         Kind = "invalid_status"
	KindAlreadyUsed           Kind = "already_used"
	KindInvalidInput          Kind = "invalid_input"
	KindConflict              Kind = "conflict"
	KindInternal              Kind = "internal"
)

// Error is returned by every Manager operation.
type Error struct {
	Kind     Kind
	Resource string // user, event, purchase or ticket for KindNotFound
	Message  string
	UsedAt   *time.Time // prior validation time for KindAlreadyUsed
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of err, KindInternal for foreign errors.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindInternal
}

func notFound(resource string, err error) *Error {
	return &Error{Kind: KindNotFound, Resource: resource, Message: resource + " not found", Err: err}
}

func internal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

func invalidInput(msg string) *Error {
	return &Error{Kind: KindInvalidInput, Message: msg}
}
