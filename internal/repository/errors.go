// Package repository defines the storage contract of the ticket-sales
// backend and its MySQL implementation. The sentinel errors below are
// shared by every Store implementation so that higher layers can
// distinguish failure scenarios without knowing the backing database.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when the requested row does not exist.
// Handlers translate it into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert violates a unique index
// (event id, user email, order number, ticket number, QR payload).
// Handlers translate it into an HTTP 409 response.
var ErrDuplicate = errors.New("duplicate")

// ErrConflict is returned when a delete or update cannot be performed
// because of dependent rows, such as deleting an event that still has
// purchases. Handlers translate it into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// MySQL server error numbers the store reacts to.
const (
	mysqlDuplicateEntry  = 1062
	mysqlRowIsReferenced = 1451
)

// translate maps driver errors onto the sentinel errors above.
func translate(err error) error {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case mysqlDuplicateEntry:
			return ErrDuplicate
		case mysqlRowIsReferenced:
			return ErrConflict
		}
	}
	return err
}
