// Package repository implements the MySQL persistence layer.  This file
// defines error values shared across repositories.  These sentinels let
// the service layer distinguish failure scenarios and translate them
// into the API error taxonomy without inspecting driver errors.
package repository

import (
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
)

// ErrOrderNotFound is returned when no order exists for the given id.
var ErrOrderNotFound = errors.New("order not found")

// ErrUserNotFound is returned when a directory lookup finds no user.
// Directory lookups fail closed: a lookup failure is never treated as
// "assume valid".
var ErrUserNotFound = errors.New("user not found")

// ErrDepartmentNotFound is returned when a department lookup finds no row.
var ErrDepartmentNotFound = errors.New("department not found")

// ErrMenuNotFound is returned when no published menu exists for a
// date and meal type.  Callers treat this as "order without a menu",
// not as a failure.
var ErrMenuNotFound = errors.New("menu not found")

// ErrAlreadyConfirmed is returned when a state transition targets an
// order whose dining status is already dined.  Dined is terminal.
var ErrAlreadyConfirmed = errors.New("order already confirmed")

// ErrOrderCancelled is returned when a state transition targets a
// cancelled order.  Cancelled is terminal.
var ErrOrderCancelled = errors.New("order cancelled")

// DuplicateBookingError reports members that already hold a
// non-cancelled booking for the same dining date and meal type.
// UserIDs is empty when the conflict was raised by the storage-level
// uniqueness key rather than the in-transaction read, in which case the
// offending ids are unknown.
type DuplicateBookingError struct {
	UserIDs []uint64
}

func (e *DuplicateBookingError) Error() string {
	if len(e.UserIDs) == 0 {
		return "member already booked for this meal"
	}
	return fmt.Sprintf("members already booked for this meal: %v", e.UserIDs)
}

// mysqlDuplicateEntry is the MySQL error number raised when a unique
// key rejects an insert (ER_DUP_ENTRY).
const mysqlDuplicateEntry = 1062

// isDuplicateEntry reports whether err is a unique-key violation.  The
// uq_member_meal key on order_members fires when two concurrent batch
// creations race past the in-transaction duplicate read.
func isDuplicateEntry(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
