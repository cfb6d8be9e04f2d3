package sqlgraph

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
)

// Class is the kind of a database failure as far as rank maintenance cares.
type Class int

// Failure classes.
const (
	Other Class = iota
	Unique
	ForeignKey
	Check
	Retryable
)

func (c Class) String() string {
	switch c {
	case Unique:
		return "unique"
	case ForeignKey:
		return "foreign key"
	case Check:
		return "check"
	case Retryable:
		return "retryable"
	}
	return "other"
}

// sqliteCoder is implemented by modernc.org/sqlite errors, which carry the
// extended result code.
type sqliteCoder interface {
	Code() int
}

// SQLite extended result codes.
const (
	sqliteBusy             = 5
	sqliteLocked           = 6
	sqliteConstraintCheck  = 275
	sqliteConstraintFK     = 787
	sqliteConstraintPK     = 1555
	sqliteConstraintUnique = 2067
)

// classes maps the codes of the registered drivers to failure classes.
var (
	pgClasses = map[pq.ErrorCode]Class{
		"23505": Unique,
		"23503": ForeignKey,
		"23514": Check,
		"40001": Retryable, // serialization_failure
		"40P01": Retryable, // deadlock_detected
	}
	mysqlClasses = map[uint16]Class{
		1062: Unique,
		1451: ForeignKey, // parent row
		1452: ForeignKey, // child row
		3819: Check,
		1205: Retryable, // lock wait timeout
		1213: Retryable, // deadlock
	}
	sqliteClasses = map[int]Class{
		sqliteConstraintUnique: Unique,
		sqliteConstraintPK:     Unique,
		sqliteConstraintFK:     ForeignKey,
		sqliteConstraintCheck:  Check,
	}
	// messages classify errors that lost their driver type, e.g. when a
	// driver error was formatted into a plain one.
	messages = []struct {
		text  string
		class Class
	}{
		{"UNIQUE constraint failed", Unique},
		{"violates unique constraint", Unique},
		{"Error 1062", Unique},
		{"FOREIGN KEY constraint failed", ForeignKey},
		{"violates foreign key constraint", ForeignKey},
		{"CHECK constraint failed", Check},
		{"violates check constraint", Check},
		{"database is locked", Retryable},
		{"SQLITE_BUSY", Retryable},
		{"could not serialize access", Retryable},
		{"deadlock detected", Retryable},
		{"Error 1213", Retryable},
		{"Error 1205", Retryable},
	}
)

// Classify returns the failure class of err. Typed errors of lib/pq,
// go-sql-driver/mysql and modernc.org/sqlite are matched by code, anything
// else by message.
func Classify(err error) Class {
	if err == nil {
		return Other
	}
	var pe *pq.Error
	if errors.As(err, &pe) {
		return pgClasses[pe.Code]
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return mysqlClasses[me.Number]
	}
	var se sqliteCoder
	if errors.As(err, &se) {
		code := se.Code()
		if primary := code & 0xff; primary == sqliteBusy || primary == sqliteLocked {
			return Retryable
		}
		return sqliteClasses[code]
	}
	msg := err.Error()
	for _, m := range messages {
		if strings.Contains(msg, m.text) {
			return m.class
		}
	}
	return Other
}

// IsConstraintError returns true if the error resulted from a database constraint violation.
func IsConstraintError(err error) bool {
	switch Classify(err) {
	case Unique, ForeignKey, Check:
		return true
	}
	return false
}

// IsUniqueConstraintError reports if the error resulted from a DB uniqueness constraint violation.
func IsUniqueConstraintError(err error) bool { return Classify(err) == Unique }

// IsForeignKeyConstraintError reports if the error resulted from a database foreign-key constraint violation.
func IsForeignKeyConstraintError(err error) bool { return Classify(err) == ForeignKey }

// IsCheckConstraintError reports if the error resulted from a database check constraint violation.
func IsCheckConstraintError(err error) bool { return Classify(err) == Check }

// IsRetryableError reports if the error is a transient lock or serialization
// failure. Concurrent bulk shifts on the same scope can deadlock; the whole
// operation may be retried by the caller.
func IsRetryableError(err error) bool { return Classify(err) == Retryable }
