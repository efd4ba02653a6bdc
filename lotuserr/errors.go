// Package lotuserr defines the stable error taxonomy returned by every stage of the
// Lotus SQL pipeline. Errors are values, not exceptions: each carries a Kind that
// callers can switch on and a Message that matches the external contract in spec.md §6.
package lotuserr

import (
	"errors"
	"fmt"
)

// Kind discriminates the stable error taxonomy. Callers that need to branch on error
// type should use errors.As to recover an *Error and switch on Kind, not string-match
// on Error().
type Kind string

const (
	KindReadOnlyViolation  Kind = "read_only_violation"
	KindMultipleStatements Kind = "multiple_statements"
	KindBlockedTable       Kind = "blocked_table"
	KindBlockedColumn      Kind = "blocked_column"
	KindMissingVariable    Kind = "missing_variable"
	KindInvalidValue       Kind = "invalid_value"
	KindUnknownBackend     Kind = "unknown_backend"
	KindTimeout            Kind = "timeout"
	KindBackendError       Kind = "backend_error"
)

// Error is the concrete error value returned across package boundaries. Message is
// the exact string contract from spec.md §6; Relations/Column/Name carry the
// offending identifiers for callers that want structured detail in addition to the
// message.
type Error struct {
	Kind      Kind
	Message   string
	Relations []string // populated for KindBlockedTable
	Column    string    // populated for KindBlockedColumn
	Name      string    // populated for KindMissingVariable / KindInvalidValue
	Reason    string    // populated for KindInvalidValue
	Err       error     // wrapped underlying/driver error, if any
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is allows errors.Is(err, lotuserr.KindX) style checks via a sentinel wrapper; most
// callers should prefer errors.As and compare Kind directly.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return false
}

// ReadOnlyViolation reports that the deny-list rejected a write statement.
func ReadOnlyViolation() *Error {
	return &Error{Kind: KindReadOnlyViolation, Message: "Only read-only queries are allowed"}
}

// MultipleStatements reports that the statement contained more than one SQL statement.
func MultipleStatements() *Error {
	return &Error{Kind: KindMultipleStatements, Message: "Only a single statement is allowed"}
}

// BlockedTable reports that preflight authorization found relations the visibility
// engine denies. relations is rendered "schema.table" where known.
func BlockedTable(relations []string) *Error {
	return &Error{
		Kind:      KindBlockedTable,
		Message:   fmt.Sprintf("Query touches blocked table(s): %s", joinRelations(relations)),
		Relations: relations,
	}
}

// BlockedColumn reports that a column carries an `error` policy.
func BlockedColumn(column string) *Error {
	return &Error{
		Kind:    KindBlockedColumn,
		Message: fmt.Sprintf("Column '%s' is not selectable", column),
		Column:  column,
	}
}

// MissingVariable reports a required variable with no default and no runtime value.
func MissingVariable(name string) *Error {
	return &Error{
		Kind:    KindMissingVariable,
		Message: fmt.Sprintf("Missing required variable: %s", name),
		Name:    name,
	}
}

// InvalidValue reports a type-casting failure for a bound variable.
func InvalidValue(name, typ, value, reason string) *Error {
	return &Error{
		Kind:    KindInvalidValue,
		Message: fmt.Sprintf("Invalid %s format: '%s' (%s)", typ, value, reason),
		Name:    name,
		Reason:  reason,
	}
}

// UnknownBackend reports that the requested data repo was never configured.
func UnknownBackend(name string) *Error {
	return &Error{
		Kind:    KindUnknownBackend,
		Message: fmt.Sprintf("Data repo '%s' not configured", name),
		Name:    name,
	}
}

// Timeout reports that the caller's deadline (or the engine's statement timeout)
// fired before the query completed.
func Timeout() *Error {
	return &Error{Kind: KindTimeout, Message: "SQL error: canceling statement due to user request"}
}

// BackendError wraps a driver-native error behind a uniform, dialect-formatted
// message. format is produced by dialect.Dialect.FormatError.
func BackendError(format string, err error) *Error {
	return &Error{Kind: KindBackendError, Message: format, Err: err}
}

func joinRelations(relations []string) string {
	out := ""
	for i, r := range relations {
		if i > 0 {
			out += ", "
		}
		out += r
	}
	return out
}
