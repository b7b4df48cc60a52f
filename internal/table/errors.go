package table

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sigbla/sigbla-app-sub004/internal/value"
)

// Error is a contract violation detected by a table operation.
//
// Errors are raised before any Ref is committed, so a failed operation
// never leaves a partial structural update behind.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Table names the affected table, if any.
	Table string

	// Header identifies the affected column, if any.
	Header string

	// Index identifies the affected row, if any.
	Index *int64
}

// ErrorCode categorizes table errors.
type ErrorCode string

const (
	// ErrCodeInvalidColumn indicates a missing header or a column moved onto itself.
	ErrCodeInvalidColumn ErrorCode = "INVALID_COLUMN"

	// ErrCodeInvalidTable indicates a closed table or one from another registry.
	ErrCodeInvalidTable ErrorCode = "INVALID_TABLE"

	// ErrCodeInvalidValue indicates a value that cannot be stored.
	ErrCodeInvalidValue ErrorCode = "INVALID_VALUE"

	// ErrCodeInvalidSequence indicates an empty event sequence was inspected.
	ErrCodeInvalidSequence ErrorCode = "INVALID_SEQUENCE"

	// ErrCodeInvalidRow indicates an unsupported row address or a row moved onto itself.
	ErrCodeInvalidRow ErrorCode = "INVALID_ROW"

	// ErrCodeInvalidListener indicates a listener registration that cannot be honored.
	ErrCodeInvalidListener ErrorCode = "INVALID_LISTENER"

	// ErrCodeListenerLoop indicates listener dispatch nested past the configured depth.
	ErrCodeListenerLoop ErrorCode = "LISTENER_LOOP"
)

// Error implements the error interface.
func (e *Error) Error() string {
	var where []string
	if e.Table != "" {
		where = append(where, "table="+e.Table)
	}
	if e.Header != "" {
		where = append(where, "column="+e.Header)
	}
	if e.Index != nil {
		where = append(where, fmt.Sprintf("row=%d", *e.Index))
	}
	if len(where) == 0 {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, strings.Join(where, ", "))
}

func hasCode(err error, code ErrorCode) bool {
	var te *Error
	if errors.As(err, &te) {
		return te.Code == code
	}
	return false
}

// IsInvalidColumn returns true if err is an INVALID_COLUMN error.
func IsInvalidColumn(err error) bool { return hasCode(err, ErrCodeInvalidColumn) }

// IsInvalidTable returns true if err is an INVALID_TABLE error.
func IsInvalidTable(err error) bool { return hasCode(err, ErrCodeInvalidTable) }

// IsInvalidSequence returns true if err is an INVALID_SEQUENCE error.
func IsInvalidSequence(err error) bool { return hasCode(err, ErrCodeInvalidSequence) }

// IsInvalidRow returns true if err is an INVALID_ROW error.
func IsInvalidRow(err error) bool { return hasCode(err, ErrCodeInvalidRow) }

// IsInvalidListener returns true if err is an INVALID_LISTENER error.
func IsInvalidListener(err error) bool { return hasCode(err, ErrCodeInvalidListener) }

// IsListenerLoop returns true if err is a LISTENER_LOOP error.
func IsListenerLoop(err error) bool { return hasCode(err, ErrCodeListenerLoop) }

// IsInvalidValue returns true if err is an INVALID_VALUE error.
// Matches both Error with ErrCodeInvalidValue and value.InvalidValueError.
func IsInvalidValue(err error) bool {
	return hasCode(err, ErrCodeInvalidValue) || value.IsInvalidValue(err)
}

// CodeOf returns the code of the first Error in err's tree. Value
// coercion failures report ErrCodeInvalidValue. Returns "" otherwise.
func CodeOf(err error) ErrorCode {
	var te *Error
	if errors.As(err, &te) {
		return te.Code
	}
	if value.IsInvalidValue(err) {
		return ErrCodeInvalidValue
	}
	return ""
}

func newColumnError(table string, h Header, format string, args ...any) *Error {
	return &Error{
		Code:    ErrCodeInvalidColumn,
		Message: fmt.Sprintf(format, args...),
		Table:   table,
		Header:  h.String(),
	}
}

func newTableError(table string, format string, args ...any) *Error {
	return &Error{
		Code:    ErrCodeInvalidTable,
		Message: fmt.Sprintf(format, args...),
		Table:   table,
	}
}

func newRowError(table string, index int64, format string, args ...any) *Error {
	return &Error{
		Code:    ErrCodeInvalidRow,
		Message: fmt.Sprintf(format, args...),
		Table:   table,
		Index:   &index,
	}
}

// ListenerError collects the failures of listeners during one dispatch.
// State changes that triggered the dispatch stay committed.
type ListenerError struct {
	Table  string
	Errors []error
}

func (e *ListenerError) Error() string {
	return fmt.Sprintf("%d listener(s) failed on table %s: %v", len(e.Errors), e.Table, errors.Join(e.Errors...))
}

// Unwrap exposes every listener failure to errors.Is and errors.As.
func (e *ListenerError) Unwrap() []error {
	return e.Errors
}

// IsListenerError returns true if err carries listener failures.
func IsListenerError(err error) bool {
	var le *ListenerError
	return errors.As(err, &le)
}
