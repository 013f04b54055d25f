package resolve

import (
	"errors"
	"fmt"
)

// ErrContractViolation reports a record that validation should never have
// let through. It is not row-scoped: the run is aborted.
var ErrContractViolation = errors.New("resolver contract violation")

// RowError is a resolution failure scoped to a single row. The importer
// rejects the row and keeps going; any other error aborts the run.
type RowError interface {
	error
	RowField() string
}

// fieldMessage renders "<field>: <reason> ("<raw>")", dropping the raw
// value when there is none.
func fieldMessage(field, reason, raw string) string {
	if raw == "" {
		return fmt.Sprintf("%s: %s", field, reason)
	}
	return fmt.Sprintf("%s: %s (%q)", field, reason, raw)
}

// InvalidDateError is returned when a timestamp is absent or unparsable.
type InvalidDateError struct {
	Field string
	Raw   string
}

func (e *InvalidDateError) Error() string {
	if e.Raw == "" {
		return fieldMessage(e.Field, "missing date", "")
	}
	return fieldMessage(e.Field, "invalid date", e.Raw)
}

// RowField implements RowError.
func (e *InvalidDateError) RowField() string { return e.Field }

// InvalidEnumError is returned when a value has no enumeration member.
type InvalidEnumError struct {
	Field string
	Raw   string
}

func (e *InvalidEnumError) Error() string {
	if e.Raw == "" {
		return fieldMessage(e.Field, "missing value", "")
	}
	return fieldMessage(e.Field, "invalid value", e.Raw)
}

// RowField implements RowError.
func (e *InvalidEnumError) RowField() string { return e.Field }

// ReferenceNotFoundError is returned when a name has no match in the
// warmed reference data.
type ReferenceNotFoundError struct {
	Field string
	Raw   string
}

func (e *ReferenceNotFoundError) Error() string {
	return fieldMessage(e.Field, "reference not found", e.Raw)
}

// RowField implements RowError.
func (e *ReferenceNotFoundError) RowField() string { return e.Field }

// IsRowError reports whether err is scoped to the current row.
func IsRowError(err error) bool {
	var re RowError
	return errors.As(err, &re)
}
