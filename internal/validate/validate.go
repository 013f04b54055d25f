// Package validate checks RowRecords before they are resolved.
//
// The importer only depends on the Validator interface; Rules is the rule set
// the binaries ship with. A record with zero violations is acceptable to
// resolve.
package validate

import (
	"fmt"

	"github.com/JonMunkholm/allocimport/internal/domain"
)

// Validator reports field-level problems with a RowRecord.
type Validator interface {
	Validate(rec *domain.RowRecord) []domain.Violation
}

// Func adapts a function to the Validator interface.
type Func func(rec *domain.RowRecord) []domain.Violation

// Validate implements Validator.
func (f Func) Validate(rec *domain.RowRecord) []domain.Violation { return f(rec) }

// Age bounds accepted by Rules.
const (
	MinAge = 1
	MaxAge = 120
)

// Rules is the default rule set.
type Rules struct {
	// RequireUrgency rejects rows without a PZC urgency digit.
	RequireUrgency bool
}

// Default returns the rule set used by the import binaries. Urgency is left
// to the enum resolver, which rejects rows without one.
func Default() *Rules {
	return &Rules{}
}

// Validate implements Validator. All violations are reported, not just the first.
func (r *Rules) Validate(rec *domain.RowRecord) []domain.Violation {
	var out []domain.Violation
	add := func(field, format string, args ...any) {
		out = append(out, domain.Violation{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if rec.DispatchArea == nil {
		add("dispatchArea", "required field is empty")
	}
	if rec.ArrivalAt == nil {
		add("arrivalAt", "date and time are required")
	}
	if rec.CreatedAt == nil {
		add("createdAt", "creation date is required")
	}

	switch {
	case rec.Age == nil:
		add("age", "required field is empty")
	case *rec.Age < MinAge || *rec.Age > MaxAge:
		add("age", "must be between %d and %d, got %d", MinAge, MaxAge, *rec.Age)
	}

	if r.RequireUrgency && rec.Urgency == nil {
		add("urgency", "PZC with urgency 1, 2 or 3 is required")
	}

	if rec.IsPregnant != nil && *rec.IsPregnant && rec.Gender == string(domain.GenderMale) {
		add("isPregnant", "pregnancy flag set for male patient")
	}

	return out
}
