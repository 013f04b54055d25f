package resolve

import (
	"context"
	"time"

	"github.com/JonMunkholm/allocimport/internal/domain"
)

// DateResolver parses the canonical timestamp strings.
type DateResolver struct {
	loc *time.Location
}

// NewDateResolver interprets timestamps in loc, or UTC when loc is nil.
func NewDateResolver(loc *time.Location) *DateResolver {
	if loc == nil {
		loc = time.UTC
	}
	return &DateResolver{loc: loc}
}

func (r *DateResolver) Name() string { return NameDate }

func (r *DateResolver) Supports(*domain.Allocation, *domain.RowRecord) bool { return true }

func (r *DateResolver) Apply(_ context.Context, a *domain.Allocation, rec *domain.RowRecord) error {
	created, err := r.parse("createdAt", rec.CreatedAt)
	if err != nil {
		return err
	}
	arrival, err := r.parse("arrivalAt", rec.ArrivalAt)
	if err != nil {
		return err
	}
	a.CreatedAt = created
	a.ArrivalAt = arrival
	return nil
}

func (r *DateResolver) parse(field string, s *string) (time.Time, error) {
	if s == nil {
		return time.Time{}, &InvalidDateError{Field: field}
	}
	t, err := time.ParseInLocation(domain.TimestampLayout, *s, r.loc)
	if err != nil {
		return time.Time{}, &InvalidDateError{Field: field, Raw: *s}
	}
	return t, nil
}
