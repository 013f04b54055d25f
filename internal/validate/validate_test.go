package validate

import (
	"testing"

	"github.com/JonMunkholm/allocimport/internal/domain"
)

func validRecord() *domain.RowRecord {
	area := "Nordkreis"
	ts := "07.01.2025 10:19"
	age := 42
	urgency := 1
	return &domain.RowRecord{
		DispatchArea: &area,
		ArrivalAt:    &ts,
		CreatedAt:    &ts,
		Gender:       "W",
		Age:          &age,
		Urgency:      &urgency,
	}
}

func fields(vs []domain.Violation) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.Field
	}
	return out
}

func TestRules_Validate(t *testing.T) {
	yes := true

	tests := []struct {
		name   string
		modify func(*domain.RowRecord)
		want   []string
	}{
		{"valid", func(*domain.RowRecord) {}, nil},
		{"missing area", func(r *domain.RowRecord) { r.DispatchArea = nil }, []string{"dispatchArea"}},
		{"missing timestamps", func(r *domain.RowRecord) { r.ArrivalAt, r.CreatedAt = nil, nil }, []string{"arrivalAt", "createdAt"}},
		{"missing age", func(r *domain.RowRecord) { r.Age = nil }, []string{"age"}},
		{"age zero", func(r *domain.RowRecord) { zero := 0; r.Age = &zero }, []string{"age"}},
		{"age too high", func(r *domain.RowRecord) { n := 121; r.Age = &n }, []string{"age"}},
		{"age upper bound", func(r *domain.RowRecord) { n := 120; r.Age = &n }, nil},
		{"missing urgency", func(r *domain.RowRecord) { r.Urgency = nil }, []string{"urgency"}},
		{"unspecified gender ok", func(r *domain.RowRecord) { r.Gender = "D" }, nil},
		{"pregnant male", func(r *domain.RowRecord) { r.Gender = "M"; r.IsPregnant = &yes }, []string{"isPregnant"}},
		{"pregnant female", func(r *domain.RowRecord) { r.IsPregnant = &yes }, nil},
	}

	rules := &Rules{RequireUrgency: true}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := validRecord()
			tt.modify(rec)

			got := fields(rules.Validate(rec))
			if len(got) != len(tt.want) {
				t.Fatalf("Validate() fields = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Validate() fields = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestRules_UrgencyOptional(t *testing.T) {
	rec := validRecord()
	rec.Urgency = nil

	if got := Default().Validate(rec); len(got) != 0 {
		t.Errorf("Validate() = %v, want no violations", got)
	}
}

func TestViolationMessage(t *testing.T) {
	rec := validRecord()
	zero := 0
	rec.Age = &zero

	got := Default().Validate(rec)
	if len(got) != 1 {
		t.Fatalf("Validate() = %v, want one violation", got)
	}
	if want := "age: must be between 1 and 120, got 0"; got[0].String() != want {
		t.Errorf("String() = %q, want %q", got[0].String(), want)
	}
}

func TestFunc(t *testing.T) {
	var v Validator = Func(func(*domain.RowRecord) []domain.Violation {
		return []domain.Violation{{Field: "x", Message: "bad"}}
	})
	if got := v.Validate(validRecord()); len(got) != 1 || got[0].Field != "x" {
		t.Errorf("Func.Validate() = %v", got)
	}
}
