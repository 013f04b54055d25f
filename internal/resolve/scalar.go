package resolve

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/allocimport/internal/domain"
)

// ScalarResolver copies age and the assessment fields.
type ScalarResolver struct{}

func NewScalarResolver() *ScalarResolver { return &ScalarResolver{} }

func (r *ScalarResolver) Name() string { return NameScalar }

func (r *ScalarResolver) Supports(*domain.Allocation, *domain.RowRecord) bool { return true }

// Apply fails with ErrContractViolation when age is absent: validation
// guarantees it.
func (r *ScalarResolver) Apply(_ context.Context, a *domain.Allocation, rec *domain.RowRecord) error {
	if rec.Age == nil {
		return fmt.Errorf("%w: age missing after validation", ErrContractViolation)
	}
	a.Age = *rec.Age
	a.Airway = rec.Airway
	a.Breathing = rec.Breathing
	a.Circulation = rec.Circulation
	a.Disability = rec.Disability
	return nil
}
