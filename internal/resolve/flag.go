package resolve

import (
	"context"

	"github.com/JonMunkholm/allocimport/internal/domain"
)

// FlagResolver copies the boolean flags, defaulting absent ones to false.
type FlagResolver struct{}

func NewFlagResolver() *FlagResolver { return &FlagResolver{} }

func (r *FlagResolver) Name() string { return NameFlag }

func (r *FlagResolver) Supports(*domain.Allocation, *domain.RowRecord) bool { return true }

func (r *FlagResolver) Apply(_ context.Context, a *domain.Allocation, rec *domain.RowRecord) error {
	a.RequiresResus = flag(rec.RequiresResus)
	a.RequiresCathlab = flag(rec.RequiresCathlab)
	a.IsCPR = flag(rec.IsCPR)
	a.IsVentilated = flag(rec.IsVentilated)
	a.IsShock = flag(rec.IsShock)
	a.IsPregnant = flag(rec.IsPregnant)
	a.IsWithPhysician = flag(rec.IsWithPhysician)
	a.IsInfectious = flag(rec.IsInfectious)
	a.IsWorkAccident = flag(rec.IsWorkAccident)
	return nil
}

func flag(b *bool) bool {
	return b != nil && *b
}
