package pgstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/allocimport/internal/domain"
)

var allocationColumns = []string{
	"import_id", "hospital_id", "dispatch_area_id", "state_id",
	"created_at", "arrival_at",
	"gender", "age", "urgency", "transport_type",
	"requires_resus", "requires_cathlab", "is_cpr", "is_ventilated", "is_shock",
	"is_pregnant", "is_with_physician", "is_infectious", "is_work_accident",
	"airway", "breathing", "circulation", "disability",
	"indication_code", "indication_raw_id", "indication_normalized_id",
}

// InsertAllocations bulk loads a batch with COPY.
func (s *Store) InsertAllocations(ctx context.Context, batch []*domain.Allocation) (int64, error) {
	n, err := s.pool.CopyFrom(ctx,
		pgx.Identifier{"allocations"},
		allocationColumns,
		pgx.CopyFromSlice(len(batch), func(i int) ([]any, error) {
			return allocationValues(batch[i]), nil
		}),
	)
	if err != nil {
		return n, fmt.Errorf("copy allocations: %w", err)
	}
	return n, nil
}

// allocationValues returns a's values in allocationColumns order.
func allocationValues(a *domain.Allocation) []any {
	var transport pgtype.Text
	if a.TransportType != nil {
		transport = pgtype.Text{String: string(*a.TransportType), Valid: true}
	}
	return []any{
		pgUUID(a.ImportID), a.HospitalID, a.DispatchAreaID, a.StateID,
		a.CreatedAt, a.ArrivalAt,
		string(a.Gender), int32(a.Age), int16(a.Urgency), transport,
		a.RequiresResus, a.RequiresCathlab, a.IsCPR, a.IsVentilated, a.IsShock,
		a.IsPregnant, a.IsWithPhysician, a.IsInfectious, a.IsWorkAccident,
		pgText(a.Airway), pgText(a.Breathing), pgText(a.Circulation), pgText(a.Disability),
		pgInt4(a.IndicationCode), pgInt8(a.IndicationRawID), pgInt8(a.IndicationNormalizedID),
	}
}
