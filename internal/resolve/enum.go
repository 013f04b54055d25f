package resolve

import (
	"context"
	"strconv"

	"github.com/JonMunkholm/allocimport/internal/domain"
)

// EnumResolver maps gender, urgency and transport onto their enumerations.
// A missing transport type is legal; a missing gender or urgency is not.
type EnumResolver struct{}

func NewEnumResolver() *EnumResolver { return &EnumResolver{} }

func (r *EnumResolver) Name() string { return NameEnum }

func (r *EnumResolver) Supports(*domain.Allocation, *domain.RowRecord) bool { return true }

func (r *EnumResolver) Apply(_ context.Context, a *domain.Allocation, rec *domain.RowRecord) error {
	gender, ok := domain.ParseGender(rec.Gender)
	if !ok {
		return &InvalidEnumError{Field: "gender", Raw: rec.Gender}
	}

	if rec.Urgency == nil {
		return &InvalidEnumError{Field: "urgency"}
	}
	urgency, ok := domain.ParseUrgency(*rec.Urgency)
	if !ok {
		return &InvalidEnumError{Field: "urgency", Raw: strconv.Itoa(*rec.Urgency)}
	}

	var transport *domain.TransportType
	if rec.TransportType != nil {
		t, ok := domain.ParseTransportType(*rec.TransportType)
		if !ok {
			return &InvalidEnumError{Field: "transportType", Raw: *rec.TransportType}
		}
		transport = &t
	}

	a.Gender = gender
	a.Urgency = urgency
	a.TransportType = transport
	return nil
}
