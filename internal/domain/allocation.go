package domain

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// TimestampLayout is the canonical text form of RowRecord timestamps.
const TimestampLayout = "02.01.2006 15:04"

// Gender is the canonical patient gender code.
type Gender string

const (
	GenderMale        Gender = "M"
	GenderFemale      Gender = "W"
	GenderUnspecified Gender = "D"
)

// ParseGender maps a normalized code onto Gender.
func ParseGender(s string) (Gender, bool) {
	switch Gender(s) {
	case GenderMale, GenderFemale, GenderUnspecified:
		return Gender(s), true
	}
	return "", false
}

// TransportType is the mode of transport to the hospital.
type TransportType string

const (
	TransportGround TransportType = "ground"
	TransportAir    TransportType = "air"
)

// ParseTransportType maps a normalized transport mode onto TransportType.
func ParseTransportType(s string) (TransportType, bool) {
	switch TransportType(s) {
	case TransportGround, TransportAir:
		return TransportType(s), true
	}
	return "", false
}

// Urgency is the PZC urgency level; 1 is the most urgent.
type Urgency int

const (
	UrgencyImmediate Urgency = 1
	UrgencyUrgent    Urgency = 2
	UrgencyDeferred  Urgency = 3
)

// ParseUrgency maps a PZC urgency digit onto Urgency.
func ParseUrgency(n int) (Urgency, bool) {
	switch Urgency(n) {
	case UrgencyImmediate, UrgencyUrgent, UrgencyDeferred:
		return Urgency(n), true
	}
	return 0, false
}

func (u Urgency) String() string {
	return strconv.Itoa(int(u))
}

// Allocation is a fully resolved hospital allocation ready to be persisted.
type Allocation struct {
	ImportID       uuid.UUID
	HospitalID     int64
	DispatchAreaID int64
	StateID        int64

	CreatedAt time.Time
	ArrivalAt time.Time

	Gender        Gender
	Age           int
	Urgency       Urgency
	TransportType *TransportType

	RequiresResus   bool
	RequiresCathlab bool
	IsCPR           bool
	IsVentilated    bool
	IsShock         bool
	IsPregnant      bool
	IsWithPhysician bool
	IsInfectious    bool
	IsWorkAccident  bool

	Airway      *string
	Breathing   *string
	Circulation *string
	Disability  *string

	IndicationCode         *int
	IndicationRawID        *int64
	IndicationNormalizedID *int64
}

// NewAllocation starts an allocation owned by the given job.
// The hospital comes from the job and is never resolved per row.
func NewAllocation(job *ImportJob) *Allocation {
	return &Allocation{
		ImportID:   job.ID,
		HospitalID: job.HospitalID,
	}
}
