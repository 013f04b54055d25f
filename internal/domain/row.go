package domain

// RowRecord is the flat, normalized form of one input row.
//
// Every field is either nil/empty or already canonical: timestamps are
// "02.01.2006 15:04" strings, Gender is one of M/W/D, TransportType is
// "ground" or "air". Nothing downstream re-parses raw cell text.
type RowRecord struct {
	DispatchArea *string `json:"dispatchArea,omitempty"`
	StateName    *string `json:"stateName,omitempty"`

	ArrivalAt *string `json:"arrivalAt,omitempty"`
	CreatedAt *string `json:"createdAt,omitempty"`

	Gender string `json:"gender"`
	Age    *int   `json:"age,omitempty"`

	Urgency        *int    `json:"urgency,omitempty"`
	IndicationCode *int    `json:"indicationCode,omitempty"`
	IndicationText *string `json:"indicationText,omitempty"`

	TransportType *string `json:"transportType,omitempty"`

	RequiresResus   *bool `json:"requiresResus,omitempty"`
	RequiresCathlab *bool `json:"requiresCathlab,omitempty"`
	IsCPR           *bool `json:"isCPR,omitempty"`
	IsVentilated    *bool `json:"isVentilated,omitempty"`
	IsShock         *bool `json:"isShock,omitempty"`
	IsPregnant      *bool `json:"isPregnant,omitempty"`
	IsWithPhysician *bool `json:"isWithPhysician,omitempty"`
	IsInfectious    *bool `json:"isInfectious,omitempty"`
	IsWorkAccident  *bool `json:"isWorkAccident,omitempty"`

	Airway      *string `json:"airway,omitempty"`
	Breathing   *string `json:"breathing,omitempty"`
	Circulation *string `json:"circulation,omitempty"`
	Disability  *string `json:"disability,omitempty"`
}

// Violation is one field-level problem reported by a Validator.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v Violation) String() string {
	if v.Field == "" {
		return v.Message
	}
	return v.Field + ": " + v.Message
}

// RejectRecord is a row that failed validation or resolution.
type RejectRecord struct {
	Line     *int     `json:"line,omitempty"`
	Messages []string `json:"messages"`
	Row      RowData  `json:"row"`
}
