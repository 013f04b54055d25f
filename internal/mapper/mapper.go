// Package mapper turns one associative input row into a RowRecord.
//
// Mapping is a pure per-row transformation: it never consults reference
// data or storage.
package mapper

import (
	"github.com/JonMunkholm/allocimport/internal/domain"
	"github.com/JonMunkholm/allocimport/internal/normalize"
)

// Normalized header keys of the dispatch export.
const (
	ColDispatchArea  = "versorgungsbereich"
	ColState         = "bundesland"
	ColDate          = "datum"
	ColTime          = "uhrzeit"
	ColCreatedAt     = "erstellungsdatum"
	ColGender        = "geschlecht"
	ColAge           = "alter"
	ColPZC           = "pzc"
	ColPZCText       = "pzc_text"
	ColTransport     = "transportmittel"
	ColResus         = "schockraum"
	ColCathlab       = "herzkatheter"
	ColCPR           = "reanimation"
	ColVentilated    = "beatmet"
	ColShock         = "schock"
	ColPregnant      = "schwanger"
	ColWithPhysician = "arztbegleitet"
	ColInfectious    = "infektioes"
	ColWorkAccident  = "arbeitsunfall"
	ColAirway        = "atemwege"
	ColBreathing     = "atmung"
	ColCirculation   = "kreislauf"
	ColDisability    = "bewusstsein"
)

// Map builds a RowRecord from a row keyed by normalized header names.
// Missing columns behave like empty cells.
func Map(row map[string]string) *domain.RowRecord {
	rec := &domain.RowRecord{
		DispatchArea: normalize.String(row[ColDispatchArea]),
		StateName:    normalize.String(row[ColState]),
		Gender:       normalize.Gender(row[ColGender]),
		Age:          normalize.Age(row[ColAge]),

		IndicationText: normalize.String(row[ColPZCText]),
		TransportType:  normalize.Transport(row[ColTransport]),

		RequiresResus:   normalize.Bool(row[ColResus]),
		RequiresCathlab: normalize.Bool(row[ColCathlab]),
		IsCPR:           normalize.Bool(row[ColCPR]),
		IsVentilated:    normalize.Bool(row[ColVentilated]),
		IsShock:         normalize.Bool(row[ColShock]),
		IsPregnant:      normalize.Bool(row[ColPregnant]),
		IsWithPhysician: normalize.Bool(row[ColWithPhysician]),
		IsInfectious:    normalize.Bool(row[ColInfectious]),
		IsWorkAccident:  normalize.Bool(row[ColWorkAccident]),

		Airway:      normalize.Assessment(normalize.Airway, row[ColAirway]),
		Breathing:   normalize.Assessment(normalize.Breathing, row[ColBreathing]),
		Circulation: normalize.Assessment(normalize.Circulation, row[ColCirculation]),
		Disability:  normalize.Assessment(normalize.Disability, row[ColDisability]),
	}

	rec.IndicationCode, rec.Urgency = normalize.PZC(row[ColPZC])

	combined := normalize.CombineDateTime(
		normalize.String(row[ColDate]),
		normalize.String(row[ColTime]),
	)
	rec.ArrivalAt = combined
	rec.CreatedAt = normalize.ChooseCreatedAt(combined, normalize.String(row[ColCreatedAt]))

	return rec
}
