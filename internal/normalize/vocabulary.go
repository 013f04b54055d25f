package normalize

// Vocabulary tables. These are read only through the functions in this
// package and are never mutated after initialization.

var trueTokens = map[string]struct{}{
	"ja":        {},
	"j":         {},
	"1":         {},
	"wahr":      {},
	"x":         {},
	"schwanger": {},
}

var falseTokens = map[string]struct{}{
	"nein":   {},
	"n":      {},
	"0":      {},
	"falsch": {},
	"false":  {},
}

// groundAliases are vehicle types that always travel by road.
var groundAliases = map[string]struct{}{
	"Naw": {},
	"Itw": {},
	"Mzf": {},
	"Rtw": {},
}

// AssessmentKind selects the vocabulary used by Assessment.
type AssessmentKind int

const (
	Airway AssessmentKind = iota
	Breathing
	Circulation
	Disability
)

func (k AssessmentKind) String() string {
	switch k {
	case Airway:
		return "airway"
	case Breathing:
		return "breathing"
	case Circulation:
		return "circulation"
	case Disability:
		return "disability"
	default:
		return "unknown"
	}
}

var assessmentVocabulary = map[AssessmentKind]map[string]string{
	Airway: {
		"frei":          "clear",
		"atemwege frei": "clear",
		"gefährdet":     "at_risk",
		"verlegt":       "obstructed",
		"gesichert":     "secured",
		"intubiert":     "intubated",
		"larynxtubus":   "supraglottic_device",
	},
	Breathing: {
		"unauffällig":         "normal",
		"spontanatmung":       "spontaneous",
		"dyspnoe":             "dyspnea",
		"insuffizient":        "insufficient",
		"beatmet":             "ventilated",
		"apnoe":               "apnea",
		"sauerstoffpflichtig": "oxygen_required",
	},
	Circulation: {
		"stabil":           "stable",
		"instabil":         "unstable",
		"schock":           "shock",
		"reanimation":      "cpr",
		"katecholamine":    "vasopressors",
		"kreislauf stabil": "stable",
	},
	Disability: {
		"wach":          "alert",
		"orientiert":    "oriented",
		"desorientiert": "disoriented",
		"somnolent":     "somnolent",
		"soporös":       "stuporous",
		"bewusstlos":    "unconscious",
		"komatös":       "comatose",
		"sediert":       "sedated",
	},
}
