// Package normalize converts raw cell strings from dispatch exports into
// canonical scalar values.
//
// Every function is total: unparseable input yields nil (or the documented
// fallback) instead of an error. Deciding whether a missing value is
// acceptable is left to validation.
//
// The exports come from several dispatch systems and disagree on almost
// everything:
//   - booleans as "ja"/"nein", "1"/"0", "X", or suffix notation like "S+"
//   - gender as M/W/D, m/w, or free text
//   - date and time in separate columns, time with or without seconds
//   - six digit PZC codes carrying indication code and urgency
//   - ABCD assessments with "A-"/"B-" prefixes and German clinical phrases
package normalize

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Canonical transport modes produced by Transport.
const (
	TransportGround = "ground"
	TransportAir    = "air"
)

// Canonical gender codes produced by Gender.
const (
	GenderMale        = "M"
	GenderFemale      = "W"
	GenderUnspecified = "D"
)

var (
	isoDateRegex          = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)
	assessmentPrefixRegex = regexp.MustCompile(`^[A-Za-z]-\s*`)
)

// String trims s and returns nil if nothing is left.
func String(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// Bool interprets yes/no style cells.
//
// A trailing "+" or "-" decides the value regardless of what precedes it
// ("S+" is true, "H-" is false). Otherwise the cell is matched
// case-insensitively against a fixed German/English vocabulary.
func Bool(s string) *bool {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return nil
	}

	switch {
	case strings.HasSuffix(s, "+"):
		return boolPtr(true)
	case strings.HasSuffix(s, "-"):
		return boolPtr(false)
	}

	if _, ok := trueTokens[s]; ok {
		return boolPtr(true)
	}
	if _, ok := falseTokens[s]; ok {
		return boolPtr(false)
	}
	return nil
}

// Gender returns M or W for an exact case-insensitive "M" or "W" and D for
// everything else, including empty input.
func Gender(s string) string {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case GenderMale:
		return GenderMale
	case GenderFemale:
		return GenderFemale
	default:
		return GenderUnspecified
	}
}

// Transport maps a transport cell onto "ground" or "air".
// Unknown values return nil.
func Transport(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	// cases.Caser is stateful, so one per call.
	title := cases.Title(language.German).String(strings.ToLower(s))

	switch title {
	case "Boden":
		return strPtr(TransportGround)
	case "Luft":
		return strPtr(TransportAir)
	}
	if _, ok := groundAliases[title]; ok {
		return strPtr(TransportGround)
	}
	return nil
}

// Age parses a whole number. Range checks belong to validation.
func Age(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &n
}

// CombineDateTime joins a date and a time cell into "DD.MM.YYYY HH:MM".
// Seconds are dropped. Returns nil if either half is missing.
func CombineDateTime(date, clock *string) *string {
	if date == nil || clock == nil {
		return nil
	}
	d := normalizeDate(*date)
	t := truncateTime(*clock)
	if d == "" || t == "" {
		return nil
	}
	out := d + " " + t
	return &out
}

// ChooseCreatedAt picks the creation timestamp for a row.
//
// combined is the joined date/time of the row; creation is the optional
// separate creation date/time column. When both are present the creation
// value wins if it differs at minute granularity.
func ChooseCreatedAt(combined, creation *string) *string {
	var created *string
	if creation != nil {
		created = DateTime(*creation)
	}

	switch {
	case combined != nil && created != nil:
		if *created != *combined {
			return created
		}
		return combined
	case created != nil:
		return created
	default:
		return combined
	}
}

// DateTime normalizes a single "date time" cell to "DD.MM.YYYY HH:MM".
// A cell without a time part yields nil.
func DateTime(s string) *string {
	fields := strings.Fields(s)
	if len(fields) < 2 {
		return nil
	}
	return CombineDateTime(&fields[0], &fields[1])
}

// PZC splits a six digit PZC into its three digit indication code and the
// urgency carried in the last digit. Urgency is nil unless the last digit is
// 1, 2 or 3. Anything but exactly six ASCII digits yields nil for both.
func PZC(s string) (code *int, urgency *int) {
	if len(s) != 6 {
		return nil, nil
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return nil, nil
		}
	}

	c, _ := strconv.Atoi(s[:3])
	code = &c

	if last := int(s[5] - '0'); last >= 1 && last <= 3 {
		urgency = &last
	}
	return code, urgency
}

// Assessment normalizes an airway/breathing/circulation/disability cell.
// A leading "A-" style prefix is stripped and the phrase is lower-cased and
// translated. Phrases outside the vocabulary pass through lower-cased.
func Assessment(kind AssessmentKind, s string) *string {
	s = strings.TrimSpace(s)
	s = assessmentPrefixRegex.ReplaceAllString(s, "")
	s = strings.Join(strings.Fields(strings.ToLower(s)), " ")
	if s == "" {
		return nil
	}
	if mapped, ok := assessmentVocabulary[kind][s]; ok {
		return &mapped
	}
	return &s
}

// normalizeDate accepts DD.MM.YYYY (returned unchanged) and ISO dates.
func normalizeDate(s string) string {
	s = strings.TrimSpace(s)
	if m := isoDateRegex.FindStringSubmatch(s); m != nil {
		return m[3] + "." + m[2] + "." + m[1]
	}
	return s
}

// truncateTime reduces H:MM[:SS[.fff]] to HH:MM.
func truncateTime(s string) string {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) < 2 {
		return s
	}
	h, m := parts[0], parts[1]
	if len(h) == 1 {
		h = "0" + h
	}
	if len(m) > 2 {
		m = m[:2]
	}
	return h + ":" + m
}

func boolPtr(b bool) *bool { return &b }

func strPtr(s string) *string { return &s }
