package source

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	umlautReplacer = strings.NewReplacer("ä", "ae", "ö", "oe", "ü", "ue", "ß", "ss")
	nonAlnumRegex  = regexp.MustCompile(`[^a-z0-9]+`)
)

// NormalizeHeader turns a header cell into a snake_case ASCII key:
// "Infektiös" becomes "infektioes", "KHS-Versorgungsgebiet" becomes
// "khs_versorgungsgebiet".
func NormalizeHeader(s string) string {
	s = strings.ToLower(norm.NFC.String(s))
	s = umlautReplacer.Replace(s)

	// Remaining diacritics (é, ç, ...) lose their marks.
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if stripped, _, err := transform.String(stripMarks, s); err == nil {
		s = stripped
	}

	s = strings.TrimSpace(nonAlnumRegex.ReplaceAllString(s, " "))
	return strings.ReplaceAll(s, " ", "_")
}

// NormalizeHeaders normalizes a header row. Empty names become col_<n>
// (1-based) and repeated names get _2, _3, ... in order of appearance.
func NormalizeHeaders(header []string) []string {
	out := make([]string, len(header))
	used := make(map[string]bool, len(header))
	nextSuffix := make(map[string]int)

	for i, h := range header {
		name := NormalizeHeader(h)
		if name == "" {
			name = "col_" + strconv.Itoa(i+1)
		}

		if used[name] {
			n := nextSuffix[name]
			if n < 2 {
				n = 2
			}
			for used[name+"_"+strconv.Itoa(n)] {
				n++
			}
			nextSuffix[name] = n + 1
			name = name + "_" + strconv.Itoa(n)
		}

		used[name] = true
		out[i] = name
	}
	return out
}
