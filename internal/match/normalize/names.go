package normalize

import (
	"strings"
	"unicode"

	"github.com/antzucaro/matchr"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"penmatch/internal/match/models"
)

// nameKey derives every comparison form of a name. The empty string is the
// sentinel for each derived key, never an error.
func nameKey(raw string) models.NameKey {
	cleaned := CleanName(raw)
	alpha := lettersOnly(cleaned)
	return models.NameKey{
		Raw:      raw,
		Cleaned:  cleaned,
		Alpha:    alpha,
		Phonetic: PhoneticKey(alpha),
	}
}

// CleanName upper-cases, strips diacritics, keeps letters plus the space,
// hyphen and apostrophe separators, and collapses whitespace.
func CleanName(raw string) string {
	folded := foldDiacritics(raw)
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range strings.ToUpper(folded) {
		switch {
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r)
		case r == '-' || r == '\'':
			b.WriteRune(r)
		case r == '’':
			b.WriteRune('\'')
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// PhoneticKey returns the Soundex code of an already letters-only name.
func PhoneticKey(alpha string) string {
	if alpha == "" {
		return ""
	}
	return matchr.Soundex(alpha)
}

// letterFolds covers letters with no NFD decomposition, which would
// otherwise be dropped as non-letters.
var letterFolds = strings.NewReplacer(
	"Ł", "L", "ł", "L",
	"Ø", "O", "ø", "O",
	"Đ", "D", "đ", "D",
	"Ð", "D", "ð", "D",
	"Ħ", "H", "ħ", "H",
	"ı", "I",
	"ß", "SS", "ẞ", "SS",
	"Æ", "AE", "æ", "AE",
	"Œ", "OE", "œ", "OE",
	"Þ", "TH", "þ", "TH",
)

// foldDiacritics decomposes and drops combining marks (É -> E), then folds
// the letters NFD leaves alone (Ł -> L, ß -> SS). The chain is stateful, so
// one is built per call.
func foldDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return letterFolds.Replace(out)
}

func lettersOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' {
			return r
		}
		return -1
	}, s)
}
