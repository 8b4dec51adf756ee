package fonts

import (
	"unicode"

	"github.com/go-text/typesetting/language"
	"golang.org/x/text/unicode/bidi"
)

// DetectScript returns the script of the first rune that belongs to a
// specific script, skipping spaces and common punctuation. Text with no
// such rune is Latin.
func DetectScript(text string) Script {
	for _, r := range text {
		if unicode.IsSpace(r) {
			continue
		}
		s := language.LookupScript(r)
		if s == language.Common || s == language.Inherited || s == language.Unknown {
			continue
		}
		return s
	}
	return language.Latin
}

// DetectDirection returns the paragraph direction implied by the first
// strong character of text: RTL for Hebrew, Arabic and similar classes,
// LTR otherwise.
func DetectDirection(text string) Direction {
	for _, r := range text {
		p, _ := bidi.LookupRune(r)
		switch p.Class() {
		case bidi.R, bidi.AL:
			return DirectionRTL
		case bidi.L:
			return DirectionLTR
		}
	}
	return DirectionLTR
}
