package ws

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// cleanText NFC-normalises a display name, drops control characters, trims
// surrounding space and caps the result at max runes. Composed forms keep the
// rune cap honest for names typed with combining accents.
func cleanText(s string, max int) string {
	s = norm.NFC.String(s)
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	s = strings.TrimSpace(s)
	if r := []rune(s); len(r) > max {
		s = strings.TrimSpace(string(r[:max]))
	}
	return s
}
