package usecase

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	reNonAlnum = regexp.MustCompile(`[^a-z0-9]+`)
	reHyphens  = regexp.MustCompile(`-+`)
)

// Slugify turns a display name into a url-friendly slug made of [a-z0-9-].
// "Food & Drink" becomes "food-drink".
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	// strip diacritics: é -> e
	var b strings.Builder
	for _, r := range norm.NFD.String(s) {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}

	s = reNonAlnum.ReplaceAllString(b.String(), "-")
	s = reHyphens.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
