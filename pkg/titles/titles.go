// Package titles decides which ranked titles are worth fetching.
// Rankings of the Hebrew Wikipedia are dominated by the main page, special
// pages and stray Latin-script titles; none of them have a useful intro.
package titles

import "strings"

var forbiddenTitles = []string{
	"עמוד_ראשי",
}

var forbiddenPrefixes = []string{
	"מיוחד:",
	"ויקיפדיה:",
	"תבנית:",
	"משתמש:",
	"קטגוריה:",
	"שיחה:",
	"מדיה:",
}

// IsLegal reports whether title should be fetched. It rejects denylisted
// titles, denylisted namespace prefixes, purely numeric titles and any title
// containing a Latin letter.
func IsLegal(title string) bool {
	for _, forbidden := range forbiddenTitles {
		if title == forbidden {
			return false
		}
	}
	for _, prefix := range forbiddenPrefixes {
		if strings.HasPrefix(title, prefix) {
			return false
		}
	}
	if isNumeric(title) {
		return false
	}
	return !hasLatinLetter(title)
}

// ForbiddenTitles returns the exact-match denylist.
func ForbiddenTitles() []string {
	return append([]string(nil), forbiddenTitles...)
}

// ForbiddenPrefixes returns the namespace prefix denylist.
func ForbiddenPrefixes() []string {
	return append([]string(nil), forbiddenPrefixes...)
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func hasLatinLetter(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool {
		return ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z')
	}) >= 0
}
