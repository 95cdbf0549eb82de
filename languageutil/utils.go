package languageutil

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Casers keep state between calls, so each call gets its own.

func Title(s string) string {
	return cases.Title(language.English).String(s)
}

// NormalizeKey lowercases and trims user input used as an enum value.
func NormalizeKey(s string) string {
	return cases.Lower(language.English).String(strings.TrimSpace(s))
}
