// Package utils provides common utility functions.
package utils

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// maxFilenameBytes keeps generated names well under the 255 byte limit
// common to most filesystems, leaving room for the extension.
const maxFilenameBytes = 200

// ToASCII folds text to ASCII. Characters are decomposed first so accented
// letters keep their base form ("Café" -> "Cafe"); anything left outside
// ASCII is dropped.
func ToASCII(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.Predicate(isNotASCII)))

	out, _, err := transform.String(t, s)
	if err != nil {
		return strings.Map(func(r rune) rune {
			if isNotASCII(r) {
				return -1
			}

			return r
		}, s)
	}

	return out
}

func isNotASCII(r rune) bool {
	return r > unicode.MaxASCII
}

// NormalizeWhitespace replaces multiple whitespace with single space.
func NormalizeWhitespace(str string) string {
	return strings.Join(strings.Fields(str), " ")
}

// TruncateString truncates str to maxWidth display columns.
func TruncateString(str string, maxWidth int) string {
	return runewidth.Truncate(str, maxWidth, "...")
}

// SafeFilename turns an arbitrary title into a single path element.
// Separators, reserved and control characters become '_', surrounding dots
// and spaces are trimmed, and the result is bounded in length.
func SafeFilename(title string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsControl(r):
			return '_'
		case strings.ContainsRune(`/\:*?"<>|`, r):
			return '_'
		}

		return r
	}, title)

	name := strings.Trim(NormalizeWhitespace(mapped), " .")

	for len(name) > maxFilenameBytes {
		_, size := utf8.DecodeLastRuneInString(name)
		name = name[:len(name)-size]
	}

	name = strings.TrimRight(name, " .")
	if name == "" {
		return "untitled"
	}

	return name
}
