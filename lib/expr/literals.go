// Copyright 2026 The zram-generator Authors
// SPDX-License-Identifier: MIT

package expr

import (
	"strings"
	"unicode"
)

// Magnitude suffixes accepted on number literals. Single-letter
// suffixes are decimal powers of ten, the two-letter forms are binary
// powers of two.
var suffixMultipliers = map[string]string{
	"k":  "1000",
	"K":  "1000",
	"M":  "1000000",
	"G":  "1000000000",
	"T":  "1000000000000",
	"Ki": "1024",
	"Mi": "1048576",
	"Gi": "1073741824",
	"Ti": "1099511627776",
}

// expandSuffixes rewrites magnitude-suffixed number literals into
// explicit multiplications ("500k" becomes "(500*1000)") so the
// expression parser, which has no suffix syntax, accepts them. The
// suffix multiplies the literal itself: "500k" is 500000 megabytes,
// not 500 kilobytes. Identifiers pass through untouched, so a
// variable named x4k is not rewritten.
func expandSuffixes(src string) string {
	var out strings.Builder
	runes := []rune(src)
	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case isIdentStart(r):
			j := i
			for j < len(runes) && isIdentPart(runes[j]) {
				j++
			}
			out.WriteString(string(runes[i:j]))
			i = j
		case unicode.IsDigit(r):
			j := scanNumber(runes, i)
			lit := string(runes[i:j])
			mult, width := suffixAt(runes, j)
			if mult != "" {
				out.WriteString("(" + lit + "*" + mult + ")")
			} else {
				out.WriteString(lit)
			}
			i = j + width
		default:
			out.WriteRune(r)
			i++
		}
	}
	return out.String()
}

// scanNumber returns the index just past a number literal starting at
// i: digits, an optional fraction, and an optional exponent.
func scanNumber(runes []rune, i int) int {
	j := i
	for j < len(runes) && unicode.IsDigit(runes[j]) {
		j++
	}
	if j < len(runes) && runes[j] == '.' {
		j++
		for j < len(runes) && unicode.IsDigit(runes[j]) {
			j++
		}
	}
	if j < len(runes) && (runes[j] == 'e' || runes[j] == 'E') {
		k := j + 1
		if k < len(runes) && (runes[k] == '+' || runes[k] == '-') {
			k++
		}
		if k < len(runes) && unicode.IsDigit(runes[k]) {
			j = k
			for j < len(runes) && unicode.IsDigit(runes[j]) {
				j++
			}
		}
	}
	return j
}

// suffixAt reports the multiplier for a magnitude suffix starting at
// position j and the suffix length in runes. A suffix only counts when
// it is not the beginning of a longer identifier-like run: "4Kib" has
// no suffix and is left for the parser to reject.
func suffixAt(runes []rune, j int) (string, int) {
	if j >= len(runes) {
		return "", 0
	}
	if j+1 < len(runes) && runes[j+1] == 'i' && !identContinues(runes, j+2) {
		if m, ok := suffixMultipliers[string(runes[j:j+2])]; ok {
			return m, 2
		}
	}
	if !identContinues(runes, j+1) {
		if m, ok := suffixMultipliers[string(runes[j])]; ok {
			return m, 1
		}
	}
	return "", 0
}

func identContinues(runes []rune, j int) bool {
	return j < len(runes) && isIdentPart(runes[j])
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
