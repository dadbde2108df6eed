package util

import (
	"errors"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const maxFileNameLen = 200

var ErrInvalidFileName = errors.New("invalid file name")

// SanitizeFileName turns a user-supplied display name into a single safe path segment.
// Separators are replaced, so the result can never climb out of its directory.
// The name is NFC-normalized so visually identical names map to the same bytes.
func SanitizeFileName(name string) (string, error) {
	s := norm.NFC.String(strings.TrimSpace(name))
	if s == "" || s == "." || s == ".." {
		return "", ErrInvalidFileName
	}
	s = strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\':
			return '_'
		case unicode.IsControl(r):
			return -1
		default:
			return r
		}
	}, s)
	if s == "" {
		return "", ErrInvalidFileName
	}
	if len(s) > maxFileNameLen {
		s = truncateRunes(s, maxFileNameLen)
	}
	return s, nil
}

func truncateRunes(s string, limit int) string {
	n := 0
	for i := range s {
		if i > limit {
			break
		}
		n = i
	}
	return s[:n]
}
