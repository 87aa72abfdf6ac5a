// Package certid implements the textual certificate identifier scheme:
// a fixed prefix followed by a fixed-length suffix drawn from an unambiguous
// uppercase alphabet.
package certid

import (
	"crypto/rand"
	"fmt"
	"strings"
)

const (
	Prefix    = "MASA-PLEDGE-"
	SuffixLen = 6

	// 0/O and 1/I are excluded so IDs survive being read aloud or retyped.
	alphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"
)

// New generates a fresh certificate ID. Uniqueness is not guaranteed here;
// callers must check the store and regenerate on collision.
func New() (string, error) {
	buf := make([]byte, SuffixLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("certid: %w", err)
	}
	suffix := make([]byte, SuffixLen)
	for i, b := range buf {
		suffix[i] = alphabet[int(b)%len(alphabet)]
	}
	return Prefix + string(suffix), nil
}

// Normalize canonicalizes user-supplied input for lookup: surrounding
// whitespace is dropped and the ID is uppercased.
func Normalize(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

// IsValid reports whether the (normalized) value is a well-formed certificate ID.
func IsValid(id string) bool {
	if len(id) != len(Prefix)+SuffixLen {
		return false
	}
	if !strings.HasPrefix(id, Prefix) {
		return false
	}
	for i := len(Prefix); i < len(id); i++ {
		if !strings.ContainsRune(alphabet, rune(id[i])) {
			return false
		}
	}
	return true
}
