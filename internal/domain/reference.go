package domain

import (
	"crypto/rand"
	"fmt"
	"regexp"
	"strings"
)

// ReferencePrefix is a public contract: customer-facing references are
// FLY2A- followed by six characters from the reference alphabet.
const ReferencePrefix = "FLY2A-"

// referenceAlphabet excludes lookalike characters (I, O, 0, 1) so the code
// survives being read over the phone.
const referenceAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const referenceSuffixLen = 6

var referencePattern = regexp.MustCompile(`^FLY2A-[A-Z0-9]{6}$`)

// NewBookingReference returns a fresh reference candidate. Uniqueness is the
// store's job; collisions trigger a regeneration there.
func NewBookingReference() (string, error) {
	buf := make([]byte, referenceSuffixLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate booking reference: %w", err)
	}
	var sb strings.Builder
	sb.WriteString(ReferencePrefix)
	for _, b := range buf {
		sb.WriteByte(referenceAlphabet[int(b)%len(referenceAlphabet)])
	}
	return sb.String(), nil
}

// NormalizeReference prepares user input for comparison: surrounding
// whitespace is dropped and the code is uppercased.
func NormalizeReference(ref string) string {
	return strings.ToUpper(strings.TrimSpace(ref))
}

// ValidReference reports whether a normalized reference matches the public
// format.
func ValidReference(ref string) bool {
	return referencePattern.MatchString(ref)
}
