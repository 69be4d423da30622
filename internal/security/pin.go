// Package security implements PIN hashing, format validation, and the
// in-process attempt limiter that bounds repeated PIN guesses per phone.
//
// A PIN is stored only as a salted HMAC-SHA256 digest keyed with a
// server-held secret. Digests are deterministic for equal input so
// verification is a constant-time comparison of hex strings, and infeasible
// to invert without the salt.
package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"regexp"
)

// pinRE matches exactly four digits after normalization.
var pinRE = regexp.MustCompile(`^\d{4}$`)

// nonDigitRE strips everything that is not a digit.
var nonDigitRE = regexp.MustCompile(`\D`)

// PINHasher produces and verifies salted PIN digests.
type PINHasher struct {
	salt []byte
}

// NewPINHasher returns a hasher keyed with the given secret salt.
func NewPINHasher(salt string) *PINHasher {
	return &PINHasher{salt: []byte(salt)}
}

// Hash returns the lowercase hex HMAC-SHA256 digest of pin.
func (h *PINHasher) Hash(pin string) string {
	mac := hmac.New(sha256.New, h.salt)
	mac.Write([]byte(pin))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether pin hashes to storedHash. The comparison is
// constant time to avoid leaking digest prefixes.
func (h *PINHasher) Verify(pin, storedHash string) bool {
	computed := h.Hash(pin)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(storedHash)) == 1
}

// NormalizePIN strips non-digit characters from text, e.g. "1 2-3 4" → "1234".
func NormalizePIN(text string) string {
	return nonDigitRE.ReplaceAllString(text, "")
}

// ValidPINFormat reports whether text normalizes to exactly 4 digits.
func ValidPINFormat(text string) bool {
	return pinRE.MatchString(NormalizePIN(text))
}
