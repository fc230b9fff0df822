package affiliate

import (
	"crypto/rand"
	"fmt"
)

// CodeLength is the fixed length of referral codes.
const CodeLength = 8

// codeAlphabet is the uppercase-alphanumeric character set referral codes
// are drawn from.
const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateCode returns a random 8-character uppercase-alphanumeric referral
// code. Uniqueness is enforced by the store's unique index, not here; the
// caller retries on collision.
func GenerateCode() (string, error) {
	// Bytes at or above the largest multiple of the alphabet size are
	// rejected so every character is drawn uniformly.
	const limit = byte(256 - 256%len(codeAlphabet))

	code := make([]byte, 0, CodeLength)
	buf := make([]byte, CodeLength)
	for len(code) < CodeLength {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("affiliate: generate code: %w", err)
		}
		for _, b := range buf {
			if b >= limit {
				continue
			}
			code = append(code, codeAlphabet[int(b)%len(codeAlphabet)])
			if len(code) == CodeLength {
				break
			}
		}
	}
	return string(code), nil
}
