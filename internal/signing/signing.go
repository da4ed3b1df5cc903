// Package signing verifies the shared admin secret that guards publishing.
// Candidates are compared through HMAC digests so the comparison time does
// not depend on where, or whether, the inputs differ.
package signing

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
)

// Verifier checks candidate secrets against the configured one.
type Verifier struct {
	key    []byte
	digest []byte
}

// NewVerifier creates a Verifier for secret. The HMAC key is random per
// process; only digests are kept in memory.
func NewVerifier(secret string) *Verifier {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		// crypto/rand never fails on supported platforms.
		panic(err)
	}
	v := &Verifier{key: key}
	v.digest = v.sum(secret)
	return v
}

// Verify reports whether candidate equals the configured secret. An empty
// candidate never matches.
func (v *Verifier) Verify(candidate string) bool {
	if candidate == "" {
		return false
	}
	// hmac.Equal performs constant-time comparison to avoid timing attacks.
	return hmac.Equal(v.digest, v.sum(candidate))
}

func (v *Verifier) sum(value string) []byte {
	mac := hmac.New(sha256.New, v.key)
	mac.Write([]byte(value))
	return mac.Sum(nil)
}
