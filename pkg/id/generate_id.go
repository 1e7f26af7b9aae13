package id

import (
	"crypto/rand"
	"encoding/hex"
)

// NewID32 returns a random request/correlation id: exactly 32 lowercase hex
// characters, no separators or prefixes. The idempotency layer accepts ids
// in this format.
func NewID32() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
