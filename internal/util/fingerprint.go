package util

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Fingerprint computes a stable hash for a diagnostic key
func Fingerprint(parts ...string) string {
	h := sha256.New()
	h.Write([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(h.Sum(nil))[:16]
}
