package security

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// HashPassword derives a "salt:hash" credential string. The salt is 16
// random bytes hex-encoded when not supplied; the hash is the hex SHA-256
// digest of salt||password. Deterministic given the salt, so stored values
// can be re-derived for verification.
func HashPassword(password string, salt ...string) string {
	var s string
	if len(salt) > 0 && salt[0] != "" {
		s = salt[0]
	} else {
		buf := make([]byte, 16)
		if _, err := rand.Read(buf); err != nil {
			panic("security: entropy source unavailable: " + err.Error())
		}
		s = hex.EncodeToString(buf)
	}
	sum := sha256.Sum256([]byte(s + password))
	return s + ":" + hex.EncodeToString(sum[:])
}

// VerifyPassword checks a provided password against a stored "salt:hash"
// value. A malformed stored value verifies as false, never as an error.
func VerifyPassword(stored, provided string) bool {
	salt, storedHash, ok := strings.Cut(stored, ":")
	if !ok || salt == "" || storedHash == "" {
		return false
	}
	_, newHash, _ := strings.Cut(HashPassword(provided, salt), ":")
	return subtle.ConstantTimeCompare([]byte(newHash), []byte(storedHash)) == 1
}
