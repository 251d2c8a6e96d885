package security

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// HashRefreshToken returns a SHA-256 hash of the refresh token string, hex-encoded.
// Only the hash is persisted in the ledger; a ledger compromise yields no usable tokens.
func HashRefreshToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// RefreshTokenHashEqual performs constant-time comparison of the provided token's hash
// with the stored hash. Returns true only if they match.
func RefreshTokenHashEqual(providedToken, storedHash string) bool {
	providedHash := HashRefreshToken(providedToken)
	return subtle.ConstantTimeCompare([]byte(providedHash), []byte(storedHash)) == 1
}

// HashFingerprint returns the SHA-256 hex digest of a client device identifier,
// or "" when the identifier is empty or whitespace. Administrator records store
// only this hash, never the raw identifier.
func HashFingerprint(identifier string) string {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return ""
	}
	h := sha256.Sum256([]byte(identifier))
	return hex.EncodeToString(h[:])
}
