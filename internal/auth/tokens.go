package auth

import (
	"crypto/rand"
	"encoding/hex"
)

// GenerateOpaqueToken creates a random single-use capability token of the
// given entropy in bytes, hex-encoded.
func GenerateOpaqueToken(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
