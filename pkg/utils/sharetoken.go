package utils

import (
	"crypto/rand"
	"encoding/base64"
)

const shareTokenBytes = 32

// GenerateShareToken returns a URL-safe opaque token with 256 bits of entropy.
// The token is the sole credential for anonymous share access, so it is never
// derived from any record field. The database carries a unique index on the
// token column; the astronomically unlikely collision fails the insert instead
// of silently reusing a link.
func GenerateShareToken() (string, error) {
	buf := make([]byte, shareTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
