package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// tokenByteLength is the entropy of the generated API token: 32 bytes,
// hex-encoded to 64 characters.
const tokenByteLength = 32

// GenerateAPIToken produces the bearer token clients present to the
// API. Only its bcrypt hash is stored; the plain value is shown to the
// operator once.
func GenerateAPIToken() (string, error) {
	buf := make([]byte, tokenByteLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating API token: crypto/rand failed: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// HashAPIToken returns the bcrypt hash the auth middleware verifies
// against.
func HashAPIToken(token string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing API token: %w", err)
	}
	return string(hash), nil
}
