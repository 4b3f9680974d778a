// Package internal provides internal utility functionality for the mcpagent server.
package internal

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"unicode"
)

// maxRequestIDLength bounds the correlation IDs clients attach to streaming requests.
const maxRequestIDLength = 128

// GenerateSessionID generates a 128-bit random identifier for a streaming connection.
func GenerateSessionID() (string, error) {
	const idLength = 16
	b := make([]byte, idLength)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate session id: %v", err)
	}
	return base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString(b), nil
}

// ValidateRequestID checks a client-supplied correlation ID.
// An empty ID is valid: correlation is optional.
func ValidateRequestID(id string) error {
	if len(id) > maxRequestIDLength {
		return fmt.Errorf("request id should be at most %d characters in length", maxRequestIDLength)
	}
	if hasWhitespace(id) {
		return fmt.Errorf("request id should not contain whitespace characters")
	}
	return nil
}

// hasWhitespace checks if s contains any whitespace characters.
func hasWhitespace(s string) bool {
	for _, r := range s {
		if unicode.IsSpace(r) {
			return true
		}
	}
	return false
}
