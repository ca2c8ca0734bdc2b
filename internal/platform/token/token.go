package token

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// maxAttempts bounds the collision-check loop. Exhausting it means the
// candidate source is broken, not that we were unlucky.
const maxAttempts = 50

// ExistsFunc reports whether a candidate value is already taken.
type ExistsFunc func(ctx context.Context, value string) (bool, error)

// Generate produces a unique value by drawing candidates from candidate and
// checking each against exists. It fails hard after maxAttempts.
func Generate(ctx context.Context, candidate func() string, exists ExistsFunc) (string, error) {
	for i := 0; i < maxAttempts; i++ {
		value := candidate()
		if value == "" {
			continue
		}
		taken, err := exists(ctx, value)
		if err != nil {
			return "", fmt.Errorf("check candidate uniqueness: %w", err)
		}
		if !taken {
			return value, nil
		}
	}
	return "", fmt.Errorf("unable to generate unique value after %d attempts", maxAttempts)
}

// HexCode returns an 8-character lowercase hex code (4 random bytes).
// Used for clinic codes.
func HexCode() string {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return ""
	}
	return hex.EncodeToString(b[:])
}

// URLToken returns a 32-character URL-safe token. The token grants
// unauthenticated access to one follow-up, so it must be unguessable.
func URLToken() string {
	var b [24]byte
	if _, err := rand.Read(b[:]); err != nil {
		return ""
	}
	s := base64.RawURLEncoding.EncodeToString(b[:])
	if len(s) > 32 {
		s = s[:32]
	}
	return s
}
