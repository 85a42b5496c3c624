package util

import (
	"fmt"
	"math/rand"

	"github.com/google/uuid"
)

// GetRandomString generates a random string of the given length.
func GetRandomString(length int) string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	b := make([]byte, length)
	for i := range b {
		b[i] = charset[rand.Intn(len(charset))]
	}
	return string(b)
}

// NewNoteID returns a version-4 UUID for note identity.
// When the crypto random source fails it falls back to a v4-shaped UUID
// built from math/rand. The fallback only identifies notes, do not use
// it for tokens.
func NewNoteID() string {
	if id, err := uuid.NewRandom(); err == nil {
		return id.String()
	}
	b := make([]byte, 16)
	for i := range b {
		b[i] = byte(rand.Intn(256))
	}
	b[6] = (b[6] & 0x0f) | 0x40
	b[8] = (b[8] & 0x3f) | 0x80
	return fmt.Sprintf("%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:16])
}
