package cache

import (
	"github.com/google/uuid"
)

// KeyGenerator produces storage keys for Cache.Store.
type KeyGenerator interface {
	Generate() string
}

// UUIDGenerator generates random (version 4) UUID keys.
//
// Thread-safety: UUIDGenerator is stateless and safe for concurrent use.
type UUIDGenerator struct{}

// Generate returns a new hyphenated UUID string.
//
// Panics if the system random source fails.
func (UUIDGenerator) Generate() string {
	return uuid.Must(uuid.NewRandom()).String()
}

// KeyFunc adapts a plain function to KeyGenerator.
type KeyFunc func() string

// Generate calls f.
func (f KeyFunc) Generate() string {
	return f()
}
