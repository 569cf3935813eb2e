// Package core provides the storage-agnostic building blocks of the glyph
// record store adapter. This file defines primary-key generators used when
// an input record omits its key.
package core

import (
	"crypto/rand"
	"encoding/base64"

	"github.com/google/uuid"
)

// KeyGenerator produces a new primary-key value.
type KeyGenerator func() any

// randomKeyBytes is the entropy of the default generator. 15 bytes encode
// to exactly 20 base64 characters with no padding.
const randomKeyBytes = 15

// RandomKey is the default primary-key generator: 15 random bytes,
// URL-safe base64 encoded, yielding a fixed-length 20 character key.
func RandomKey() any {
	buf := make([]byte, randomKeyBytes)
	if _, err := rand.Read(buf); err != nil {
		panic("core: random key generation failed: " + err.Error())
	}
	return base64.RawURLEncoding.EncodeToString(buf)
}

// UUIDKey generates a random UUIDv4 primary key, for schemas that prefer
// uuid-typed key columns.
func UUIDKey() any {
	return uuid.NewString()
}
