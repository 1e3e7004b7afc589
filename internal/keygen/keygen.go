// ABOUTME: Opaque capability key generation for raids
// ABOUTME: Produces user keys (6 chars) and admin keys (20 chars) from an unambiguous alphabet

package keygen

import (
	"crypto/rand"
	"fmt"
)

// Key lengths. A presented key's length determines which capability it
// claims: 6 characters is a user key, 20 characters an admin key.
const (
	UserKeyLen  = 6
	AdminKeyLen = 20
)

// alphabet excludes 0/O, 1/l/I and other characters that are easy to
// mistranscribe when keys are shared over voice chat or handwriting.
const alphabet = "23456789abcdefghijkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ"

// Kind classifies a capability key.
type Kind int

const (
	KindUnknown Kind = iota
	KindUser
	KindAdmin
)

func (k Kind) String() string {
	switch k {
	case KindUser:
		return "user"
	case KindAdmin:
		return "admin"
	default:
		return "unknown"
	}
}

// KindOf classifies a key by its length.
func KindOf(key string) Kind {
	switch len(key) {
	case UserKeyLen:
		return KindUser
	case AdminKeyLen:
		return KindAdmin
	default:
		return KindUnknown
	}
}

// Generate returns a random key of the given length drawn uniformly from
// the alphabet. Keys are opaque identifiers, not hardened credentials;
// uniqueness is enforced by the store, which retries on collision.
func Generate(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("invalid key length %d", length)
	}

	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("reading random bytes: %w", err)
	}

	out := make([]byte, length)
	for i, b := range buf {
		out[i] = alphabet[int(b)%len(alphabet)]
	}
	return string(out), nil
}

// NewUserKey generates a 6-character user key.
func NewUserKey() (string, error) {
	return Generate(UserKeyLen)
}

// NewAdminKey generates a 20-character admin key.
func NewAdminKey() (string, error) {
	return Generate(AdminKeyLen)
}
