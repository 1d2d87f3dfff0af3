package idempotency

import (
	"errors"
	"fmt"
)

// MaxKeyLength is the longest idempotency key accepted.
const MaxKeyLength = 50

// ErrInvalidKey is returned by ParseKey. The wrapping message tells the
// caller how to fix the key.
var ErrInvalidKey = errors.New("invalid idempotency key")

// Key is a validated client-supplied idempotency key.
type Key string

func (k Key) String() string {
	return string(k)
}

// ParseKey validates s: non-empty, at most MaxKeyLength characters, letters,
// digits and -_.: only.
func ParseKey(s string) (Key, error) {
	if s == "" {
		return "", fmt.Errorf("%w: the idempotency key cannot be empty", ErrInvalidKey)
	}
	if len(s) > MaxKeyLength {
		return "", fmt.Errorf("%w: the idempotency key must be at most %d characters long", ErrInvalidKey, MaxKeyLength)
	}
	for i := 0; i < len(s); i++ {
		if !isKeyChar(s[i]) {
			return "", fmt.Errorf("%w: character %q at position %d is not allowed, use letters, digits and -_.:", ErrInvalidKey, s[i], i)
		}
	}
	return Key(s), nil
}

func isKeyChar(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '-', c == '_', c == '.', c == ':':
		return true
	}
	return false
}
