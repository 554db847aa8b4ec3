package cache

import (
	"errors"
	"strings"
)

// MaxKeyLength is the maximum allowed length for a cache key. Inscription
// ids (64-hex txid + index suffix) fit comfortably.
const MaxKeyLength = 128

// Sentinel errors for key validation.
var (
	ErrInvalidKey = errors.New("cache: key is invalid")
	ErrKeyTooLong = errors.New("cache: key exceeds max length")
)

// ValidateKey checks that a key is usable as a block height or
// inscription id lookup key.
func ValidateKey(key string) error {
	if key == "" || strings.TrimSpace(key) != key {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	if strings.ContainsAny(key, " \n\r\t/") {
		return ErrInvalidKey
	}
	return nil
}
