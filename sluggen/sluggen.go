// Package sluggen generates the random short codes printed into QR images.
// Generators are safe for concurrent use.
package sluggen

import (
	"crypto/rand"
	"errors"
	"fmt"
)

const (
	base62Chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	hexChars    = "0123456789abcdef"
)

// Generator generates short codes.
type Generator interface {
	Generate(length int) (string, error)
}

type alphabetGenerator struct {
	chars string
}

// NewBase62 returns a generator drawing from [0-9A-Za-z].
func NewBase62() Generator {
	return &alphabetGenerator{chars: base62Chars}
}

// NewHex returns a generator of lowercase hex codes, e.g. "abcd1234".
func NewHex() Generator {
	return &alphabetGenerator{chars: hexChars}
}

// ForAlphabet returns the generator registered under name ("hex" or "base62").
func ForAlphabet(name string) (Generator, error) {
	switch name {
	case "", "hex":
		return NewHex(), nil
	case "base62":
		return NewBase62(), nil
	default:
		return nil, fmt.Errorf("unknown short code alphabet %q", name)
	}
}

// Generate returns length characters drawn uniformly from the alphabet.
// Random bytes at or above the largest multiple of the alphabet size are
// discarded so every character is equally likely.
func (g *alphabetGenerator) Generate(length int) (string, error) {
	if length <= 0 {
		return "", errors.New("length must be positive")
	}

	n := len(g.chars)
	limit := byte(256 - 256%n)
	out := make([]byte, 0, length)
	buf := make([]byte, length+length/2)

	for len(out) < length {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("read random bytes: %w", err)
		}
		for _, b := range buf {
			if limit != 0 && b >= limit {
				continue
			}
			out = append(out, g.chars[int(b)%n])
			if len(out) == length {
				break
			}
		}
	}
	return string(out), nil
}
