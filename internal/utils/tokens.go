package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
)

const (
	digitAlphabet = "0123456789"
	alnumAlphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// RandomTokenGenerator produces opaque verification and reset tokens from
// crypto/rand. It satisfies the TokenGenerator port.
type RandomTokenGenerator struct{}

// NewRandomTokenGenerator creates a token generator.
func NewRandomTokenGenerator() *RandomTokenGenerator {
	return &RandomTokenGenerator{}
}

// LongToken returns a random string of 2*length hex characters.
func (g *RandomTokenGenerator) LongToken(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("long token length must be positive, got %d", length)
	}
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// ShortToken returns a random string of exactly length characters, numeric
// when digitsOnly is set and alphanumeric otherwise.
func (g *RandomTokenGenerator) ShortToken(length int, digitsOnly bool) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("short token length must be positive, got %d", length)
	}
	alphabet := alnumAlphabet
	if digitsOnly {
		alphabet = digitAlphabet
	}
	max := big.NewInt(int64(len(alphabet)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to read random index: %w", err)
		}
		out[i] = alphabet[n.Int64()]
	}
	return string(out), nil
}
