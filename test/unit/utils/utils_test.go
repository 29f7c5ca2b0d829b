package utils_test

import (
	"strings"
	"testing"

	"github.com/avatarctic/credential-management/internal/utils"
)

func TestLongToken_LengthAndUniqueness(t *testing.T) {
	g := utils.NewRandomTokenGenerator()

	a, err := g.LongToken(15)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(a) != 30 {
		t.Fatalf("expected 30 hex chars, got %d", len(a))
	}

	b, err := g.LongToken(15)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a == b {
		t.Fatal("two long tokens must not collide")
	}
}

func TestLongToken_RejectsNonPositiveLength(t *testing.T) {
	g := utils.NewRandomTokenGenerator()
	if _, err := g.LongToken(0); err == nil {
		t.Fatal("expected an error for zero length")
	}
}

func TestShortToken_DigitsOnly(t *testing.T) {
	g := utils.NewRandomTokenGenerator()

	tok, err := g.ShortToken(6, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tok) != 6 {
		t.Fatalf("expected 6 chars, got %d", len(tok))
	}
	for _, r := range tok {
		if !strings.ContainsRune("0123456789", r) {
			t.Fatalf("expected digits only, got %q", tok)
		}
	}
}

func TestShortToken_Alphanumeric(t *testing.T) {
	g := utils.NewRandomTokenGenerator()

	tok, err := g.ShortToken(8, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tok) != 8 {
		t.Fatalf("expected 8 chars, got %d", len(tok))
	}
}

func TestBcryptHasher_RoundTrip(t *testing.T) {
	h := utils.NewBcryptHasher(4) // minimum cost keeps the test fast

	hash, err := h.Hash("CorrectHorse1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hash == "CorrectHorse1" {
		t.Fatal("hash must not equal the password")
	}
	if err := h.Compare(hash, "CorrectHorse1"); err != nil {
		t.Fatalf("expected match, got %v", err)
	}
	if err := h.Compare(hash, "WrongPass"); err == nil {
		t.Fatal("expected mismatch error")
	}
}

func TestBcryptHasher_ClampsInvalidCost(t *testing.T) {
	h := utils.NewBcryptHasher(99)
	if _, err := h.Hash("SomePassword1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
