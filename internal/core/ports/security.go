package ports

// TokenGenerator produces the opaque tokens embedded in verification and
// reset flows.
type TokenGenerator interface {
	// LongToken returns a cryptographically random string of 2*length hex
	// characters.
	LongToken(length int) (string, error)
	// ShortToken returns a random string of exactly length characters,
	// numeric-only when digitsOnly is set, alphanumeric otherwise.
	ShortToken(length int, digitsOnly bool) (string, error)
}

// PasswordHasher hashes and compares passwords. The algorithm is opaque to
// the workflow engine.
type PasswordHasher interface {
	Hash(password string) (string, error)
	// Compare returns a non-nil error when the plaintext does not match the
	// stored hash.
	Compare(hash, password string) error
}
