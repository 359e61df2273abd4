// Package password wraps password hashing behind a small interface so
// the session lifecycle engine never sees the hashing algorithm.
package password

// Hasher hashes plaintext passwords and verifies candidates against
// stored hashes.
type Hasher interface {
	Hash(plain string) (string, error)
	Verify(plain, hash string) bool
}
