package port

// PasswordHasher abstracts the password hashing primitive. The digest format
// is opaque to callers.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, digest string) (bool, error)
}
