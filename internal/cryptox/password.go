// Package cryptox wraps the password-hashing primitives used by the
// credential store. Plaintext passwords never leave this boundary: callers
// hand the password in, get a hash out, and compare through CheckPassword.
package cryptox

import "golang.org/x/crypto/bcrypt"

// PasswordHashCost is the bcrypt cost factor. 12 keeps a single hash in the
// hundreds-of-milliseconds range on current hardware.
const PasswordHashCost = 12

// HashPassword returns the salted bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), PasswordHashCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches the stored hash.
// The comparison is constant-time inside bcrypt.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
