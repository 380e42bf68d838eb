package security

import (
	"crypto/rand"
	"crypto/subtle"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// bcryptCost defines the bcrypt work factor.
const bcryptCost = 12

// defaultPasswordLength is the number of trailing contact digits used as the
// initial redemption password.
const defaultPasswordLength = 6

// HashPassword hashes a plaintext password using bcrypt. bcrypt embeds a
// per-hash salt, so equal passwords produce distinct digests.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword compares a bcrypt hash with a plaintext password.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// DefaultPassword derives the initial redemption password from an owner
// contact: the last six digits of the contact's digit sequence. Returns
// empty when the contact carries fewer than six digits.
func DefaultPassword(contact string) string {
	digits := digitsOf(contact)
	if len(digits) < defaultPasswordLength {
		return ""
	}
	return digits[len(digits)-defaultPasswordLength:]
}

// RandomPassword returns a random numeric password of the default length,
// used when issuance has no owner contact to derive one from.
func RandomPassword() (string, error) {
	buf := make([]byte, defaultPasswordLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	out := make([]byte, defaultPasswordLength)
	for i, b := range buf {
		out[i] = '0' + b%10
	}
	return string(out), nil
}

// CheckAdminSecret compares a supplied secret against the configured admin
// secret in constant time.
func CheckAdminSecret(configured, supplied string) bool {
	if configured == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(configured), []byte(supplied)) == 1
}

func digitsOf(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
