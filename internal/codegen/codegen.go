// Package codegen produces human-typable access codes in the LR-XXXX-XXXX
// format. Generation is purely probabilistic; uniqueness is enforced by the
// issuing caller against the backing store.
package codegen

import (
	"crypto/rand"
	"regexp"
	"strings"
)

// alphabet excludes visually confusable characters (0/O, 1/I).
const alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Prefix is the fixed code prefix.
const Prefix = "LR-"

var codePattern = regexp.MustCompile(`^LR-[` + alphabet + `]{4}-[` + alphabet + `]{4}$`)

// Generate returns a random code of the form LR-XXXX-XXXX drawn uniformly
// from the unambiguous alphabet.
func Generate() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	out := make([]byte, 0, 12)
	out = append(out, Prefix...)
	for i, b := range buf {
		if i == 4 {
			out = append(out, '-')
		}
		out = append(out, alphabet[int(b)%len(alphabet)])
	}
	return string(out), nil
}

// Normalize canonicalizes user input: trimmed and uppercased. Codes are
// case-insensitive on input and stored uppercase.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Valid reports whether a normalized code matches the exact LR-XXXX-XXXX format.
func Valid(code string) bool {
	return codePattern.MatchString(code)
}
