package slug

import (
	"crypto/rand"
	"math/big"
	"regexp"
	"strings"
)

const (
	maxBaseLength = 50
	suffixLength  = 6
	suffixChars   = "abcdefghijklmnopqrstuvwxyz0123456789"
)

var (
	disallowed = regexp.MustCompile(`[^a-z0-9\s-]`)
	whitespace = regexp.MustCompile(`\s+`)
	hyphenRuns = regexp.MustCompile(`-+`)
)

// Normalize maps a human-readable title to a URL-safe slug base: lowercase
// alphanumerics separated by single hyphens, at most 50 characters, no
// leading or trailing hyphen. Input that carries no usable characters
// normalizes to the empty string.
func Normalize(text string) string {
	s := strings.ToLower(text)
	s = disallowed.ReplaceAllString(s, "")
	s = whitespace.ReplaceAllString(s, "-")
	s = hyphenRuns.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > maxBaseLength {
		s = strings.TrimRight(s[:maxBaseLength], "-")
	}
	return s
}

// MakeUnique returns "{base}-{suffix}" where suffix is 6 random base-36
// characters. Uniqueness is probabilistic (36^6 combinations); callers that
// persist slugs under a unique index should retry on conflict.
func MakeUnique(title string) (string, error) {
	suffix, err := randomSuffix(suffixLength)
	if err != nil {
		return "", err
	}
	return Normalize(title) + "-" + suffix, nil
}

func randomSuffix(n int) (string, error) {
	max := big.NewInt(int64(len(suffixChars)))
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(suffixChars[idx.Int64()])
	}
	return b.String(), nil
}
