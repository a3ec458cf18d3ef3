package core

import (
	"crypto/rand"
	"math/big"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// FoldString lowers s and strips the diacritics of latin letters ("Prénom" -> "prenom").
func FoldString(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if f, ok := foldMap[r]; ok {
			b.WriteRune(f)
		} else if !unicode.Is(unicode.Mn, r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

var foldMap = map[rune]rune{
	'à': 'a', 'â': 'a', 'ä': 'a', 'á': 'a',
	'ç': 'c',
	'é': 'e', 'è': 'e', 'ê': 'e', 'ë': 'e',
	'î': 'i', 'ï': 'i', 'í': 'i',
	'ô': 'o', 'ö': 'o', 'ó': 'o',
	'ù': 'u', 'û': 'u', 'ü': 'u', 'ú': 'u',
}

// HashPassword bcrypt-hashes pwd.
func HashPassword(pwd string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
}

// CheckPassword compares a bcrypt hash with its possible plaintext equivalent.
func CheckPassword(hash []byte, pwd string) error {
	return bcrypt.CompareHashAndPassword(hash, []byte(pwd))
}

const (
	pwdLower   = "abcdefghijkmnpqrstuvwxyz"
	pwdUpper   = "ABCDEFGHJKLMNPQRSTUVWXYZ"
	pwdDigits  = "23456789"
	pwdSpecial = "!@#$%&*?"
)

// GeneratePassword returns a random password of length n (min 8) that satisfies the password policy.
func GeneratePassword(n int) (string, error) {
	if n < 8 {
		n = 8
	}
	sets := []string{pwdLower, pwdUpper, pwdDigits, pwdSpecial}
	all := strings.Join(sets, "")

	pwd := make([]byte, 0, n)
	for _, set := range sets {
		c, err := randChar(set)
		if err != nil {
			return "", err
		}
		pwd = append(pwd, c)
	}
	for len(pwd) < n {
		c, err := randChar(all)
		if err != nil {
			return "", err
		}
		pwd = append(pwd, c)
	}

	// shuffle so the first 4 chars are not predictable classes
	for i := len(pwd) - 1; i > 0; i-- {
		j, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return "", err
		}
		pwd[i], pwd[j.Int64()] = pwd[j.Int64()], pwd[i]
	}
	return string(pwd), nil
}

func randChar(set string) (byte, error) {
	idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(set))))
	if err != nil {
		return 0, err
	}
	return set[idx.Int64()], nil
}
