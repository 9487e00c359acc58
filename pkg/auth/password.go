package auth

import (
	"errors"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword returns a salted bcrypt digest of the password.
func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword reports whether plain matches the bcrypt digest.
// The comparison is constant-time.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// ValidatePassword checks the password policy and returns one error listing
// every unmet rule, in a fixed order.
func ValidatePassword(plain string) error {
	var (
		hasSpace, hasUpper, hasDigit, hasSpecial bool
	)
	for _, r := range plain {
		switch {
		case unicode.IsSpace(r):
			hasSpace = true
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= '0' && r <= '9':
			hasDigit = true
		case r >= 'a' && r <= 'z':
		default:
			hasSpecial = true
		}
		if unicode.IsUpper(r) {
			hasUpper = true
		}
	}

	var rules []string
	if len([]rune(plain)) < 8 {
		rules = append(rules, "be at least 8 characters long")
	}
	if hasSpace {
		rules = append(rules, "not contain spaces")
	}
	if !hasUpper {
		rules = append(rules, "contain an uppercase letter")
	}
	if !hasDigit {
		rules = append(rules, "contain a number")
	}
	if hasSpecial || hasSpace {
		rules = append(rules, "not contain any special characters (!@#$%^&*()-+?_=,<>/)")
	}

	if len(rules) == 0 {
		return nil
	}
	return errors.New("Password must: " + strings.Join(rules, ", "))
}
