package validation

import (
	"regexp"
	"strings"
	"unicode"
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Letters (accents included), spaces, hyphens, apostrophes and dots.
var fullnameRe = regexp.MustCompile(`^[\p{L}\s\-'.]+$`)

func IsValidEmail(email string) bool {
	return emailRe.MatchString(email)
}

// IsValidPassword requires at least 8 characters with at least one letter and one digit.
func IsValidPassword(password string) bool {
	if len(password) < 8 {
		return false
	}
	hasLetter, hasDigit := false, false
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	return hasLetter && hasDigit
}

func IsValidFullname(fullname string) bool {
	fullname = strings.TrimSpace(fullname)
	return fullname != "" && fullnameRe.MatchString(fullname)
}

// NormalizeEmail lowercases and trims an address before lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsValidCode checks a 6-digit one-time code.
func IsValidCode(code string) bool {
	if len(code) != 6 {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
