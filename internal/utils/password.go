package utils

import (
	"strings"
	"unicode"
)

// PasswordSymbols is the set of characters that count as symbols for the strength policy
const PasswordSymbols = `!@#$%^&*(),.?":{}|<>`

const MinPasswordLength = 8

// IsStrongPassword reports whether password has at least MinPasswordLength characters
// and contains an upper-case letter, a lower-case letter, a digit and a symbol.
func IsStrongPassword(password string) bool {
	if len([]rune(password)) < MinPasswordLength {
		return false
	}
	var upper, lower, digit, symbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(PasswordSymbols, r):
			symbol = true
		}
	}
	return upper && lower && digit && symbol
}
