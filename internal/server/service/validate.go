package service

import (
	"strings"
	"unicode"
)

const (
	minPasswordLength = 8
	// bcrypt only looks at the first 72 bytes.
	maxPasswordBytes = 72
	passwordSymbols  = "@$!%*?&"

	// longest address SMTP can carry
	maxEmailLength = 254
)

// ValidateEmail reports whether email looks like local@domain.tld: exactly one
// '@', no whitespace, a non-empty local part and a dot inside the domain.
func ValidateEmail(email string) bool {
	if len(email) > maxEmailLength {
		return false
	}
	if strings.IndexFunc(email, unicode.IsSpace) >= 0 {
		return false
	}

	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" || strings.Contains(domain, "@") {
		return false
	}
	if len(domain) < 3 {
		return false
	}
	return strings.Contains(domain[1:len(domain)-1], ".")
}

// PasswordResult lists the password requirements that were not met.
type PasswordResult struct {
	TooShort      bool
	TooLong       bool
	MissingLower  bool
	MissingUpper  bool
	MissingDigit  bool
	MissingSymbol bool
	// InvalidChars is set when the password contains anything other than
	// ASCII letters, digits and the allowed symbols.
	InvalidChars bool
}

// OK reports whether every requirement is met.
func (r PasswordResult) OK() bool {
	return len(r.Unmet()) == 0
}

// Unmet returns a short name for each failed requirement.
func (r PasswordResult) Unmet() []string {
	var unmet []string
	if r.TooShort {
		unmet = append(unmet, "length")
	}
	if r.TooLong {
		unmet = append(unmet, "max_length")
	}
	if r.MissingLower {
		unmet = append(unmet, "lowercase")
	}
	if r.MissingUpper {
		unmet = append(unmet, "uppercase")
	}
	if r.MissingDigit {
		unmet = append(unmet, "digit")
	}
	if r.MissingSymbol {
		unmet = append(unmet, "symbol")
	}
	if r.InvalidChars {
		unmet = append(unmet, "charset")
	}
	return unmet
}

// ValidatePassword checks password against the strength rules.
func ValidatePassword(password string) PasswordResult {
	var lower, upper, digit, symbol, invalid bool
	for _, c := range password {
		switch {
		case c >= 'a' && c <= 'z':
			lower = true
		case c >= 'A' && c <= 'Z':
			upper = true
		case c >= '0' && c <= '9':
			digit = true
		case strings.ContainsRune(passwordSymbols, c):
			symbol = true
		default:
			invalid = true
		}
	}

	return PasswordResult{
		TooShort:      len(password) < minPasswordLength,
		TooLong:       len(password) > maxPasswordBytes,
		MissingLower:  !lower,
		MissingUpper:  !upper,
		MissingDigit:  !digit,
		MissingSymbol: !symbol,
		InvalidChars:  invalid,
	}
}
