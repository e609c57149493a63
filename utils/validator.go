// utils/validator.go - Input validation
package utils

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// ValidateEmail checks if email is valid
func ValidateEmail(email string) bool {
	return emailRegex.MatchString(email)
}

// ValidatePassword checks password strength
func ValidatePassword(password string) (bool, string) {
	if len(password) < 8 {
		return false, "Password must be at least 8 characters"
	}

	return true, ""
}

// SanitizeInput removes potentially harmful characters
func SanitizeInput(input string) string {
	// Remove leading/trailing spaces
	input = strings.TrimSpace(input)

	// Remove null bytes
	input = strings.ReplaceAll(input, "\x00", "")

	if !utf8.ValidString(input) {
		input = strings.ToValidUTF8(input, "")
	}
	return input
}

// SanitizeText cleans free text and cuts it to max runes. max <= 0 keeps
// the full length.
func SanitizeText(input string, max int) string {
	input = SanitizeInput(input)
	if max > 0 && utf8.RuneCountInString(input) > max {
		input = string([]rune(input)[:max])
	}
	return input
}

var urlRegex = regexp.MustCompile(`^https?://[^\s/$.?#].[^\s]*$`)

// ValidateURL accepts empty strings and http(s) URLs.
func ValidateURL(raw string) bool {
	raw = strings.TrimSpace(raw)
	return raw == "" || urlRegex.MatchString(raw)
}
