package usecases

import (
	"regexp"
	"strings"

	"cobrazap/internal/entities"
)

// countryCode is fixed: the gateway serves Brazilian numbers only.
const countryCode = "55"

var nonDigits = regexp.MustCompile(`\D+`)

// NormalizePhone converts a user-entered phone string into the chat network's
// addressable form: digits only, country code prepended when absent.
// Normalization is idempotent. Inputs with no digits fail with ErrInvalidPhone.
func NormalizePhone(raw string) (string, error) {
	digits := nonDigits.ReplaceAllString(raw, "")
	if digits == "" {
		return "", entities.ErrInvalidPhone
	}
	if !strings.HasPrefix(digits, countryCode) {
		digits = countryCode + digits
	}
	return digits, nil
}
