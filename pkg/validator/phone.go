package validator

import (
	"errors"
	"regexp"
	"strings"
)

var (
	// ErrEmptyContact indicates the contact number is empty
	ErrEmptyContact = errors.New("contact number cannot be empty")

	// ErrInvalidFormat indicates the contact number is not in international
	// E.164 form
	ErrInvalidFormat = errors.New("contact number must be in international format, e.g. +14155550100")
)

// e164Regex matches a leading + followed by 8 to 15 digits
var e164Regex = regexp.MustCompile(`^\+[1-9]\d{7,14}$`)

// PhoneValidator validates customer contact numbers. Operators call
// customers directly to finalize trip details, so the number has to be
// dialable internationally.
type PhoneValidator struct{}

// NewPhoneValidator creates a new phone validator instance
func NewPhoneValidator() *PhoneValidator {
	return &PhoneValidator{}
}

// Validate checks a contact number and returns its sanitized E.164 form.
// Accepts spacing and dashes: "+1 415 555-0100" sanitizes to "+14155550100".
func (v *PhoneValidator) Validate(phone string) (string, error) {
	if phone == "" {
		return "", ErrEmptyContact
	}

	sanitized := v.Sanitize(phone)
	if !e164Regex.MatchString(sanitized) {
		return "", ErrInvalidFormat
	}

	return sanitized, nil
}

// Sanitize strips spacing, dashes, and parentheses from a contact number
func (v *PhoneValidator) Sanitize(phone string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')', '.':
			return -1
		}
		return r
	}, phone)
}
