package main

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Validator provides chained input validation for auth requests
type Validator struct {
	errors []string
}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{
		errors: make([]string, 0),
	}
}

// AddError adds a validation error
func (v *Validator) AddError(message string) {
	v.errors = append(v.errors, message)
}

// HasErrors returns true if there are validation errors
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// ErrorString returns all errors as a single string
func (v *Validator) ErrorString() string {
	return strings.Join(v.errors, "; ")
}

// ValidateRequired checks if a string is not empty
func (v *Validator) ValidateRequired(value, field string) *Validator {
	if strings.TrimSpace(value) == "" {
		v.AddError(fmt.Sprintf("%s is required", field))
	}
	return v
}

// ValidateLength checks string length constraints
func (v *Validator) ValidateLength(value, field string, min, max int) *Validator {
	length := utf8.RuneCountInString(value)
	if length < min {
		v.AddError(fmt.Sprintf("%s must be at least %d characters long", field, min))
	}
	if max > 0 && length > max {
		v.AddError(fmt.Sprintf("%s must be at most %d characters long", field, max))
	}
	return v
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// ValidateEmailField checks email format
func (v *Validator) ValidateEmailField(email, field string) *Validator {
	if !ValidateEmail(email) {
		v.AddError(fmt.Sprintf("%s is not a valid email address", field))
	}
	return v
}

// E.164 with optional leading +, 8-15 digits
var phoneRegex = regexp.MustCompile(`^\+?[1-9][0-9]{7,14}$`)

// ValidatePhoneField checks phone number format
func (v *Validator) ValidatePhoneField(phone, field string) *Validator {
	if !ValidatePhone(phone) {
		v.AddError(fmt.Sprintf("%s is not a valid phone number", field))
	}
	return v
}

var otpRegex = regexp.MustCompile(`^[0-9]{6}$`)

// ValidateOTPField checks that a one-time code is six digits
func (v *Validator) ValidateOTPField(code, field string) *Validator {
	if !otpRegex.MatchString(code) {
		v.AddError(fmt.Sprintf("%s must be a 6-digit code", field))
	}
	return v
}

func ValidateEmail(email string) bool {
	return emailRegex.MatchString(email) && len(email) <= 255
}

func ValidatePhone(phone string) bool {
	return phoneRegex.MatchString(phone)
}

func SanitizeInput(input string) string {
	input = strings.TrimSpace(input)
	input = html.EscapeString(input)
	if len(input) > 1000 {
		input = input[:1000]
	}
	return input
}

// RequestValidationError is a user-facing input validation failure
type RequestValidationError struct {
	Message string
}

func (e *RequestValidationError) Error() string {
	return e.Message
}
