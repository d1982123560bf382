package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatorChain(t *testing.T) {
	v := NewValidator().
		ValidateRequired("", "email").
		ValidateLength("ab", "password", 8, 72)

	assert.True(t, v.HasErrors())
	assert.Contains(t, v.ErrorString(), "email is required")
	assert.Contains(t, v.ErrorString(), "password must be at least 8 characters long")

	clean := NewValidator().
		ValidateRequired("rider@esygrab.test", "email").
		ValidateEmailField("rider@esygrab.test", "email").
		ValidateLength("supersecret", "password", 8, 72)
	assert.False(t, clean.HasErrors())
}

func TestValidateEmail(t *testing.T) {
	assert.True(t, ValidateEmail("user@example.com"))
	assert.True(t, ValidateEmail("user.name+tag@sub.example.co"))
	assert.False(t, ValidateEmail("not-an-email"))
	assert.False(t, ValidateEmail("user@"))
	assert.False(t, ValidateEmail("@example.com"))
	assert.False(t, ValidateEmail(strings.Repeat("a", 250)+"@example.com"))
}

func TestValidatePhone(t *testing.T) {
	assert.True(t, ValidatePhone("+15550001111"))
	assert.True(t, ValidatePhone("919876543210"))
	assert.False(t, ValidatePhone("0123456789"))
	assert.False(t, ValidatePhone("+1-555-000-1111"))
	assert.False(t, ValidatePhone("12345"))
}

func TestValidateOTPField(t *testing.T) {
	assert.False(t, NewValidator().ValidateOTPField("123456", "otp").HasErrors())
	assert.True(t, NewValidator().ValidateOTPField("12345", "otp").HasErrors())
	assert.True(t, NewValidator().ValidateOTPField("12345a", "otp").HasErrors())
}

func TestSanitizeInput(t *testing.T) {
	assert.Equal(t, "hello", SanitizeInput("  hello  "))
	assert.Equal(t, "&lt;script&gt;", SanitizeInput("<script>"))
	assert.LessOrEqual(t, len(SanitizeInput(strings.Repeat("x", 2000))), 1000)
}
