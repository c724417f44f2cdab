package models

import (
	"math"
	"strconv"
	"strings"
)

// OTPChallenge is what the server answers to a forgot-password request.
// It is never persisted.
type OTPChallenge struct {
	StaffID   StaffID `json:"staff_id"`
	ExpiresIn string  `json:"expires_in"`
	Message   string  `json:"message"`
}

// OTPCode is the passcode as typed by the user, coerced to a number.
// Input that is not a number is kept as an invalid code and travels to the
// server as JSON null so the server rejects it; the client never validates
// the shape of a code itself.
type OTPCode struct {
	value float64
	valid bool
}

// ParseOTP coerces raw user input the way a numeric text field does:
// surrounding blanks are ignored, an empty field is zero, anything that is
// not a finite number becomes invalid.
func ParseOTP(raw string) OTPCode {
	s := strings.TrimSpace(raw)
	if s == "" {
		return OTPCode{valid: true}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return OTPCode{}
	}
	return OTPCode{value: v, valid: true}
}

// OTPFromInt builds a code from a number.
func OTPFromInt(v int64) OTPCode {
	return OTPCode{value: float64(v), valid: true}
}

// Valid reports whether the input was numeric.
func (c OTPCode) Valid() bool { return c.valid }

// Int64 returns the numeric value truncated to an integer.
func (c OTPCode) Int64() int64 { return int64(c.value) }

// String renders the code for logs and prompts.
func (c OTPCode) String() string {
	if !c.valid {
		return "NaN"
	}
	return strconv.FormatFloat(c.value, 'f', -1, 64)
}

// MarshalJSON writes the number, or null for non-numeric input.
func (c OTPCode) MarshalJSON() ([]byte, error) {
	if !c.valid {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(c.value, 'f', -1, 64)), nil
}

// UnmarshalJSON accepts a number or null.
func (c *OTPCode) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" {
		*c = OTPCode{}
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*c = OTPCode{value: v, valid: true}
	return nil
}

// ResetPasswordRequest is the body of a reset-password call.
type ResetPasswordRequest struct {
	StaffID     StaffID `json:"staff_id"`
	OTP         OTPCode `json:"otp"`
	NewPassword string  `json:"new_password"`
}
