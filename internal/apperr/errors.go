// Package apperr defines the error taxonomy surfaced by the desk client.
// The auth server builds its rejections from the same type so the status
// and message travel unchanged into the response envelope.
//
// Every failure returned across the client boundary is an *Error carrying a
// Kind (what class of failure) and, for server rejections, a Code. Sentinels
// below compare by kind and code, so callers use errors.Is:
//
//	if errors.Is(err, apperr.ErrInvalidOTP) { ... }
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind string

const (
	// KindValidation is a client-side rejection before any network call.
	KindValidation Kind = "validation"
	// KindAuth is a server-side rejection of the request.
	KindAuth Kind = "auth"
	// KindNetwork is a transport failure; safe to retry.
	KindNetwork Kind = "network"
	// KindStorage is a credential store failure.
	KindStorage Kind = "storage"
	// KindMissingStaging means a flow step found no staged staff id.
	KindMissingStaging Kind = "missing_staging"
)

// Code narrows down an auth rejection.
type Code string

const (
	CodeNone               Code = ""
	CodeInvalidCredentials Code = "INVALID_CREDENTIALS"
	CodeInvalidOTP         Code = "INVALID_OTP"
	CodeExpired            Code = "EXPIRED"
	CodeNotFound           Code = "NOT_FOUND"
	CodeValidation         Code = "VALIDATION"
	CodeUnauthorized       Code = "UNAUTHORIZED"
)

// MissingStagingMessage is shown when a second flow step lost its staff id.
const MissingStagingMessage = "Missing staff ID. Please verify again."

// Error is the typed failure returned by client operations.
type Error struct {
	Kind Kind
	Code Code
	// Message is safe to show to the user.
	Message string
	// Status is the HTTP status for server rejections, 0 otherwise.
	Status int
	Cause  error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
		if e.Code != CodeNone {
			msg += " " + string(e.Code)
		}
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches sentinels by kind and, when the target has one, by code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if e.Kind != t.Kind {
		return false
	}
	return t.Code == CodeNone || e.Code == t.Code
}

// Retryable reports whether the failure may be retried at the transport layer.
func (e *Error) Retryable() bool {
	return e.Kind == KindNetwork
}

// Sentinels for errors.Is.
var (
	ErrValidation         = &Error{Kind: KindValidation}
	ErrNetwork            = &Error{Kind: KindNetwork}
	ErrStorage            = &Error{Kind: KindStorage}
	ErrMissingStaging     = &Error{Kind: KindMissingStaging}
	ErrAuth               = &Error{Kind: KindAuth}
	ErrInvalidCredentials = &Error{Kind: KindAuth, Code: CodeInvalidCredentials}
	ErrInvalidOTP         = &Error{Kind: KindAuth, Code: CodeInvalidOTP}
	ErrExpired            = &Error{Kind: KindAuth, Code: CodeExpired}
	ErrNotFound           = &Error{Kind: KindAuth, Code: CodeNotFound}
	ErrRejected           = &Error{Kind: KindAuth, Code: CodeValidation}
	ErrUnauthorized       = &Error{Kind: KindAuth, Code: CodeUnauthorized}
)

// Validation builds a client-side validation failure.
func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

// Auth builds a server rejection.
func Auth(code Code, status int, message string) *Error {
	return &Error{Kind: KindAuth, Code: code, Status: status, Message: message}
}

// Network wraps a transport failure.
func Network(cause error) *Error {
	return &Error{Kind: KindNetwork, Message: "network error, please try again", Cause: cause}
}

// Storage wraps a credential store failure.
func Storage(op string, cause error) *Error {
	return &Error{Kind: KindStorage, Message: "credential store: " + op, Cause: cause}
}

// MissingStaging is returned when a flow step has no staged staff id.
func MissingStaging() *Error {
	return &Error{Kind: KindMissingStaging, Message: MissingStagingMessage}
}

// KindOf returns the kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// UserMessage returns the text to show for err.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
