// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package verification

import (
	"errors"
	"net/http"
	"strings"
)

// Form fields a failure can be attached to.
const (
	FieldToken = "token"
	FieldEmail = "email"
	FieldOTP   = "otp"
)

// Failure codes.
const (
	CodeInvalidToken   = "invalid-token"
	CodeTokenRequired  = "token-required"
	CodeInvalidSession = "invalid-session"
	CodeUserNotFound   = "user-not-found"
	CodeInvalidCode    = "invalid-code"
	CodeExpired        = "expired"
)

// Error is a field-scoped verification failure. Message is a human-readable
// English text; Code identifies the failure for translation.
type Error struct {
	Field   string
	Code    string
	Message string
	Status  int
}

func (e *Error) Error() string {
	return e.Field + ": " + e.Message
}

// MessageID names the translation of the failure.
func (e *Error) MessageID() string {
	return "verification_" + strings.ReplaceAll(e.Code, "-", "_")
}

// AsError extracts a *Error from err.
func AsError(err error) (*Error, bool) {
	var verr *Error
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}

func errInvalidToken() *Error {
	return &Error{Field: FieldToken, Code: CodeInvalidToken, Message: "Invalid or expired verification token.", Status: http.StatusBadRequest}
}

func errTokenRequired() *Error {
	return &Error{Field: FieldToken, Code: CodeTokenRequired, Message: "A verification token is required.", Status: http.StatusBadRequest}
}

func errInvalidSession() *Error {
	return &Error{Field: FieldEmail, Code: CodeInvalidSession, Message: "Invalid verification session.", Status: http.StatusBadRequest}
}

func errUserNotFound(field string) *Error {
	return &Error{Field: field, Code: CodeUserNotFound, Message: "User not found.", Status: http.StatusNotFound}
}

func errInvalidCode() *Error {
	return &Error{Field: FieldOTP, Code: CodeInvalidCode, Message: "Invalid verification code.", Status: http.StatusBadRequest}
}

func errExpired() *Error {
	return &Error{Field: FieldOTP, Code: CodeExpired, Message: "Verification code has expired.", Status: http.StatusBadRequest}
}
