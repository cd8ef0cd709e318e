/*
Package errs provides custom error types and application-level error code constants.

This file defines the CustomError struct, which implements the standard Go error interface
and includes a business code, a user-friendly message, and an HTTP status code for unified error reporting.
*/
package errs

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"roomchat/internal/pkg/logx"
)

// CustomError is the custom error structure used throughout the application.
// It wraps the Go error interface, adding a business code and HTTP status code.
type CustomError struct {
	// Code is the business error code (see constants definition).
	Code int

	// Message is the user-friendly error description.
	Message string

	// Status is the standard HTTP status code corresponding to this error.
	Status int
}

// Error implements the standard Go error interface. It returns a formatted
// error string containing the error code, HTTP status, and message.
func (e CustomError) Error() string {
	return fmt.Sprintf("Error Code %d (HTTP %d): %s", e.Code, e.Status, e.Message)
}

// isInternal reports whether code hides an internal cause from the client.
func isInternal(code int) bool {
	return code == ErrUnknown || code == ErrStorageFailed
}

// NewError constructs a *CustomError from a predefined error code.
// For internal codes the first detail may be the underlying error, which is
// logged and never shown to the client. For other codes the details fill the
// printf placeholders of the message template, such as the event name of
// ErrUnsupportedEvent. An unknown code yields ErrUnknown.
func NewError(code int, details ...any) *CustomError {
	customErr, ok := errorMap[code]
	if !ok {
		logx.Error(
			fmt.Errorf("error code %d is not registered", code),
			"Unknown error code requested",
			"requested_code", code,
		)
		customErr = errorMap[ErrUnknown]
		details = nil
	}

	if customErr.Status == 0 {
		customErr.Status = http.StatusOK
	}

	switch {
	case len(details) == 0:
	case isInternal(customErr.Code):
		if cause, ok := details[0].(error); ok {
			logx.Error(cause, "Handling internal error with underlying cause", "code", customErr.Code)
		}
	case strings.Contains(customErr.Message, "%"):
		customErr.Message = fmt.Sprintf(customErr.Message, details...)
	default:
		logx.Warn("Details provided for error without formatting placeholders. Details ignored.", "code", customErr.Code)
	}

	return &customErr
}

// HasCode reports whether err (or any error it wraps) is a CustomError carrying code.
func HasCode(err error, code int) bool {
	var customErr *CustomError
	if errors.As(err, &customErr) {
		return customErr.Code == code
	}
	return false
}

// From converts any error into a *CustomError. Errors that are not already
// CustomErrors are reported as ErrUnknown, with the cause logged.
func From(err error) *CustomError {
	if err == nil {
		return nil
	}

	var customErr *CustomError
	if errors.As(err, &customErr) {
		return customErr
	}

	return NewError(ErrUnknown, err)
}
