package apperror

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Error is a domain error carrying the HTTP status it should map to and the
// module it originated in. Services return these; controllers translate them
// into the JSON error envelope without inspecting message strings.
type Error struct {
	Status  int    `json:"-"`
	Module  string `json:"module"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// New creates a domain error with an HTTP status, module tag and message.
func New(status int, module, message string) *Error {
	return &Error{Status: status, Module: module, Message: message}
}

// Wrap attaches an underlying cause to a domain error.
func Wrap(status int, module, message string, err error) *Error {
	return &Error{Status: status, Module: module, Message: message, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Module, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Module, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// StatusOf returns the HTTP status for an error: the embedded status for a
// domain error, 500 for anything else.
func StatusOf(err error) int {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	return fiber.StatusInternalServerError
}

// MessageOf returns the client-facing message for an error. Non-domain
// errors get a generic message so internals never leak to clients.
func MessageOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "internal server error"
}
