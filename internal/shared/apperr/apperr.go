// Package apperr holds the error taxonomy shared by services and HTTP handlers.
package apperr

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
)

var (
	ErrInvalid         = errors.New("invalid input")
	ErrUnauthenticated = errors.New("not signed in")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
)

// ValidationError carries a user-visible inline message.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return ErrInvalid }

func Invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// Status maps an error to the HTTP status a handler should answer with.
func Status(err error) int {
	switch {
	case err == nil:
		return fiber.StatusOK
	case errors.Is(err, ErrInvalid):
		return fiber.StatusBadRequest
	case errors.Is(err, ErrUnauthenticated):
		return fiber.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return fiber.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return fiber.StatusNotFound
	default:
		return fiber.StatusInternalServerError
	}
}

// Fiber converts err into a *fiber.Error. Backend failures are reported
// with a generic message; the detail belongs in the log, not the response.
func Fiber(err error) error {
	status := Status(err)
	if status == fiber.StatusInternalServerError {
		return fiber.NewError(status, "request failed")
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return fiber.NewError(status, ve.Message)
	}
	return fiber.NewError(status, strings.TrimSpace(err.Error()))
}
