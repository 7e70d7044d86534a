// Package httperr defines the error kinds handlers and services return and
// the single place they are mapped to HTTP responses.
package httperr

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

var (
	ErrValidation   = errors.New("validation")   // 400
	ErrUnauthorized = errors.New("unauthorized") // 401
	ErrForbidden    = errors.New("forbidden")    // 403
	ErrNotFound     = errors.New("not found")    // 404
	ErrConflict     = errors.New("conflict")     // 409
	// ErrIntegrity marks a signature or amount mismatch during payment
	// verification. It maps to 400 but is logged as a potential-fraud signal.
	ErrIntegrity = errors.New("integrity")
)

func Status(err error) int {
	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, ErrIntegrity):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

var sentinels = []error{ErrValidation, ErrUnauthorized, ErrForbidden, ErrNotFound, ErrConflict, ErrIntegrity}

// Message returns the client-facing text for err. Wrapped sentinels read
// "validation: quantity must be at least 1" internally; the label is the
// status code's job, so only the detail goes out.
func Message(err error) string {
	msg := err.Error()
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return strings.TrimPrefix(msg, s.Error()+": ")
		}
	}
	return msg
}

type response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Handler is the echo HTTPErrorHandler for the whole app. Every failure
// surfaces as {success:false, message}; internals are never leaked to the
// client for 5xx.
func Handler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := Status(err)
	msg := Message(err)

	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		if s, ok := he.Message.(string); ok {
			msg = s
		}
	}

	if status == http.StatusInternalServerError {
		msg = "internal error"
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(status)
		return
	}
	_ = c.JSON(status, response{Success: false, Message: msg})
}
