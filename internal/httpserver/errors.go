package httpserver

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/chopchop_pos/internal/logging"
	"github.com/Skotchmaster/chopchop_pos/internal/service"
	"github.com/Skotchmaster/chopchop_pos/internal/transport"
)

const (
	msgUnexpected = "An unexpected error occurred"
	msgValidation = "Validation failed"
)

// ErrorHandler renders every error in the response envelope. Field errors
// carry their field map in data; anything that is not an HTTP error becomes a
// generic 500.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	msg := msgUnexpected
	var data any

	var fe service.FieldErrors
	var he *echo.HTTPError
	switch {
	case errors.As(err, &fe):
		status, msg, data = http.StatusBadRequest, msgValidation, map[string]string(fe)
	case errors.As(err, &he):
		status = he.Code
		if status < http.StatusInternalServerError {
			msg = fmt.Sprint(he.Message)
		}
	default:
		logging.FromContext(c.Request().Context()).Error("unhandled_error", "error", err)
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(status)
		return
	}
	_ = c.JSON(status, transport.Fail(msg, data))
}

// fail logs err under op and converts it into the HTTP error for its class.
func fail(l *slog.Logger, op string, err error) error {
	status, msg := classify(err)
	if status >= http.StatusInternalServerError {
		l.Error(op+"_error", "status", status, "error", err)
	} else {
		l.Warn(op+"_error", "status", status, "reason", msg, "error", err)
	}
	return echo.NewHTTPError(status, msg).SetInternal(err)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest, detail(err, msgValidation)
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid username or password"
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized, "Authentication required"
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, "Access denied"
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, detail(err, "Resource not found")
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict, detail(err, "Resource already exists")
	case errors.Is(err, service.ErrBusinessRule):
		return http.StatusUnprocessableEntity, detail(err, "Request violates a business rule")
	}
	return http.StatusInternalServerError, msgUnexpected
}

// detail turns "not found: order 5" into "Not found: order 5".
func detail(err error, fallback string) string {
	s := err.Error()
	if s == "" {
		return fallback
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func badBody(l *slog.Logger, op string, err error) error {
	l.Warn(op+"_error", "status", http.StatusBadRequest, "reason", "invalid body", "error", err)
	return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
}

func idParam(c echo.Context, name string) (uint, error) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || v == 0 {
		return 0, service.FieldErrors{name: name + " must be a positive integer"}
	}
	return uint(v), nil
}

func ok(c echo.Context, status int, msg string, data any) error {
	return c.JSON(status, transport.OK(msg, data))
}
