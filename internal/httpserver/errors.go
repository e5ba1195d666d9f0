package httpserver

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/service"
)

// serviceError logs err under event and maps the service sentinels onto an
// HTTP status. Anything unrecognised is a 500 with a generic message.
func serviceError(l *slog.Logger, event string, err error) error {
	status, msg := http.StatusInternalServerError, "internal error"
	switch {
	case errors.Is(err, service.ErrValidation):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrInvalidCredentials):
		status, msg = http.StatusUnauthorized, "invalid email or password"
	case errors.Is(err, service.ErrInvalidRefreshToken):
		status, msg = http.StatusUnauthorized, "invalid refresh token"
	case errors.Is(err, service.ErrNotFound):
		status, msg = http.StatusNotFound, err.Error()
	case errors.Is(err, service.ErrConflict), errors.Is(err, service.ErrInvalidTransition):
		status, msg = http.StatusConflict, err.Error()
	case errors.Is(err, service.ErrUpstream):
		status, msg = http.StatusBadGateway, "payment provider unavailable"
	case errors.Is(err, service.ErrUnavailable):
		status, msg = http.StatusServiceUnavailable, err.Error()
	}

	if status >= http.StatusInternalServerError {
		l.Error(event, "status", status, "error", err)
	} else {
		l.Warn(event, "status", status, "reason", msg, "error", err)
	}
	return echo.NewHTTPError(status, msg)
}
