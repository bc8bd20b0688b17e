package apperr

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// HTTP converts a service error into the echo error the handler returns.
// Unknown errors become a 500 without leaking their text.
func HTTP(err error) *echo.HTTPError {
	if err == nil {
		return nil
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}

	if ve, ok := AsValidation(err); ok {
		return echo.NewHTTPError(http.StatusBadRequest, map[string]interface{}{
			"error":  "validation failed",
			"fields": ve.Fields,
		})
	}

	var pe *ProfileIncompleteError
	if errors.As(err, &pe) {
		return echo.NewHTTPError(http.StatusPreconditionFailed, map[string]interface{}{
			"error":          "complete your profile before issuing documents",
			"missing_fields": pe.Missing,
		})
	}

	switch {
	case errors.Is(err, ErrProfileIncomplete):
		return echo.NewHTTPError(http.StatusPreconditionFailed, "complete your profile before issuing documents")
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "resource not found")
	case errors.Is(err, ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, "operation not allowed in the current state")
	case errors.Is(err, ErrUnauthenticated):
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error").SetInternal(err)
}
