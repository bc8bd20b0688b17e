package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
)

// SecurityHeaders sets defensive response headers for a JSON API. Responses
// under publicPrefix may be cached briefly by browsers since the documents
// they expose never change; everything else is no-store.
func SecurityHeaders(hsts bool, publicPrefix string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()

			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("X-XSS-Protection", "0")
			h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
			h.Set("Referrer-Policy", "no-referrer")
			h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")

			if hsts {
				h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}

			if publicPrefix != "" && strings.HasPrefix(c.Request().URL.Path, publicPrefix) {
				h.Set("Cache-Control", "public, max-age=300")
			} else {
				h.Set("Cache-Control", "no-store")
			}

			return next(c)
		}
	}
}
