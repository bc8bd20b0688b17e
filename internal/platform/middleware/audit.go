package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/rdv/rdv/internal/platform/auth"
)

// AuditEntry records who touched which record and how.
type AuditEntry struct {
	PractitionerID string
	Resource       string
	ResourceID     string
	Action         string // read, create, update, delete, verify
	IPAddress      string
	UserAgent      string
	Path           string
	Method         string
	RequestID      string
	StatusCode     int
	Timestamp      time.Time
}

// AuditRecorder persists audit entries somewhere other than the log.
type AuditRecorder interface {
	RecordAccess(entry AuditEntry) error
}

type AuditRecorderFunc func(entry AuditEntry) error

func (f AuditRecorderFunc) RecordAccess(entry AuditEntry) error {
	return f(entry)
}

// Audit logs every request under /api/v1/ and /public/ after it completes.
// Public lookups are logged with the verify action and no practitioner.
func Audit(logger zerolog.Logger, recorder AuditRecorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			path := req.URL.Path
			public := strings.HasPrefix(path, "/public/")
			if !public && !strings.HasPrefix(path, "/api/v1/") {
				return next(c)
			}

			err := next(c)

			entry := AuditEntry{
				Timestamp:  time.Now().UTC(),
				Path:       path,
				Method:     req.Method,
				IPAddress:  c.RealIP(),
				UserAgent:  req.UserAgent(),
				StatusCode: c.Response().Status,
			}
			if he, ok := err.(*echo.HTTPError); ok {
				entry.StatusCode = he.Code
			}
			// Auth runs on the route group, after this middleware, and swaps the
			// request; read the identity from the request it left behind.
			entry.PractitionerID = auth.PractitionerIDFromContext(c.Request().Context())
			if entry.PractitionerID == "" {
				entry.PractitionerID, _ = c.Get("practitioner_id").(string)
			}
			entry.RequestID, _ = c.Get("request_id").(string)
			entry.Resource, entry.ResourceID = resourceFromPath(path)
			entry.Action = actionFor(req.Method)
			if public {
				entry.Action = "verify"
			}

			if recorder != nil {
				if recErr := recorder.RecordAccess(entry); recErr != nil {
					logger.Error().Err(recErr).Str("request_id", entry.RequestID).Msg("failed to record audit entry")
				}
			}

			logger.Info().
				Str("type", "access_audit").
				Str("request_id", entry.RequestID).
				Str("practitioner_id", entry.PractitionerID).
				Str("resource", entry.Resource).
				Str("resource_id", entry.ResourceID).
				Str("action", entry.Action).
				Str("method", entry.Method).
				Str("path", entry.Path).
				Str("remote_ip", entry.IPAddress).
				Int("status", entry.StatusCode).
				Msg("access")

			return err
		}
	}
}

func actionFor(method string) string {
	switch method {
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	default:
		return "read"
	}
}

// resourceFromPath returns the first path segment after the API prefix and
// the first identifier-looking segment after it. Public codes count as
// identifiers.
//
//	/api/v1/tutors/<id>/patients -> tutors, <id>
//	/public/documents/<code>     -> documents, <code>
func resourceFromPath(path string) (string, string) {
	trimmed := strings.TrimPrefix(strings.TrimPrefix(path, "/api/v1/"), "/public/")
	segments := strings.Split(strings.Trim(trimmed, "/"), "/")
	if len(segments) == 0 || segments[0] == "" {
		return "unknown", ""
	}
	for _, s := range segments[1:] {
		if _, err := uuid.Parse(s); err == nil {
			return segments[0], s
		}
	}
	return segments[0], ""
}
