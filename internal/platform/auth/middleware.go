package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

type contextKey string

const (
	PractitionerIDKey contextKey = "practitioner_id"
	EmailKey          contextKey = "practitioner_email"
)

// Claims are the identity provider's access-token claims. Subject is the
// practitioner identifier.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
}

type JWTConfig struct {
	Issuer   string
	Audience string
	JWKSURL  string
	// SigningKey enables HS256 verification with a shared secret.
	SigningKey []byte
}

const defaultJWKSCacheTTL = 5 * time.Minute

func JWTMiddleware(cfg JWTConfig) echo.MiddlewareFunc {
	var keyfunc jwt.Keyfunc
	methods := []string{"HS256"}
	if len(cfg.SigningKey) > 0 {
		keyfunc = func(*jwt.Token) (interface{}, error) { return cfg.SigningKey, nil }
	} else {
		url := cfg.JWKSURL
		if url == "" {
			url = DefaultJWKSURL(cfg.Issuer)
		}
		keyfunc = NewJWKSCache(url, defaultJWKSCacheTTL).keyfunc()
		methods = []string{"RS256"}
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods(methods), jwt.WithExpirationRequired()}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	parser := jwt.NewParser(opts...)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			scheme, tokenStr, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(tokenStr) == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
			}

			claims := &Claims{}
			token, err := parser.ParseWithClaims(strings.TrimSpace(tokenStr), claims, keyfunc)
			if err != nil || !token.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}
			if claims.Subject == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "token has no subject")
			}

			c.SetRequest(c.Request().WithContext(WithIdentity(c.Request().Context(), claims.Subject, claims.Email)))
			c.Set("practitioner_id", claims.Subject)
			return next(c)
		}
	}
}

// DevAuthMiddleware lets unauthenticated requests through as a fixed
// development practitioner. Requests carrying a bearer token are verified
// with verify when it is non-nil.
func DevAuthMiddleware(practitionerID, email string, verify echo.MiddlewareFunc) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		verified := next
		if verify != nil {
			verified = verify(next)
		}
		return func(c echo.Context) error {
			if c.Request().Header.Get("Authorization") != "" {
				return verified(c)
			}
			c.SetRequest(c.Request().WithContext(WithIdentity(c.Request().Context(), practitionerID, email)))
			c.Set("practitioner_id", practitionerID)
			return next(c)
		}
	}
}

// WithIdentity stores the authenticated practitioner in ctx.
func WithIdentity(ctx context.Context, practitionerID, email string) context.Context {
	ctx = context.WithValue(ctx, PractitionerIDKey, practitionerID)
	return context.WithValue(ctx, EmailKey, email)
}

func PractitionerIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(PractitionerIDKey).(string)
	return id
}

func EmailFromContext(ctx context.Context) string {
	email, _ := ctx.Value(EmailKey).(string)
	return email
}

// Practitioner returns the caller's identifier or a 401 when the request
// carries none.
func Practitioner(c echo.Context) (string, error) {
	id := PractitionerIDFromContext(c.Request().Context())
	if id == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	return id, nil
}
