package middleware

// identity.go resolves who is placing or releasing seat holds.  Holds may
// come from authenticated users (Bearer token issued by the surrounding
// platform) or from anonymous public-registration flows that carry an
// opaque reservation key instead.  The middleware never requires a
// token: it only rejects tokens that are present but invalid.

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const (
	ctxUserID    = "user_id"
	ctxUserEmail = "user_email"
)

// ResolveIdentity returns an Echo middleware that parses an optional
// Bearer access token and injects the caller's user ID and email into
// the request context.  Requests without an Authorization header pass
// through untouched (anonymous checkout); requests with a malformed or
// forged token are rejected with 401.  When secret is empty the
// middleware is a no-op and every caller is treated as anonymous.
func ResolveIdentity(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if secret == "" || !strings.HasPrefix(auth, "Bearer ") {
				return next(c)
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, echo.ErrUnauthorized
				}
				return []byte(secret), nil
			})
			if err != nil || !tok.Valid {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}

			claims, ok := tok.Claims.(jwt.MapClaims)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
			}

			if id, ok := claimUint64(claims, "sub"); ok {
				c.Set(ctxUserID, id)
			}
			if email, ok := claims["email"].(string); ok && email != "" {
				c.Set(ctxUserEmail, email)
			}
			return next(c)
		}
	}
}

// CurrentUser extracts the authenticated user's ID and email from the
// context.  Both are zero-valued for anonymous callers.
func CurrentUser(c echo.Context) (id *uint64, email string) {
	if v, ok := c.Get(ctxUserID).(uint64); ok {
		id = &v
	}
	if v, ok := c.Get(ctxUserEmail).(string); ok {
		email = v
	}
	return id, email
}

// claimUint64 reads a numeric claim that may arrive as a JSON number or
// a string, which varies across token issuers.
func claimUint64(claims jwt.MapClaims, key string) (uint64, bool) {
	switch v := claims[key].(type) {
	case float64:
		if v > 0 {
			return uint64(v), true
		}
	case string:
		if n, err := strconv.ParseUint(v, 10, 64); err == nil && n > 0 {
			return n, true
		}
	}
	return 0, false
}

// holderID returns a stable identity string for rate-limit keying: the
// user ID when authenticated, otherwise "anon".
func holderID(c echo.Context) string {
	if v, ok := c.Get(ctxUserID).(uint64); ok {
		return strconv.FormatUint(v, 10)
	}
	return "anon"
}
