package middleware

import (
	"errors"
	"strings"

	"bookshelf/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

const principalKey = "principal"

// TokenAuthenticator resolves a raw bearer token into a principal.
type TokenAuthenticator interface {
	Authenticate(raw string) (*services.Principal, error)
}

// Authenticate is a fail-open Fiber middleware: a valid bearer token stores
// the principal in the request locals, anything else leaves the request
// anonymous and lets Authorize decide.
func Authenticate(auth TokenAuthenticator, logger logrus.FieldLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := BearerToken(c)
		if raw == "" {
			return c.Next()
		}

		principal, err := auth.Authenticate(raw)
		if err != nil {
			if !errors.Is(err, services.ErrInvalidToken) {
				logger.WithError(err).Warn("token authentication failed")
			}
			return c.Next()
		}

		c.Locals(principalKey, principal)
		return c.Next()
	}
}

// BearerToken extracts the token of an "Authorization: Bearer <token>" header.
// It returns "" when the header is absent or malformed.
func BearerToken(c *fiber.Ctx) string {
	header := c.Get(fiber.HeaderAuthorization)
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// PrincipalFrom returns the principal stored by Authenticate, or nil.
func PrincipalFrom(c *fiber.Ctx) *services.Principal {
	p, _ := c.Locals(principalKey).(*services.Principal)
	return p
}

// ClearPrincipal drops the principal of the current request.
func ClearPrincipal(c *fiber.Ctx) {
	c.Locals(principalKey, nil)
}
