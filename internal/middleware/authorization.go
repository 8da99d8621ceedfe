package middleware

import (
	"strings"

	"bookshelf/internal/models"

	"github.com/gofiber/fiber/v2"
)

// Rule grants access to requests whose method and path prefix match.
// A public rule admits anonymous callers; otherwise the principal must hold
// one of Roles, or any role when Roles is empty.
type Rule struct {
	Method string
	Prefix string
	Public bool
	Roles  []models.Role
}

func (r Rule) matches(method, path string) bool {
	if r.Method != "" && r.Method != method {
		return false
	}
	// The router matches paths case-insensitively, so the table must too.
	path, prefix := strings.ToLower(path), strings.ToLower(r.Prefix)
	return path == prefix || strings.HasPrefix(path, strings.TrimSuffix(prefix, "/")+"/")
}

// DefaultRules is the access table of the HTTP API. The first matching rule
// wins; unmatched requests require an authenticated principal.
var DefaultRules = []Rule{
	{Method: fiber.MethodPost, Prefix: "/api/auth/register", Public: true},
	{Method: fiber.MethodPost, Prefix: "/api/auth/login", Public: true},
	{Method: fiber.MethodPost, Prefix: "/api/auth/logout", Public: true},
	{Method: fiber.MethodGet, Prefix: "/api/v1/books", Public: true},
	{Method: fiber.MethodPost, Prefix: "/api/v1/books/add", Roles: []models.Role{models.RoleAdmin}},
	{Method: fiber.MethodPatch, Prefix: "/api/v1/books/update", Roles: []models.Role{models.RoleAdmin}},
	{Method: fiber.MethodDelete, Prefix: "/api/v1/books/delete", Roles: []models.Role{models.RoleAdmin}},
	{Method: fiber.MethodPost, Prefix: "/api/v1/books/rate", Roles: []models.Role{models.RoleUser, models.RoleAdmin}},
}

// Authorize enforces rules before the request reaches a handler. It must run
// after Authenticate.
func Authorize(rules []Rule) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rule, found := lookup(rules, c.Method(), c.Path())
		if found && rule.Public {
			return c.Next()
		}

		principal := PrincipalFrom(c)
		if principal == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Authentication required",
			})
		}
		if found && len(rule.Roles) > 0 && !principal.HasRole(rule.Roles...) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"message": "Access denied",
			})
		}
		return c.Next()
	}
}

func lookup(rules []Rule, method, path string) (Rule, bool) {
	for _, r := range rules {
		if r.matches(method, path) {
			return r, true
		}
	}
	return Rule{}, false
}
