package services

import "bookshelf/internal/models"

// Principal is the authenticated caller, extracted once per request and
// passed explicitly to the operations that need it.
type Principal struct {
	UserID   string
	Username string
	Role     models.Role
}

// HasRole reports whether the principal holds one of roles.
func (p *Principal) HasRole(roles ...models.Role) bool {
	if p == nil {
		return false
	}
	for _, r := range roles {
		if p.Role == r {
			return true
		}
	}
	return false
}
