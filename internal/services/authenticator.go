package services

import (
	"errors"
	"fmt"

	"bookshelf/internal/repositories"
)

// Authenticator verifies a username/password pair.
type Authenticator interface {
	Authenticate(username, password string) error
}

// CredentialsAuthenticator checks credentials against the user store. Unknown
// users and wrong passwords both yield ErrInvalidCredentials.
type CredentialsAuthenticator struct {
	users  repositories.UserRepository
	hasher PasswordHasher
}

// NewCredentialsAuthenticator creates a CredentialsAuthenticator.
func NewCredentialsAuthenticator(users repositories.UserRepository, hasher PasswordHasher) *CredentialsAuthenticator {
	return &CredentialsAuthenticator{users: users, hasher: hasher}
}

// Authenticate returns nil when password matches the stored hash.
func (a *CredentialsAuthenticator) Authenticate(username, password string) error {
	user, err := a.users.GetByUsername(username)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrInvalidCredentials
		}
		return fmt.Errorf("failed to load user: %w", err)
	}

	ok, err := a.hasher.Verify(user.Password, password)
	if err != nil {
		return fmt.Errorf("failed to verify password: %w", err)
	}
	if !ok {
		return ErrInvalidCredentials
	}
	return nil
}
