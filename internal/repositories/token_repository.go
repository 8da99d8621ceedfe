package repositories

import "bookshelf/internal/models"

// TokenRepository defines the interface for the issued-token ledger.
type TokenRepository interface {
	Create(token *models.Token) error
	FindByToken(raw string) (*models.Token, error)
	FindAllValidByUser(userID string) ([]models.Token, error)
	// RevokeAllByUser flags every valid token of the user as expired and
	// revoked and returns how many rows changed.
	RevokeAllByUser(userID string) (int64, error)
	Delete(id string) error
}
