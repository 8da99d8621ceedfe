package repositories

import (
	"errors"
	"fmt"

	"bookshelf/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMTokenRepository is a GORM implementation of TokenRepository.
type GORMTokenRepository struct {
	db *gorm.DB
}

// NewGORMTokenRepository creates a new instance of GORMTokenRepository.
func NewGORMTokenRepository(db *gorm.DB) *GORMTokenRepository {
	return &GORMTokenRepository{
		db: db,
	}
}

// Create stores a newly issued token.
func (r *GORMTokenRepository) Create(token *models.Token) error {
	if token.ID == "" {
		token.ID = uuid.New().String()
	}
	if token.TokenType == "" {
		token.TokenType = models.TokenTypeBearer
	}
	if err := r.db.Create(token).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("token for user %s: %w", token.UserID, ErrDuplicate)
		}
		return fmt.Errorf("failed to create token: %w", err)
	}
	return nil
}

// FindByToken looks a token up by its raw bearer string.
func (r *GORMTokenRepository) FindByToken(raw string) (*models.Token, error) {
	var token models.Token
	if err := r.db.First(&token, "token = ?", raw).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("token: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find token: %w", err)
	}
	return &token, nil
}

// FindAllValidByUser returns the user's tokens that are neither expired nor revoked.
func (r *GORMTokenRepository) FindAllValidByUser(userID string) ([]models.Token, error) {
	var tokens []models.Token
	err := r.db.
		Where("user_id = ? AND expired = ? AND revoked = ?", userID, false, false).
		Find(&tokens).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list valid tokens for user %s: %w", userID, err)
	}
	return tokens, nil
}

// RevokeAllByUser flags all of the user's valid tokens in a single statement.
func (r *GORMTokenRepository) RevokeAllByUser(userID string) (int64, error) {
	res := r.db.Model(&models.Token{}).
		Where("user_id = ? AND expired = ? AND revoked = ?", userID, false, false).
		Updates(map[string]interface{}{"expired": true, "revoked": true})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to revoke tokens for user %s: %w", userID, res.Error)
	}
	return res.RowsAffected, nil
}

// Delete removes a token row.
func (r *GORMTokenRepository) Delete(id string) error {
	res := r.db.Delete(&models.Token{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete token: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("token %s: %w", id, ErrNotFound)
	}
	return nil
}
