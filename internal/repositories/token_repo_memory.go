package repositories

import (
	"fmt"
	"sync"
	"time"

	"bookshelf/internal/models"

	"github.com/google/uuid"
)

// MemoryTokenRepository is an in-memory implementation of TokenRepository.
type MemoryTokenRepository struct {
	tokens map[string]models.Token
	mu     sync.RWMutex
}

// NewMemoryTokenRepository creates a new instance of MemoryTokenRepository.
func NewMemoryTokenRepository() *MemoryTokenRepository {
	return &MemoryTokenRepository{
		tokens: make(map[string]models.Token),
	}
}

// Create adds a new token.
func (r *MemoryTokenRepository) Create(token *models.Token) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, t := range r.tokens {
		if t.Token == token.Token {
			return fmt.Errorf("token for user %s: %w", token.UserID, ErrDuplicate)
		}
	}
	if token.ID == "" {
		token.ID = uuid.New().String()
	}
	if token.TokenType == "" {
		token.TokenType = models.TokenTypeBearer
	}
	token.CreatedAt = time.Now()
	r.tokens[token.ID] = *token
	return nil
}

// FindByToken returns the token with the given raw string.
func (r *MemoryTokenRepository) FindByToken(raw string) (*models.Token, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, t := range r.tokens {
		if t.Token == raw {
			found := t
			return &found, nil
		}
	}
	return nil, fmt.Errorf("token: %w", ErrNotFound)
}

// FindAllValidByUser returns the user's valid tokens.
func (r *MemoryTokenRepository) FindAllValidByUser(userID string) ([]models.Token, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var valid []models.Token
	for _, t := range r.tokens {
		if t.UserID == userID && t.Valid() {
			valid = append(valid, t)
		}
	}
	return valid, nil
}

// RevokeAllByUser flags the user's valid tokens as expired and revoked.
func (r *MemoryTokenRepository) RevokeAllByUser(userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, t := range r.tokens {
		if t.UserID == userID && t.Valid() {
			t.Expired = true
			t.Revoked = true
			r.tokens[id] = t
			n++
		}
	}
	return n, nil
}

// Delete removes a token by ID.
func (r *MemoryTokenRepository) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tokens[id]; !ok {
		return fmt.Errorf("token %s: %w", id, ErrNotFound)
	}
	delete(r.tokens, id)
	return nil
}
