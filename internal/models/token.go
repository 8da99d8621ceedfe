package models

import "time"

// TokenTypeBearer is the only token type issued.
const TokenTypeBearer = "BEARER"

// Token is a ledger entry for an issued JWT. Once Expired or Revoked is set
// it is never cleared again.
type Token struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Token     string    `json:"token" gorm:"uniqueIndex;type:varchar(2048);not null"`
	TokenType string    `json:"token_type" gorm:"type:varchar(16);not null;default:BEARER"`
	Expired   bool      `json:"expired" gorm:"not null;default:false"`
	Revoked   bool      `json:"revoked" gorm:"not null;default:false"`
	UserID    string    `json:"user_id" gorm:"index;type:varchar(36);not null"`
	User      *User     `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time `json:"created_at"`
}

// Valid reports whether the token is neither expired nor revoked.
func (t *Token) Valid() bool {
	return !t.Expired && !t.Revoked
}
