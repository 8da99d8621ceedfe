package models

import "time"

// BookRating is a single user's rating of a book, at most one per (book, user).
type BookRating struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	BookID    string    `json:"book_id" gorm:"type:varchar(36);not null;uniqueIndex:idx_book_rating_book_user"`
	UserID    string    `json:"user_id" gorm:"type:varchar(36);not null;uniqueIndex:idx_book_rating_book_user"`
	Rating    float64   `json:"rating" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
}
