package models

import "time"

// Book represents a catalog entry. Rating is the mean of all ratings and
// RatingCount the number of distinct raters.
type Book struct {
	ID          string       `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Title       string       `json:"title" gorm:"uniqueIndex;type:varchar(255);not null"`
	Author      string       `json:"author" gorm:"type:varchar(255);not null"`
	Year        int          `json:"year" gorm:"not null"`
	Rating      float64      `json:"rating" gorm:"not null;default:0"`
	RatingCount int64        `json:"rating_count" gorm:"not null;default:0"`
	Ratings     []BookRating `json:"-" gorm:"foreignKey:BookID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// BookFilter holds the optional list filters. Nil fields are ignored.
type BookFilter struct {
	Title  *string
	Author *string
	Year   *int
	Rating *float64
}

// BookPatch holds the fields of a partial update. Nil fields are left untouched.
type BookPatch struct {
	Title  *string `json:"title"`
	Author *string `json:"author"`
	Year   *int    `json:"year"`
}
