package repositories

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"bookshelf/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GORMBookRepository is a GORM implementation of BookRepository.
type GORMBookRepository struct {
	db *gorm.DB
}

// NewGORMBookRepository creates a new instance of GORMBookRepository.
func NewGORMBookRepository(db *gorm.DB) *GORMBookRepository {
	return &GORMBookRepository{
		db: db,
	}
}

// Find retrieves the books matching every non-nil filter field, ordered by title.
// Title and author match case-insensitive substrings.
func (r *GORMBookRepository) Find(filter models.BookFilter) ([]models.Book, error) {
	q := r.db.Model(&models.Book{})
	if filter.Title != nil {
		q = q.Where("LOWER(title) LIKE ?", "%"+strings.ToLower(*filter.Title)+"%")
	}
	if filter.Author != nil {
		q = q.Where("LOWER(author) LIKE ?", "%"+strings.ToLower(*filter.Author)+"%")
	}
	if filter.Year != nil {
		q = q.Where("year = ?", *filter.Year)
	}
	if filter.Rating != nil {
		q = q.Where("rating = ?", *filter.Rating)
	}

	books := []models.Book{}
	if err := q.Order("title ASC").Find(&books).Error; err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	return books, nil
}

// GetByID retrieves a single book by its ID.
func (r *GORMBookRepository) GetByID(id string) (*models.Book, error) {
	return r.get(r.db, id)
}

// GetByIDForUpdate retrieves a book and locks its row. SQLite ignores the
// locking clause and serializes writers instead.
func (r *GORMBookRepository) GetByIDForUpdate(id string) (*models.Book, error) {
	return r.get(r.db.Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *GORMBookRepository) get(db *gorm.DB, id string) (*models.Book, error) {
	var book models.Book
	if err := db.First(&book, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("book %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get book %s: %w", id, err)
	}
	return &book, nil
}

// ExistsByTitle reports whether a book with exactly this title exists.
func (r *GORMBookRepository) ExistsByTitle(title string) (bool, error) {
	var count int64
	if err := r.db.Model(&models.Book{}).Where("title = ?", title).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to count books: %w", err)
	}
	return count > 0, nil
}

// Create creates a new book in the database.
func (r *GORMBookRepository) Create(book *models.Book) error {
	if book.ID == "" {
		book.ID = uuid.New().String()
	}
	if err := r.db.Omit(clause.Associations).Create(book).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("book %q: %w", book.Title, ErrDuplicate)
		}
		return fmt.Errorf("failed to create book: %w", err)
	}
	return nil
}

// Update writes the mutable columns of an existing book.
func (r *GORMBookRepository) Update(book *models.Book) error {
	book.UpdatedAt = time.Now()
	res := r.db.Model(&models.Book{}).Where("id = ?", book.ID).Updates(map[string]interface{}{
		"title":        book.Title,
		"author":       book.Author,
		"year":         book.Year,
		"rating":       book.Rating,
		"rating_count": book.RatingCount,
		"updated_at":   book.UpdatedAt,
	})
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("book %q: %w", book.Title, ErrDuplicate)
		}
		return fmt.Errorf("failed to update book: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("book %s: %w", book.ID, ErrNotFound)
	}
	return nil
}

// Delete deletes a book row. Ratings must be removed first with DeleteRatings.
func (r *GORMBookRepository) Delete(id string) error {
	res := r.db.Delete(&models.Book{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete book: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("book %s: %w", id, ErrNotFound)
	}
	return nil
}

// FindRating returns the rating a user gave a book.
func (r *GORMBookRepository) FindRating(bookID, userID string) (*models.BookRating, error) {
	var rating models.BookRating
	err := r.db.First(&rating, "book_id = ? AND user_id = ?", bookID, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("rating of book %s by %s: %w", bookID, userID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find rating: %w", err)
	}
	return &rating, nil
}

// CreateRating inserts a rating row.
func (r *GORMBookRepository) CreateRating(rating *models.BookRating) error {
	if rating.ID == "" {
		rating.ID = uuid.New().String()
	}
	if err := r.db.Create(rating).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("rating of book %s by %s: %w", rating.BookID, rating.UserID, ErrDuplicate)
		}
		return fmt.Errorf("failed to create rating: %w", err)
	}
	return nil
}

// ListRatings returns every rating of a book.
func (r *GORMBookRepository) ListRatings(bookID string) ([]models.BookRating, error) {
	var ratings []models.BookRating
	if err := r.db.Where("book_id = ?", bookID).Find(&ratings).Error; err != nil {
		return nil, fmt.Errorf("failed to list ratings for book %s: %w", bookID, err)
	}
	return ratings, nil
}

// DeleteRatings removes every rating of a book.
func (r *GORMBookRepository) DeleteRatings(bookID string) error {
	if err := r.db.Where("book_id = ?", bookID).Delete(&models.BookRating{}).Error; err != nil {
		return fmt.Errorf("failed to delete ratings for book %s: %w", bookID, err)
	}
	return nil
}

// Transaction runs fn inside a database transaction.
func (r *GORMBookRepository) Transaction(fn func(repo BookRepository) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(NewGORMBookRepository(tx))
	})
}
