package repositories

import "bookshelf/internal/models"

// BookRepository defines the interface for book and rating data access.
type BookRepository interface {
	Find(filter models.BookFilter) ([]models.Book, error)
	GetByID(id string) (*models.Book, error)
	// GetByIDForUpdate is GetByID with a row lock held until the surrounding
	// transaction ends.
	GetByIDForUpdate(id string) (*models.Book, error)
	ExistsByTitle(title string) (bool, error)
	Create(book *models.Book) error
	Update(book *models.Book) error
	Delete(id string) error

	FindRating(bookID, userID string) (*models.BookRating, error)
	CreateRating(rating *models.BookRating) error
	ListRatings(bookID string) ([]models.BookRating, error)
	DeleteRatings(bookID string) error

	// Transaction runs fn against a repository bound to a single transaction.
	// A non-nil error from fn rolls the transaction back.
	Transaction(fn func(repo BookRepository) error) error
}
