package repositories

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"bookshelf/internal/models"

	"github.com/google/uuid"
)

// MemoryBookRepository is an in-memory implementation of BookRepository.
type MemoryBookRepository struct {
	books   map[string]models.Book
	ratings map[string]models.BookRating
	mu      sync.RWMutex
	// txMu serializes Transaction callers; there is no rollback.
	txMu sync.Mutex
}

// NewMemoryBookRepository creates a new instance of MemoryBookRepository.
func NewMemoryBookRepository() *MemoryBookRepository {
	return &MemoryBookRepository{
		books:   make(map[string]models.Book),
		ratings: make(map[string]models.BookRating),
	}
}

// Find returns the books matching the filter, ordered by title.
func (r *MemoryBookRepository) Find(filter models.BookFilter) ([]models.Book, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	books := make([]models.Book, 0, len(r.books))
	for _, b := range r.books {
		if filter.Title != nil && !containsFold(b.Title, *filter.Title) {
			continue
		}
		if filter.Author != nil && !containsFold(b.Author, *filter.Author) {
			continue
		}
		if filter.Year != nil && b.Year != *filter.Year {
			continue
		}
		if filter.Rating != nil && b.Rating != *filter.Rating {
			continue
		}
		books = append(books, b)
	}
	sort.Slice(books, func(i, j int) bool { return books[i].Title < books[j].Title })
	return books, nil
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// GetByID returns a book by its ID.
func (r *MemoryBookRepository) GetByID(id string) (*models.Book, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	book, ok := r.books[id]
	if !ok {
		return nil, fmt.Errorf("book %s: %w", id, ErrNotFound)
	}
	return &book, nil
}

// GetByIDForUpdate is GetByID; exclusion comes from Transaction.
func (r *MemoryBookRepository) GetByIDForUpdate(id string) (*models.Book, error) {
	return r.GetByID(id)
}

// ExistsByTitle reports whether the title is taken.
func (r *MemoryBookRepository) ExistsByTitle(title string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, b := range r.books {
		if b.Title == title {
			return true, nil
		}
	}
	return false, nil
}

// Create adds a new book.
func (r *MemoryBookRepository) Create(book *models.Book) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, b := range r.books {
		if b.Title == book.Title {
			return fmt.Errorf("book %q: %w", book.Title, ErrDuplicate)
		}
	}
	if book.ID == "" {
		book.ID = uuid.New().String()
	}
	now := time.Now()
	book.CreatedAt = now
	book.UpdatedAt = now
	r.books[book.ID] = *book
	return nil
}

// Update replaces an existing book.
func (r *MemoryBookRepository) Update(book *models.Book) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.books[book.ID]; !ok {
		return fmt.Errorf("book %s: %w", book.ID, ErrNotFound)
	}
	for id, b := range r.books {
		if id != book.ID && b.Title == book.Title {
			return fmt.Errorf("book %q: %w", book.Title, ErrDuplicate)
		}
	}
	book.UpdatedAt = time.Now()
	r.books[book.ID] = *book
	return nil
}

// Delete removes a book by its ID.
func (r *MemoryBookRepository) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.books[id]; !ok {
		return fmt.Errorf("book %s: %w", id, ErrNotFound)
	}
	delete(r.books, id)
	return nil
}

// FindRating returns the rating a user gave a book.
func (r *MemoryBookRepository) FindRating(bookID, userID string) (*models.BookRating, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, rt := range r.ratings {
		if rt.BookID == bookID && rt.UserID == userID {
			found := rt
			return &found, nil
		}
	}
	return nil, fmt.Errorf("rating of book %s by %s: %w", bookID, userID, ErrNotFound)
}

// CreateRating adds a rating, one per (book, user).
func (r *MemoryBookRepository) CreateRating(rating *models.BookRating) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, rt := range r.ratings {
		if rt.BookID == rating.BookID && rt.UserID == rating.UserID {
			return fmt.Errorf("rating of book %s by %s: %w", rating.BookID, rating.UserID, ErrDuplicate)
		}
	}
	if rating.ID == "" {
		rating.ID = uuid.New().String()
	}
	rating.CreatedAt = time.Now()
	r.ratings[rating.ID] = *rating
	return nil
}

// ListRatings returns every rating of a book.
func (r *MemoryBookRepository) ListRatings(bookID string) ([]models.BookRating, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var ratings []models.BookRating
	for _, rt := range r.ratings {
		if rt.BookID == bookID {
			ratings = append(ratings, rt)
		}
	}
	return ratings, nil
}

// DeleteRatings removes every rating of a book.
func (r *MemoryBookRepository) DeleteRatings(bookID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, rt := range r.ratings {
		if rt.BookID == bookID {
			delete(r.ratings, id)
		}
	}
	return nil
}

// Transaction runs fn while holding the repository's transaction lock.
func (r *MemoryBookRepository) Transaction(fn func(repo BookRepository) error) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()
	return fn(r)
}
