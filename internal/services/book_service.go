package services

import (
	"errors"
	"fmt"
	"strings"

	"bookshelf/internal/models"
	"bookshelf/internal/repositories"

	"github.com/sirupsen/logrus"
)

const (
	MsgBookCreated   = "Book created successfully"
	MsgBookUpdated   = "Book updated successfully"
	MsgBookUnchanged = "No changes detected, book not updated"
	MsgBookDeleted   = "Book deleted successfully"
	MsgBookRated     = "Book rated successfully"
)

// UserResolver resolves a principal into the stored user.
type UserResolver interface {
	CurrentUser(principal *Principal) (*models.User, error)
}

// BookInput carries the fields of a new book.
type BookInput struct {
	Title  string
	Author string
	Year   int
}

// BookService handles business logic related to books and ratings.
type BookService struct {
	repo      repositories.BookRepository
	users     UserResolver
	publisher EventPublisher
	logger    logrus.FieldLogger
}

// NewBookService creates a new BookService.
func NewBookService(repo repositories.BookRepository, users UserResolver, logger logrus.FieldLogger) *BookService {
	return &BookService{
		repo:   repo,
		users:  users,
		logger: logger,
	}
}

// SetPublisher enables domain event publication.
func (s *BookService) SetPublisher(p EventPublisher) {
	s.publisher = p
}

// List returns the books matching every filter that is set.
func (s *BookService) List(filter models.BookFilter) ([]models.Book, error) {
	return s.repo.Find(filter)
}

// Get returns a single book.
func (s *BookService) Get(id string) (*models.Book, error) {
	book, err := s.repo.GetByID(id)
	if err != nil {
		return nil, translateBookErr(err)
	}
	return book, nil
}

// Create adds a book with a zero rating.
func (s *BookService) Create(input BookInput) (*models.Book, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, invalid("title", "Title is mandatory")
	}
	if strings.TrimSpace(input.Author) == "" {
		return nil, invalid("author", "Author is mandatory")
	}

	exists, err := s.repo.ExistsByTitle(input.Title)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrDuplicateTitle
	}

	book := &models.Book{
		Title:       input.Title,
		Author:      input.Author,
		Year:        input.Year,
		Rating:      0.0,
		RatingCount: 0,
	}
	if err := s.repo.Create(book); err != nil {
		return nil, translateBookErr(err)
	}

	s.logger.WithFields(logrus.Fields{"book_id": book.ID, "title": book.Title}).Info("book created")
	publishEvent(s.publisher, s.logger, EventBookCreated, map[string]interface{}{
		"bookID": book.ID,
		"title":  book.Title,
	})
	return book, nil
}

// Update applies the non-nil fields of patch that differ from the stored
// values. It reports false when nothing changed.
func (s *BookService) Update(id string, patch models.BookPatch) (bool, error) {
	var updated bool
	err := s.repo.Transaction(func(repo repositories.BookRepository) error {
		book, err := repo.GetByIDForUpdate(id)
		if err != nil {
			return err
		}

		if patch.Title != nil && *patch.Title != book.Title {
			if strings.TrimSpace(*patch.Title) == "" {
				return invalid("title", "Title cannot be blank")
			}
			taken, err := repo.ExistsByTitle(*patch.Title)
			if err != nil {
				return err
			}
			if taken {
				return ErrDuplicateTitle
			}
			book.Title = *patch.Title
			updated = true
		}
		if patch.Author != nil && *patch.Author != book.Author {
			if strings.TrimSpace(*patch.Author) == "" {
				return invalid("author", "Author cannot be blank")
			}
			book.Author = *patch.Author
			updated = true
		}
		if patch.Year != nil && *patch.Year != book.Year {
			book.Year = *patch.Year
			updated = true
		}

		if !updated {
			return nil
		}
		return repo.Update(book)
	})
	if err != nil {
		return false, translateBookErr(err)
	}

	if updated {
		s.logger.WithField("book_id", id).Info("book updated")
		publishEvent(s.publisher, s.logger, EventBookUpdated, map[string]interface{}{"bookID": id})
	}
	return updated, nil
}

// Delete removes a book and its ratings in one transaction.
func (s *BookService) Delete(id string) error {
	err := s.repo.Transaction(func(repo repositories.BookRepository) error {
		if _, err := repo.GetByIDForUpdate(id); err != nil {
			return err
		}
		if err := repo.DeleteRatings(id); err != nil {
			return err
		}
		return repo.Delete(id)
	})
	if err != nil {
		return translateBookErr(err)
	}

	s.logger.WithField("book_id", id).Info("book deleted")
	publishEvent(s.publisher, s.logger, EventBookDeleted, map[string]interface{}{"bookID": id})
	return nil
}

// Rate records the caller's rating of a book and recomputes the book's
// average and distinct-rater count from all of its ratings.
func (s *BookService) Rate(principal *Principal, bookID string, value float64) (*models.Book, error) {
	user, err := s.users.CurrentUser(principal)
	if err != nil {
		return nil, err
	}

	var rated *models.Book
	err = s.repo.Transaction(func(repo repositories.BookRepository) error {
		book, err := repo.GetByIDForUpdate(bookID)
		if err != nil {
			return err
		}
		if err := ValidateRating(value); err != nil {
			return err
		}

		if _, err := repo.FindRating(bookID, user.ID); err == nil {
			return ErrAlreadyRated
		} else if !errors.Is(err, repositories.ErrNotFound) {
			return err
		}

		if err := repo.CreateRating(&models.BookRating{
			BookID: bookID,
			UserID: user.ID,
			Rating: value,
		}); err != nil {
			if errors.Is(err, repositories.ErrDuplicate) {
				return ErrAlreadyRated
			}
			return err
		}

		ratings, err := repo.ListRatings(bookID)
		if err != nil {
			return err
		}
		book.Rating, book.RatingCount = AggregateRatings(ratings)
		if err := repo.Update(book); err != nil {
			return err
		}
		rated = book
		return nil
	})
	if err != nil {
		return nil, translateBookErr(err)
	}

	s.logger.WithFields(logrus.Fields{
		"book_id": bookID,
		"user_id": user.ID,
		"rating":  rated.Rating,
	}).Info("book rated")
	publishEvent(s.publisher, s.logger, EventBookRated, map[string]interface{}{
		"bookID":      bookID,
		"userID":      user.ID,
		"rating":      value,
		"average":     rated.Rating,
		"ratingCount": rated.RatingCount,
	})
	return rated, nil
}

// AggregateRatings returns the arithmetic mean of all rating values and the
// number of distinct raters. An empty slice yields (0, 0).
func AggregateRatings(ratings []models.BookRating) (float64, int64) {
	if len(ratings) == 0 {
		return 0, 0
	}
	var sum float64
	raters := make(map[string]struct{}, len(ratings))
	for _, r := range ratings {
		sum += r.Rating
		raters[r.UserID] = struct{}{}
	}
	return sum / float64(len(ratings)), int64(len(raters))
}

func translateBookErr(err error) error {
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return fmt.Errorf("%w: %v", ErrBookNotFound, err)
	case errors.Is(err, repositories.ErrDuplicate):
		return ErrDuplicateTitle
	default:
		return err
	}
}
