package handlers

import (
	"strconv"

	"bookshelf/internal/middleware"
	"bookshelf/internal/models"
	"bookshelf/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// BookHandler handles HTTP requests for the book catalog.
type BookHandler struct {
	service  *services.BookService
	validate *validator.Validate
	logger   logrus.FieldLogger
}

// NewBookHandler creates a new BookHandler.
func NewBookHandler(service *services.BookService, logger logrus.FieldLogger) *BookHandler {
	return &BookHandler{
		service:  service,
		validate: validator.New(),
		logger:   logger,
	}
}

// RegisterRoutes registers the book routes with the Fiber app.
func (h *BookHandler) RegisterRoutes(router fiber.Router) {
	bookRoutes := router.Group("/books")
	bookRoutes.Get("/", h.HandleListBooks)
	bookRoutes.Get("/:id", h.HandleGetBook)
	bookRoutes.Post("/add", h.HandleAddBook)
	bookRoutes.Patch("/update/:id", h.HandleUpdateBook)
	bookRoutes.Delete("/delete/:id", h.HandleDeleteBook)
	bookRoutes.Post("/rate/:bookId", h.HandleRateBook)
}

// HandleListBooks lists books matching the optional title, author, year and
// rating query parameters.
func (h *BookHandler) HandleListBooks(c *fiber.Ctx) error {
	var filter models.BookFilter
	if v := c.Query("title"); v != "" {
		filter.Title = &v
	}
	if v := c.Query("author"); v != "" {
		filter.Author = &v
	}
	if v := c.Query("year"); v != "" {
		year, err := strconv.Atoi(v)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid year"})
		}
		filter.Year = &year
	}
	if v := c.Query("rating"); v != "" {
		rating, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid rating"})
		}
		filter.Rating = &rating
	}

	books, err := h.service.List(filter)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(books)
}

// HandleGetBook returns a single book.
func (h *BookHandler) HandleGetBook(c *fiber.Ctx) error {
	book, err := h.service.Get(c.Params("id"))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(book)
}

// AddBookRequest represents the request body for adding a book.
type AddBookRequest struct {
	Title  string `json:"title" validate:"required"`
	Author string `json:"author" validate:"required"`
	Year   *int   `json:"year" validate:"required"`
}

// HandleAddBook creates a book.
func (h *BookHandler) HandleAddBook(c *fiber.Ctx) error {
	var req AddBookRequest
	if ok, err := parseBody(c, h.validate, &req); !ok {
		return err
	}

	book, err := h.service.Create(services.BookInput{
		Title:  req.Title,
		Author: req.Author,
		Year:   *req.Year,
	})
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{
		"id":      book.ID,
		"message": services.MsgBookCreated,
	})
}

// HandleUpdateBook applies a partial update.
func (h *BookHandler) HandleUpdateBook(c *fiber.Ctx) error {
	var patch models.BookPatch
	if ok, err := parseBody(c, h.validate, &patch); !ok {
		return err
	}

	updated, err := h.service.Update(c.Params("id"), patch)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	message := services.MsgBookUpdated
	if !updated {
		message = services.MsgBookUnchanged
	}
	return c.JSON(fiber.Map{"message": message})
}

// HandleDeleteBook deletes a book and its ratings.
func (h *BookHandler) HandleDeleteBook(c *fiber.Ctx) error {
	if err := h.service.Delete(c.Params("id")); err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{"message": services.MsgBookDeleted})
}

// RateBookRequest represents the request body for rating a book.
type RateBookRequest struct {
	Rating *float64 `json:"rating" validate:"required"`
}

// HandleRateBook records the caller's rating.
func (h *BookHandler) HandleRateBook(c *fiber.Ctx) error {
	var req RateBookRequest
	if ok, err := parseBody(c, h.validate, &req); !ok {
		return err
	}

	book, err := h.service.Rate(middleware.PrincipalFrom(c), c.Params("bookId"), *req.Rating)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{
		"message":      services.MsgBookRated,
		"rating":       book.Rating,
		"rating_count": book.RatingCount,
	})
}
