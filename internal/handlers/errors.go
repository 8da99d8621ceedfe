package handlers

import (
	"errors"
	"fmt"

	"bookshelf/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type errorMapping struct {
	err     error
	status  int
	message string
}

// errorTable maps service errors to HTTP responses. Order matters only for
// errors wrapping several sentinels.
var errorTable = []errorMapping{
	{services.ErrDuplicateEmail, fiber.StatusConflict, "Email already exists!"},
	{services.ErrDuplicateUsername, fiber.StatusConflict, "This username already exists!"},
	{services.ErrDuplicateTitle, fiber.StatusConflict, "Book with this title already exists"},
	{services.ErrUserNotFound, fiber.StatusNotFound, "User not found"},
	{services.ErrBookNotFound, fiber.StatusNotFound, "Book not found"},
	{services.ErrInvalidCredentials, fiber.StatusUnauthorized, "Invalid username or password"},
	{services.ErrUnauthenticated, fiber.StatusUnauthorized, "User not authenticated"},
	{services.ErrForbidden, fiber.StatusForbidden, "Access denied"},
	{services.ErrMissingToken, fiber.StatusBadRequest, "No JWT token found in the request headers"},
	{services.ErrInvalidToken, fiber.StatusBadRequest, "Invalid JWT token"},
	{services.ErrAlreadyRated, fiber.StatusBadRequest, "You have already rated this book"},
	{services.ErrInvalidArgument, fiber.StatusBadRequest, "Invalid argument"},
}

// classify returns the status and client message for err.
func classify(err error) (int, string) {
	var verr *services.ValidationError
	if errors.As(err, &verr) {
		return fiber.StatusBadRequest, verr.Reason
	}
	for _, m := range errorTable {
		if errors.Is(err, m.err) {
			return m.status, m.message
		}
	}
	return fiber.StatusInternalServerError, "Internal server error"
}

// respondError writes the JSON error response for err. Server errors are
// logged and never leak their cause to the client.
func respondError(c *fiber.Ctx, logger logrus.FieldLogger, err error) error {
	status, message := classify(err)
	entry := logger.WithError(err).WithFields(logrus.Fields{
		"method": c.Method(),
		"path":   c.Path(),
		"status": status,
	})
	if status >= fiber.StatusInternalServerError {
		entry.Error("request failed")
	} else {
		entry.Debug("request rejected")
	}
	return c.Status(status).JSON(fiber.Map{"message": message})
}

// parseBody decodes and validates the request body into out. When it
// reports false the error response has already been written.
func parseBody(c *fiber.Ctx, validate *validator.Validate, out interface{}) (bool, error) {
	if err := c.BodyParser(out); err != nil {
		return false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
		})
	}
	if err := validate.Struct(out); err != nil {
		var validationErrors validator.ValidationErrors
		if !errors.As(err, &validationErrors) {
			return false, err
		}
		errorMessages := make(map[string]string, len(validationErrors))
		for _, e := range validationErrors {
			errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
		}
		return false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  errorMessages,
		})
	}
	return true, nil
}
