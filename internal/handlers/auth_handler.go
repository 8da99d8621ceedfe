package handlers

import (
	"errors"

	"bookshelf/internal/middleware"
	"bookshelf/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// AuthHandler handles HTTP requests for authentication.
type AuthHandler struct {
	authService *services.AuthService
	validate    *validator.Validate
	logger      logrus.FieldLogger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService, logger logrus.FieldLogger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		validate:    validator.New(),
		logger:      logger,
	}
}

// RegisterRoutes registers the authentication routes. extra runs before the
// register and login handlers.
func (h *AuthHandler) RegisterRoutes(router fiber.Router, extra ...fiber.Handler) {
	authRoutes := router.Group("/auth")
	authRoutes.Post("/register", append(extra, h.HandleRegister)...)
	authRoutes.Post("/login", append(extra, h.HandleLogin)...)
	authRoutes.Post("/logout", h.HandleLogout)
	authRoutes.Get("/me", h.HandleMe)
}

// RegisterRequest represents the request body for registration. Field rules
// are enforced by the service so that uniqueness is reported first.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleRegister handles new user registration.
func (h *AuthHandler) HandleRegister(c *fiber.Ctx) error {
	var req RegisterRequest
	if ok, err := parseBody(c, h.validate, &req); !ok {
		return err
	}

	user, err := h.authService.Register(services.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(fiber.Map{
		"id":       user.ID,
		"username": user.Username,
		"email":    user.Email,
		"message":  services.MsgRegistered,
	})
}

// LoginRequest represents the request body for login.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// HandleLogin handles user login and issues a JWT token.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var req LoginRequest
	if ok, err := parseBody(c, h.validate, &req); !ok {
		return err
	}

	token, err := h.authService.Login(req.Username, req.Password)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(fiber.Map{
		"token":   token,
		"message": services.MsgLoggedIn,
	})
}

// HandleLogout deletes the caller's token. Responses are plain text.
func (h *AuthHandler) HandleLogout(c *fiber.Ctx) error {
	err := h.authService.Logout(middleware.BearerToken(c))
	switch {
	case err == nil:
		middleware.ClearPrincipal(c)
		return c.SendString(services.MsgLoggedOut)
	case errors.Is(err, services.ErrMissingToken), errors.Is(err, services.ErrInvalidToken):
		_, message := classify(err)
		return c.Status(fiber.StatusBadRequest).SendString(message)
	default:
		h.logger.WithError(err).Error("logout failed")
		return c.Status(fiber.StatusInternalServerError).SendString("Internal server error")
	}
}

// HandleMe returns the authenticated user.
func (h *AuthHandler) HandleMe(c *fiber.Ctx) error {
	user, err := h.authService.CurrentUser(middleware.PrincipalFrom(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(fiber.Map{
		"id":       user.ID,
		"username": user.Username,
		"email":    user.Email,
		"role":     user.Role,
	})
}
