package services

import (
	"errors"
	"fmt"

	"bookshelf/internal/models"
	"bookshelf/internal/repositories"

	"github.com/sirupsen/logrus"
)

const (
	MsgRegistered = "User registered successfully!"
	MsgLoggedIn   = "User logged in successfully"
	MsgLoggedOut  = "Logout successful"
)

// RegisterInput carries the fields of a registration request.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// AuthService handles registration, login, token validation and logout.
type AuthService struct {
	userRepo      repositories.UserRepository
	tokenRepo     repositories.TokenRepository
	hasher        PasswordHasher
	issuer        *TokenIssuer
	authenticator Authenticator
	publisher     EventPublisher
	logger        logrus.FieldLogger
}

// NewAuthService creates a new AuthService. Credentials are checked by a
// CredentialsAuthenticator over userRepo unless SetAuthenticator is called.
func NewAuthService(
	userRepo repositories.UserRepository,
	tokenRepo repositories.TokenRepository,
	hasher PasswordHasher,
	issuer *TokenIssuer,
	logger logrus.FieldLogger,
) *AuthService {
	return &AuthService{
		userRepo:      userRepo,
		tokenRepo:     tokenRepo,
		hasher:        hasher,
		issuer:        issuer,
		authenticator: NewCredentialsAuthenticator(userRepo, hasher),
		logger:        logger,
	}
}

// SetAuthenticator replaces the credential check used by Login.
func (s *AuthService) SetAuthenticator(a Authenticator) {
	s.authenticator = a
}

// SetPublisher enables domain event publication.
func (s *AuthService) SetPublisher(p EventPublisher) {
	s.publisher = p
}

// Register creates a USER account. Uniqueness is checked before any field
// validation.
func (s *AuthService) Register(input RegisterInput) (*models.User, error) {
	if exists, err := s.userRepo.ExistsByEmail(input.Email); err != nil {
		return nil, err
	} else if exists {
		return nil, ErrDuplicateEmail
	}
	if exists, err := s.userRepo.ExistsByUsername(input.Username); err != nil {
		return nil, err
	} else if exists {
		return nil, ErrDuplicateUsername
	}

	if err := validateRegistration(input.Username, input.Email, input.Password); err != nil {
		return nil, err
	}

	user, err := s.createUser(input, models.RoleUser)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{"user_id": user.ID, "username": user.Username}).Info("user registered")
	publishEvent(s.publisher, s.logger, EventUserRegistered, map[string]interface{}{
		"userID":   user.ID,
		"username": user.Username,
	})
	return user, nil
}

// EnsureAdmin creates an ADMIN account unless the username is already taken.
func (s *AuthService) EnsureAdmin(input RegisterInput) (*models.User, error) {
	existing, err := s.userRepo.GetByUsername(input.Username)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return nil, err
	}
	if err := validateRegistration(input.Username, input.Email, input.Password); err != nil {
		return nil, err
	}

	user, err := s.createUser(input, models.RoleAdmin)
	if err != nil {
		return nil, err
	}
	s.logger.WithField("username", user.Username).Info("admin account created")
	return user, nil
}

func (s *AuthService) createUser(input RegisterInput, role models.Role) (*models.User, error) {
	hashed, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username: input.Username,
		Email:    input.Email,
		Password: hashed,
		Role:     role,
	}
	if err := s.userRepo.Create(user); err != nil {
		// Lost a race with a concurrent registration; report the field
		// that was taken, email first like the pre-checks.
		if errors.Is(err, repositories.ErrDuplicate) {
			taken, existsErr := s.userRepo.ExistsByEmail(input.Email)
			if existsErr != nil {
				return nil, fmt.Errorf("failed to check email: %w", existsErr)
			}
			if taken {
				return nil, ErrDuplicateEmail
			}
			return nil, ErrDuplicateUsername
		}
		return nil, fmt.Errorf("failed to register user: %w", err)
	}
	return user, nil
}

// Login authenticates the user, revokes all of their valid tokens and issues
// a new one.
func (s *AuthService) Login(username, password string) (string, error) {
	if err := s.authenticator.Authenticate(username, password); err != nil {
		return "", err
	}

	user, err := s.userRepo.GetByUsername(username)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return "", ErrUserNotFound
		}
		return "", err
	}

	revoked, err := s.tokenRepo.RevokeAllByUser(user.ID)
	if err != nil {
		return "", err
	}

	raw, err := s.issuer.Issue(user)
	if err != nil {
		return "", err
	}
	if err := s.tokenRepo.Create(&models.Token{
		Token:     raw,
		TokenType: models.TokenTypeBearer,
		UserID:    user.ID,
	}); err != nil {
		return "", fmt.Errorf("failed to save token: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":        user.ID,
		"revoked_tokens": revoked,
	}).Info("user logged in")
	return raw, nil
}

// Authenticate resolves a raw bearer token into a Principal. The token must
// be present in the ledger, not expired or revoked, and carry a valid
// signature and expiry.
func (s *AuthService) Authenticate(raw string) (*Principal, error) {
	if raw == "" {
		return nil, ErrMissingToken
	}

	token, err := s.tokenRepo.FindByToken(raw)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if !token.Valid() {
		return nil, ErrInvalidToken
	}

	claims, err := s.issuer.Parse(raw)
	if err != nil {
		return nil, err
	}

	return &Principal{
		UserID:   token.UserID,
		Username: claims.Subject,
		Role:     models.Role(claims.Role),
	}, nil
}

// CurrentUser returns the user behind principal.
func (s *AuthService) CurrentUser(principal *Principal) (*models.User, error) {
	if principal == nil {
		return nil, ErrUnauthenticated
	}
	user, err := s.userRepo.GetByUsername(principal.Username)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, err
	}
	return user, nil
}

// Logout deletes the ledger row of raw.
func (s *AuthService) Logout(raw string) error {
	if raw == "" {
		return ErrMissingToken
	}

	token, err := s.tokenRepo.FindByToken(raw)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrInvalidToken
		}
		return err
	}
	if err := s.tokenRepo.Delete(token.ID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrInvalidToken
		}
		return err
	}

	s.logger.WithField("user_id", token.UserID).Info("user logged out")
	return nil
}
