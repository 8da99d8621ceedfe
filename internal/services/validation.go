package services

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode"
)

const (
	usernameMinLength = 4
	usernameMaxLength = 20
	passwordMinLength = 8
	emailLocalMaxLen  = 64
)

// Domain labels may not start with a hyphen; the TLD is at least two letters.
var emailPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+(\.[A-Za-z0-9_-]+)*@[A-Za-z0-9][A-Za-z0-9-]*(\.[A-Za-z0-9-]+)*(\.[A-Za-z]{2,})$`)

// validateRegistration checks username, email and password in that order and
// returns the first failure.
func validateRegistration(username, email, password string) error {
	if err := validateUsername(username); err != nil {
		return err
	}
	if err := validateEmail(email); err != nil {
		return err
	}
	return validatePassword(password)
}

func validateUsername(username string) error {
	switch {
	case username == "":
		return invalid("username", "Username cannot be empty")
	case strings.TrimSpace(username) != username:
		return invalid("username", "Username cannot start or end with a space")
	}
	n := len([]rune(username))
	if n < usernameMinLength {
		return invalid("username", fmt.Sprintf("Username must be at least %d characters", usernameMinLength))
	}
	if n > usernameMaxLength {
		return invalid("username", fmt.Sprintf("Username must be at most %d characters", usernameMaxLength))
	}
	return nil
}

func validateEmail(email string) error {
	if strings.TrimSpace(email) == "" {
		return invalid("email", "Email is mandatory")
	}
	at := strings.IndexByte(email, '@')
	if at < 1 || at > emailLocalMaxLen || !emailPattern.MatchString(email) {
		return invalid("email", "Invalid email address format")
	}
	return nil
}

func validatePassword(password string) error {
	if strings.TrimSpace(password) == "" {
		return invalid("password", "Password is mandatory")
	}
	if len([]rune(password)) < passwordMinLength {
		return invalid("password", fmt.Sprintf("Password must be at least %d characters long", passwordMinLength))
	}
	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	switch {
	case !upper:
		return invalid("password", "Password must contain at least one uppercase letter")
	case !lower:
		return invalid("password", "Password must contain at least one lowercase letter")
	case !digit:
		return invalid("password", "Password must contain at least one digit")
	}
	return nil
}

// ValidateRating reports whether value lies in [0, 5].
func ValidateRating(value float64) error {
	if math.IsNaN(value) || value < 0 || value > 5 {
		return invalid("rating", "Rating must be between 0 and 5")
	}
	return nil
}
