// Package domain models board accounts and the API keys issued to them.
package domain

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrEmptyName          = errors.New("name cannot be empty")
	ErrEmptyPassword      = errors.New("password cannot be empty")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
)

// Role grants access to the admin board.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// NormalizeEmail lower-cases and validates an address.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !emailPattern.MatchString(email) {
		return "", fmt.Errorf("%w: %q", ErrInvalidEmail, email)
	}
	return email, nil
}

// Account is a stored login. Passwords are demo credentials kept as given.
type Account struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     Role   `json:"role"`
}

// User is an account without its password.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  Role   `json:"role"`
}

// User strips the password.
func (a Account) User() User {
	return User{ID: a.ID, Email: a.Email, Name: a.Name, Role: a.Role}
}

// PasswordMatches compares in constant time.
func (a Account) PasswordMatches(password string) bool {
	return subtle.ConstantTimeCompare([]byte(a.Password), []byte(password)) == 1
}

// IsAdmin reports whether the account may manage the board.
func (a Account) IsAdmin() bool { return a.Role == RoleAdmin }

// NewAccount validates signup input. The id is assigned by the caller.
func NewAccount(id, email, password, name string) (Account, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return Account{}, err
	}
	if password == "" {
		return Account{}, ErrEmptyPassword
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return Account{}, ErrEmptyName
	}
	return Account{ID: id, Email: email, Password: password, Name: name, Role: RoleUser}, nil
}

// DefaultAccounts are present until the first signup is stored.
func DefaultAccounts() []Account {
	return []Account{
		{ID: "1", Email: "admin@example.com", Password: "admin123", Name: "Admin User", Role: RoleAdmin},
		{ID: "2", Email: "user@example.com", Password: "user123", Name: "Regular User", Role: RoleUser},
	}
}
