// Package account manages the local accounts used for HTTP Basic
// authentication and session creation.
package account

import (
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned when the username is unknown or the
// password does not match.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Account represents a local account. The password is only ever stored as
// a bcrypt hash.
type Account struct {
	ID       string
	Username string
	Role     string
}

// Service manages accounts with database persistence
type Service struct {
	db *sql.DB
}

// New creates a new account service
func New(db *sql.DB) *Service {
	return &Service{db: db}
}

// Create adds a new account with the given credentials.
func (s *Service) Create(username, password, role string) (*Account, error) {
	if username == "" || password == "" {
		return nil, fmt.Errorf("username and password are required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	acct := &Account{
		ID:       uuid.NewString(),
		Username: username,
		Role:     role,
	}

	_, err = s.db.Exec(
		"INSERT INTO accounts (id, username, password_hash, role) VALUES (?, ?, ?, ?)",
		acct.ID, acct.Username, string(hash), acct.Role,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create account %s: %w", username, err)
	}

	log.Printf("Account created: %s", username)
	return acct, nil
}

// Get returns the account with the given username.
func (s *Service) Get(username string) (*Account, error) {
	var acct Account
	err := s.db.QueryRow(
		"SELECT id, username, role FROM accounts WHERE username = ?", username,
	).Scan(&acct.ID, &acct.Username, &acct.Role)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("account not found: %s", username)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load account %s: %w", username, err)
	}
	return &acct, nil
}

// Verify checks a username/password pair against the stored hash.
// Returns ErrInvalidCredentials on any mismatch; the caller cannot tell
// an unknown user from a wrong password.
func (s *Service) Verify(username, password string) error {
	var hash string
	err := s.db.QueryRow(
		"SELECT password_hash FROM accounts WHERE username = ?", username,
	).Scan(&hash)
	if err == sql.ErrNoRows {
		return ErrInvalidCredentials
	}
	if err != nil {
		return fmt.Errorf("failed to load account %s: %w", username, err)
	}

	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// EnsureDefault makes sure a default account exists so the service is
// reachable on first boot. Called once on startup; skips creation when the
// account is already present.
func (s *Service) EnsureDefault(username, password string) error {
	if _, err := s.Get(username); err == nil {
		log.Printf("Default account already exists: %s", username)
		return nil
	}

	if _, err := s.Create(username, password, "Administrator"); err != nil {
		return fmt.Errorf("failed to create default account: %w", err)
	}

	log.Printf("Created default account: %s", username)
	return nil
}
