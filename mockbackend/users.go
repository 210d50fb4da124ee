package mockbackend

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	ierrors "github.com/jrsteele09/go-saverr/internal/errors"
	"golang.org/x/crypto/bcrypt"
)

type user struct {
	ID                    string
	Email                 string
	Name                  string
	PasswordHash          string
	Confirmed             bool
	PasswordResetRequired bool
	CreatedAt             time.Time
}

// hashPassword hashes the password using bcrypt
func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// checkPasswordHash compares a plaintext password with a hashed password
func checkPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// AddUser registers a user directly, bypassing sign-up. It returns the new user ID.
func (s *Server) AddUser(email, password, name string, confirmed bool) (string, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	u, err := s.createUser(email, password, name)
	if err != nil {
		return "", err
	}
	u.Confirmed = confirmed
	return u.ID, nil
}

// RequirePasswordReset makes the next login for email fail with PasswordResetRequiredException.
func (s *Server) RequirePasswordReset(email string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	u, err := s.userByEmail(email)
	if err != nil {
		return err
	}
	u.PasswordResetRequired = true
	return nil
}

// createUser must be called with the lock held.
func (s *Server) createUser(email, password, name string) (*user, error) {
	key := normalizeEmail(email)
	if _, ok := s.users[key]; ok {
		return nil, errUserExists
	}
	hash, err := hashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &user{
		ID:           uuid.NewString(),
		Email:        key,
		Name:         strings.TrimSpace(name),
		PasswordHash: hash,
		CreatedAt:    s.now(),
	}
	s.users[key] = u
	return u, nil
}

func (s *Server) userByEmail(email string) (*user, error) {
	u, ok := s.users[normalizeEmail(email)]
	if !ok {
		return nil, ierrors.Wrapf(ierrors.ErrNotFound, "user %q", normalizeEmail(email))
	}
	return u, nil
}

func (s *Server) userByID(id string) (*user, error) {
	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, ierrors.Wrapf(ierrors.ErrNotFound, "user id %s", id)
}
