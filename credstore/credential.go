package credstore

import (
	"context"
	"errors"
	"time"

	"golang.org/x/oauth2"
)

var (
	// ErrNotFound is returned by Load when no credential has been saved.
	ErrNotFound = errors.New("credential not found")
	// ErrInvalidCredential is returned when a credential fails validation before a write.
	ErrInvalidCredential = errors.New("invalid credential")
)

// Key addresses the single credential slot of a store.
type Key struct {
	Service string
	Account string
}

// DefaultKey is the slot used by the app.
var DefaultKey = Key{Service: "com.saverr.app", Account: "auth_tokens"}

// UserSummary is the user identity cached alongside the tokens.
type UserSummary struct {
	ID    string  `json:"id"`
	Email string  `json:"email"`
	Name  *string `json:"name,omitempty"`
}

// StoredCredential is the persisted token pair. A credential past ExpiresAt is still
// readable but must be refreshed before its access token is used.
type StoredCredential struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	ExpiresAt    time.Time   `json:"expires_at"`
	User         UserSummary `json:"user"`
}

func (c *StoredCredential) IsExpired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// NeedsRefresh reports whether the credential expires within lead of now.
func (c *StoredCredential) NeedsRefresh(now time.Time, lead time.Duration) bool {
	return !now.Add(lead).Before(c.ExpiresAt)
}

// Validate checks the write-time invariants.
func (c *StoredCredential) Validate(now time.Time) error {
	switch {
	case c.AccessToken == "":
		return errors.Join(ErrInvalidCredential, errors.New("access token is empty"))
	case c.RefreshToken == "":
		return errors.Join(ErrInvalidCredential, errors.New("refresh token is empty"))
	case !c.ExpiresAt.After(now):
		return errors.Join(ErrInvalidCredential, errors.New("expiry is not in the future"))
	}
	return nil
}

// OAuth2Token converts the credential for use with an oauth2.Transport.
func (c *StoredCredential) OAuth2Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  c.AccessToken,
		TokenType:    "Bearer",
		RefreshToken: c.RefreshToken,
		Expiry:       c.ExpiresAt,
	}
}

// Store is a single mutable credential slot. Each call is atomic; there is no
// coupling between a Load and a later Save.
type Store interface {
	Load(ctx context.Context) (*StoredCredential, error)
	Save(ctx context.Context, credential *StoredCredential) error
	// Delete is a no-op when the slot is empty.
	Delete(ctx context.Context) error
}
