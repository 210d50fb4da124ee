package session

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/jrsteele09/go-saverr/credstore"
	"github.com/jrsteele09/go-saverr/internal/utils"
)

// State is the authentication status of the device. Exactly one variant is
// active at a time.
type State interface {
	String() string
	isState()
}

type (
	// Unauthenticated is the initial state and the state after logout or a failed refresh.
	Unauthenticated struct{}

	// Authenticating is held while a stored session is being restored.
	Authenticating struct{}

	Authenticated struct{}

	// NeedsVerification means the account exists but its email has not been confirmed.
	NeedsVerification struct{ Email string }

	// NeedsPasswordReset means a reset code was requested, or the backend demands a reset.
	NeedsPasswordReset struct{ Email string }
)

func (Unauthenticated) isState()    {}
func (Authenticating) isState()     {}
func (Authenticated) isState()      {}
func (NeedsVerification) isState()  {}
func (NeedsPasswordReset) isState() {}

func (Unauthenticated) String() string    { return "unauthenticated" }
func (Authenticating) String() string     { return "authenticating" }
func (Authenticated) String() string      { return "authenticated" }
func (NeedsVerification) String() string  { return "needs_verification" }
func (NeedsPasswordReset) String() string { return "needs_password_reset" }

// User is the signed-in user as shown by the UI.
type User struct {
	ID             string
	Email          string
	Name           string
	AvatarInitials string
}

// NewUser derives display fields from the cached user summary. Without a name the
// capitalized local part of the email is used, then "User".
func NewUser(summary credstore.UserSummary) User {
	name := utils.Value(summary.Name)
	if name == "" {
		name = capitalize(strings.SplitN(summary.Email, "@", 2)[0])
	}
	if name == "" {
		name = "User"
	}
	return User{
		ID:             summary.ID,
		Email:          summary.Email,
		Name:           name,
		AvatarInitials: strings.ToUpper(firstRunes(name, 2)),
	}
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}

func firstRunes(s string, n int) string {
	for i := range s {
		if n == 0 {
			return s[:i]
		}
		n--
	}
	return s
}

// Snapshot is the read-only view of a Manager handed to observers.
type Snapshot struct {
	State State

	// User is nil unless State is Authenticated.
	User *User

	// ErrorMessage holds the most recent failure until cleared or overwritten.
	ErrorMessage string

	IsLoading bool
}

func (s Snapshot) IsAuthenticated() bool {
	_, ok := s.State.(Authenticated)
	return ok
}
