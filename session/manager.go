// Package session owns the authentication lifecycle: sign-up, email
// verification, login, token refresh and logout. It is the only writer of the
// stored credential.
package session

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"github.com/jrsteele09/go-saverr/apiclient"
	"github.com/jrsteele09/go-saverr/auth"
	"github.com/jrsteele09/go-saverr/credstore"
	"github.com/jrsteele09/go-saverr/internal/config"
	ierrors "github.com/jrsteele09/go-saverr/internal/errors"
	"github.com/jrsteele09/go-saverr/internal/observable"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Manager mediates every session transition. Operations are serialized, so a
// login can never interleave with a refresh on the same manager.
type Manager struct {
	api               auth.API
	store             credstore.Store
	refreshLead       time.Duration
	minPasswordLength int

	mu       sync.Mutex // serializes operations
	snapshot *observable.Store[Snapshot]

	nowTime func() time.Time
	logger  zerolog.Logger
}

type ManagerOption func(*Manager)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowTime = nowFunc
	}
}

func WithLogger(logger zerolog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

func NewManager(api auth.API, store credstore.Store, cfg config.SessionConfig, options ...ManagerOption) (*Manager, error) {
	if api == nil {
		return nil, errors.New("[NewManager] auth api is required")
	}
	if store == nil {
		return nil, errors.New("[NewManager] credential store is required")
	}
	if cfg == nil {
		return nil, errors.New("[NewManager] session config is required")
	}

	m := &Manager{
		api:               api,
		store:             store,
		refreshLead:       cfg.GetRefreshLeadTime(),
		minPasswordLength: cfg.GetMinPasswordLength(),
		snapshot:          observable.NewStore(Snapshot{State: Unauthenticated{}}),
		nowTime:           time.Now,
		logger:            log.Logger,
	}
	for _, opt := range options {
		opt(m)
	}
	m.logger = m.logger.With().Str("component", "session").Logger()
	return m, nil
}

func (m *Manager) Snapshot() Snapshot {
	return m.snapshot.Get()
}

// Subscribe calls l after every state change until the returned func is called.
// Notifications arrive in order once the operation that raised them has
// released the manager, so l may call back into it.
func (m *Manager) Subscribe(l func(Snapshot)) (unsubscribe func()) {
	return m.snapshot.Subscribe(l)
}

// ClearError acknowledges the current error message.
func (m *Manager) ClearError() {
	m.snapshot.Update(func(s Snapshot) Snapshot {
		s.ErrorMessage = ""
		return s
	})
}

// RestoreSession loads the stored credential at start-up. A credential close to
// expiry is refreshed; a refresh failure signs the user out.
func (m *Manager) RestoreSession(ctx context.Context) error {
	defer m.lock()()

	m.setState(Authenticating{}, nil)
	cred, err := m.store.Load(ctx)
	if err != nil {
		if !stderrors.Is(err, credstore.ErrNotFound) {
			m.logger.Warn().Err(err).Msg("stored credential unreadable")
		}
		m.setState(Unauthenticated{}, nil)
		return nil
	}

	if cred.NeedsRefresh(m.nowTime(), m.refreshLead) {
		_, err := m.refresh(ctx, cred)
		return err
	}

	user := NewUser(cred.User)
	m.setState(Authenticated{}, &user)
	return nil
}

func (m *Manager) Login(ctx context.Context, email, password string) error {
	defer m.lock()()
	defer m.begin()()

	return m.login(ctx, email, password)
}

func (m *Manager) login(ctx context.Context, email, password string) error {
	if err := validateLogin(email, password); err != nil {
		return m.fail(err)
	}

	resp, err := m.api.Login(ctx, email, password)
	if err != nil {
		return m.authFailure(errors.Wrap(err, "[Manager.Login] login"), email)
	}

	cred, err := m.saveCredential(ctx, resp)
	if err != nil {
		return m.fail(errors.Wrap(err, "[Manager.Login] saveCredential"))
	}
	user := NewUser(cred.User)
	m.setState(Authenticated{}, &user)
	m.logger.Info().Str("user_id", user.ID).Msg("signed in")
	return nil
}

// SignUp registers a user. When the backend does not ask for email confirmation
// the user is signed in straight away with the same credentials.
func (m *Manager) SignUp(ctx context.Context, name, email, password string) error {
	defer m.lock()()
	defer m.begin()()

	if err := validateSignUp(name, email, password, m.minPasswordLength); err != nil {
		return m.fail(err)
	}

	resp, err := m.api.SignUp(ctx, email, password, name)
	if err != nil {
		return m.authFailure(errors.Wrap(err, "[Manager.SignUp] signUp"), email)
	}

	if resp.RequiresConfirmation() {
		m.setState(NeedsVerification{Email: email}, nil)
		return nil
	}
	return m.login(ctx, email, password)
}

// ConfirmEmail submits a verification code. It leaves the state untouched; the
// caller signs in afterwards.
func (m *Manager) ConfirmEmail(ctx context.Context, email, code string) error {
	defer m.lock()()
	defer m.begin()()

	if err := validateCode(code, "Please enter the verification code"); err != nil {
		return m.fail(err)
	}
	if _, err := m.api.ConfirmSignUp(ctx, email, code); err != nil {
		return m.authFailure(errors.Wrap(err, "[Manager.ConfirmEmail] confirmSignUp"), email)
	}
	return nil
}

func (m *Manager) ResendVerificationCode(ctx context.Context, email string) error {
	defer m.lock()()
	defer m.begin()()

	if _, err := m.api.ResendCode(ctx, email); err != nil {
		return m.authFailure(errors.Wrap(err, "[Manager.ResendVerificationCode] resendCode"), email)
	}
	return nil
}

func (m *Manager) ForgotPassword(ctx context.Context, email string) error {
	defer m.lock()()
	defer m.begin()()

	if err := validateEmail(email); err != nil {
		return m.fail(err)
	}
	if _, err := m.api.ForgotPassword(ctx, email); err != nil {
		return m.authFailure(errors.Wrap(err, "[Manager.ForgotPassword] forgotPassword"), email)
	}
	m.setState(NeedsPasswordReset{Email: email}, nil)
	return nil
}

// ResetPassword sets a new password and returns to Unauthenticated so the user
// signs in with it.
func (m *Manager) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	defer m.lock()()
	defer m.begin()()

	if err := validateCode(code, "Please enter the reset code"); err != nil {
		return m.fail(err)
	}
	if err := validatePassword(newPassword, m.minPasswordLength); err != nil {
		return m.fail(err)
	}
	if _, err := m.api.ResetPassword(ctx, email, code, newPassword); err != nil {
		return m.authFailure(errors.Wrap(err, "[Manager.ResetPassword] resetPassword"), email)
	}
	m.setState(Unauthenticated{}, nil)
	return nil
}

// RefreshSession exchanges the stored refresh token for a new pair. Any failure
// deletes the stored credential and signs the user out; it is never retried.
func (m *Manager) RefreshSession(ctx context.Context) error {
	defer m.lock()()

	cred, err := m.store.Load(ctx)
	if stderrors.Is(err, credstore.ErrNotFound) {
		m.setState(Unauthenticated{}, nil)
		return ierrors.ErrNoRefreshToken
	}
	if err != nil {
		m.logger.Warn().Err(err).Msg("stored credential unreadable, signing out")
		if delErr := m.store.Delete(ctx); delErr != nil {
			m.logger.Error().Err(delErr).Msg("delete unreadable credential")
		}
		m.setState(Unauthenticated{}, nil)
		return errors.Wrap(err, "[Manager.RefreshSession] store.Load")
	}
	_, err = m.refresh(ctx, cred)
	return err
}

// GetAccessToken returns a usable access token, refreshing first when the stored
// one is expired or about to expire.
func (m *Manager) GetAccessToken(ctx context.Context) (string, error) {
	cred, err := m.currentCredential(ctx)
	if err != nil {
		return "", err
	}
	return cred.AccessToken, nil
}

func (m *Manager) currentCredential(ctx context.Context) (*credstore.StoredCredential, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "[Manager.GetAccessToken] context")
	}
	defer m.lock()()

	cred, err := m.store.Load(ctx)
	if stderrors.Is(err, credstore.ErrNotFound) {
		return nil, ierrors.ErrNotAuthenticated
	}
	if err != nil {
		return nil, errors.Wrap(err, "[Manager.GetAccessToken] store.Load")
	}

	// Checked after taking the lock: a refresh that finished while we waited has
	// already replaced the stored credential.
	if !cred.NeedsRefresh(m.nowTime(), m.refreshLead) {
		return cred, nil
	}
	return m.refresh(ctx, cred)
}

// Logout always ends in Unauthenticated, even if the stored credential could
// not be deleted.
func (m *Manager) Logout(ctx context.Context) error {
	defer m.lock()()

	err := m.store.Delete(ctx)
	if err != nil {
		m.logger.Warn().Err(err).Msg("delete stored credential on logout")
	}
	m.snapshot.Update(func(Snapshot) Snapshot {
		return Snapshot{State: Unauthenticated{}}
	})
	return errors.Wrap(err, "[Manager.Logout] store.Delete")
}

func (m *Manager) refresh(ctx context.Context, cred *credstore.StoredCredential) (*credstore.StoredCredential, error) {
	if cred.RefreshToken == "" {
		m.setState(Unauthenticated{}, nil)
		return nil, ierrors.ErrNoRefreshToken
	}

	resp, err := m.api.RefreshToken(ctx, cred.RefreshToken)
	var next *credstore.StoredCredential
	if err == nil {
		next, err = m.saveCredential(ctx, resp)
	}
	if err != nil {
		m.logger.Warn().Err(err).Msg("session refresh failed, signing out")
		if delErr := m.store.Delete(ctx); delErr != nil {
			m.logger.Error().Err(delErr).Msg("delete stored credential after failed refresh")
		}
		m.setState(Unauthenticated{}, nil)
		return nil, errors.Wrap(err, "[Manager.refresh] refreshToken")
	}

	user := NewUser(next.User)
	m.setState(Authenticated{}, &user)
	return next, nil
}

// saveCredential persists a token pair expiring ExpiresIn seconds from now.
func (m *Manager) saveCredential(ctx context.Context, resp *auth.AuthResponse) (*credstore.StoredCredential, error) {
	if resp.ExpiresIn <= 0 {
		return nil, errors.Wrapf(apiclient.ErrInvalidResponse, "expires_in %d", resp.ExpiresIn)
	}

	now := m.nowTime()
	cred := &credstore.StoredCredential{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    now.Add(time.Duration(resp.ExpiresIn) * time.Second),
		User: credstore.UserSummary{
			ID:    resp.User.ID,
			Email: resp.User.Email,
			Name:  resp.User.Name,
		},
	}
	if err := cred.Validate(now); err != nil {
		return nil, err
	}
	if err := m.store.Save(ctx, cred); err != nil {
		return nil, errors.Wrap(err, "[Manager.saveCredential] store.Save")
	}
	return cred, nil
}

// lock serializes an operation. Snapshot notifications raised while it runs are
// delivered once the returned func has released the lock, so listeners may call
// back into the manager.
func (m *Manager) lock() (unlock func()) {
	m.mu.Lock()
	release := m.snapshot.Hold()
	return func() {
		m.mu.Unlock()
		release()
	}
}

// begin marks the manager busy and clears the error slot. The returned func
// clears the busy flag.
func (m *Manager) begin() func() {
	m.snapshot.Update(func(s Snapshot) Snapshot {
		s.IsLoading = true
		s.ErrorMessage = ""
		return s
	})
	return func() {
		m.snapshot.Update(func(s Snapshot) Snapshot {
			s.IsLoading = false
			return s
		})
	}
}

func (m *Manager) setState(state State, user *User) {
	m.snapshot.Update(func(s Snapshot) Snapshot {
		s.State = state
		s.User = user
		return s
	})
}

func (m *Manager) fail(err error) error {
	m.snapshot.Update(func(s Snapshot) Snapshot {
		s.ErrorMessage = apiclient.Message(err)
		return s
	})
	return err
}

// authFailure records err and moves to the remediation state the backend asked
// for. Other failures leave the state as it was.
func (m *Manager) authFailure(err error, email string) error {
	kind, _ := apiclient.KindOf(err)
	m.logger.Debug().Err(err).Str("kind", kind.String()).Msg("auth request failed")

	switch {
	case apiclient.IsKind(err, apiclient.KindNotConfirmed):
		m.setState(NeedsVerification{Email: email}, nil)
	case apiclient.IsKind(err, apiclient.KindResetRequired):
		m.setState(NeedsPasswordReset{Email: email}, nil)
	}
	return m.fail(err)
}
