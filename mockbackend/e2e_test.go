package mockbackend_test

import (
	"context"
	"testing"
	"time"

	"github.com/jrsteele09/go-saverr/accounts"
	"github.com/jrsteele09/go-saverr/apiclient"
	"github.com/jrsteele09/go-saverr/credstore"
	"github.com/jrsteele09/go-saverr/internal/config"
	"github.com/jrsteele09/go-saverr/mockbackend"
	"github.com/jrsteele09/go-saverr/session"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type clientFixture struct {
	*testFixture
	store    *credstore.MemoryStore
	session  *session.Manager
	accounts *accounts.Manager
}

func setupClientFixture(t *testing.T) *clientFixture {
	t.Helper()
	f := setupTestFixture(t)
	cfg := config.New()
	store := credstore.NewMemoryStore()

	sm, err := session.NewManager(f.authAPI, store, cfg, session.WithNowTime(f.clock.Now), session.WithLogger(zerolog.Nop()))
	require.NoError(t, err)

	api, err := apiclient.New(f.http.URL, apiclient.WithTokenSource(sm.TokenSource(context.Background())))
	require.NoError(t, err)
	linkAPI, err := accounts.NewClient(api)
	require.NoError(t, err)
	am, err := accounts.NewManager(linkAPI, cfg, accounts.WithNowTime(f.clock.Now), accounts.WithLogger(zerolog.Nop()))
	require.NoError(t, err)

	return &clientFixture{testFixture: f, store: store, session: sm, accounts: am}
}

func TestEndToEnd_SignUpToSpendingSummary(t *testing.T) {
	f := setupClientFixture(t)
	ctx := context.Background()

	require.NoError(t, f.session.SignUp(ctx, "Ada", testEmail, testPassword))
	require.Equal(t, session.NeedsVerification{Email: testEmail}, f.session.Snapshot().State)

	require.Error(t, f.session.Login(ctx, testEmail, testPassword))
	require.Equal(t, session.NeedsVerification{Email: testEmail}, f.session.Snapshot().State)

	require.NoError(t, f.session.ConfirmEmail(ctx, testEmail, mockbackend.UniversalCode))
	require.NoError(t, f.session.Login(ctx, testEmail, testPassword))
	snap := f.session.Snapshot()
	require.True(t, snap.IsAuthenticated())
	require.Equal(t, "AD", snap.User.AvatarInitials)

	require.NoError(t, f.accounts.InitializeLink(ctx))
	require.Equal(t, accounts.LinkReadyToLink, f.accounts.Snapshot().Link.State)
	require.NoError(t, f.accounts.CompleteLinking(ctx, "public-sandbox-1"))
	require.NoError(t, f.accounts.Refresh(ctx))

	got := f.accounts.Snapshot()
	require.Len(t, got.LinkedAccounts, 1)
	require.NotEmpty(t, got.Transactions)
	require.True(t, got.TotalIncome().IntPart() >= 7000)
	require.NotEmpty(t, got.SpendingSummary)
	for _, row := range got.SpendingSummary {
		require.NotEqual(t, "Transfer", row.Category)
	}
}

func TestEndToEnd_ExpiredTokenIsRefreshedOnce(t *testing.T) {
	f := setupClientFixture(t)
	ctx := context.Background()
	_, err := f.server.AddUser(testEmail, testPassword, "Ada", true)
	require.NoError(t, err)
	require.NoError(t, f.session.Login(ctx, testEmail, testPassword))
	require.NoError(t, f.accounts.CompleteLinking(ctx, "public-sandbox-1"))

	before, err := f.store.Load(ctx)
	require.NoError(t, err)

	f.clock.Advance(2 * time.Hour)
	require.NoError(t, f.accounts.LoadLinkedAccounts(ctx))
	require.Len(t, f.accounts.Snapshot().LinkedAccounts, 1)

	after, err := f.store.Load(ctx)
	require.NoError(t, err)
	require.NotEqual(t, before.RefreshToken, after.RefreshToken)
	require.Equal(t, f.clock.Now().Add(time.Hour).Unix(), after.ExpiresAt.Unix())
	require.True(t, f.session.Snapshot().IsAuthenticated())

	// The rotated-out refresh token is dead: a replayed credential signs the user out.
	require.NoError(t, f.store.Save(ctx, before))
	f.clock.Advance(2 * time.Hour)
	require.Error(t, f.accounts.LoadLinkedAccounts(ctx))
	require.Equal(t, session.Unauthenticated{}, f.session.Snapshot().State)
	_, err = f.store.Load(ctx)
	require.ErrorIs(t, err, credstore.ErrNotFound)
}

func TestEndToEnd_SyncFailureKeepsAccounts(t *testing.T) {
	f := setupClientFixture(t)
	ctx := context.Background()
	_, err := f.server.AddUser(testEmail, testPassword, "Ada", true)
	require.NoError(t, err)
	require.NoError(t, f.session.Login(ctx, testEmail, testPassword))
	require.NoError(t, f.accounts.CompleteLinking(ctx, "public-sandbox-1"))
	id := f.accounts.Snapshot().LinkedAccounts[0].ID

	f.server.FailRoute("POST "+mockbackend.RouteAccountSync, mockbackend.Failure{Status: 500, Code: "ITEM_LOGIN_REQUIRED", Message: "Item login required"})
	require.Error(t, f.accounts.SyncAccount(ctx, id))
	snap := f.accounts.Snapshot()
	require.Equal(t, "Item login required", snap.ErrorMessage)
	require.Len(t, snap.LinkedAccounts, 1)
	require.False(t, snap.IsSyncing)

	f.server.FailRoute("DELETE "+mockbackend.RouteAccount, mockbackend.Failure{Status: 503, Message: "Unavailable"})
	require.Error(t, f.accounts.UnlinkAccount(ctx, id))
	require.Len(t, f.accounts.Snapshot().LinkedAccounts, 1)

	f.server.ClearFailures()
	require.NoError(t, f.accounts.UnlinkAccount(ctx, id))
	require.False(t, f.accounts.Snapshot().HasLinkedAccounts())
}
