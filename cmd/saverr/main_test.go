package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jrsteele09/go-saverr/internal/config"
	"github.com/jrsteele09/go-saverr/mockbackend"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func setupTestFixture(t *testing.T) (config.Config, *mockbackend.Server) {
	t.Helper()
	backend := mockbackend.New(mockbackend.WithLogger(zerolog.Nop()), mockbackend.WithSeed(3))
	ts := httptest.NewServer(backend)
	t.Cleanup(ts.Close)

	t.Setenv("API_BASE_URL", ts.URL)
	t.Setenv("CREDENTIAL_BACKEND", config.CredentialBackendFile)
	t.Setenv("CREDENTIAL_DIR", t.TempDir())
	return config.New(), backend
}

func run(t *testing.T, c config.Config, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := runCommand(context.Background(), c, &out, args, false)
	return out.String(), err
}

func TestCommands_SessionPersistsAcrossInvocations(t *testing.T) {
	c, backend := setupTestFixture(t)
	_, err := backend.AddUser("ada@example.com", "correct-horse", "Ada Lovelace", true)
	require.NoError(t, err)

	out, err := run(t, c, "whoami")
	require.NoError(t, err)
	require.Equal(t, "Signed out\n", out)

	_, err = run(t, c, "login", "ada.example.com", "correct-horse")
	require.EqualError(t, err, "Please enter a valid email address")

	out, err = run(t, c, "login", "ada@example.com", "correct-horse")
	require.NoError(t, err)
	require.Contains(t, out, "Signed in as Ada Lovelace <ada@example.com> (AD)")

	out, err = run(t, c, "whoami")
	require.NoError(t, err)
	require.Contains(t, out, "Signed in as Ada Lovelace")

	out, err = run(t, c, "link")
	require.NoError(t, err)
	require.Contains(t, out, "Linked account ")

	out, err = run(t, c, "accounts")
	require.NoError(t, err)
	require.Contains(t, out, "Checking")
	require.Contains(t, out, "5432.10")

	out, err = run(t, c, "spending")
	require.NoError(t, err)
	require.Contains(t, out, "TOTAL")

	out, err = run(t, c, "logout")
	require.NoError(t, err)
	require.Equal(t, "Signed out\n", out)

	_, err = run(t, c, "accounts")
	require.EqualError(t, err, "Please sign in to continue")
}

func TestCommands_SignUpNeedsVerification(t *testing.T) {
	c, _ := setupTestFixture(t)

	out, err := run(t, c, "signup", "Grace", "grace@example.com", "hopper-1906")
	require.NoError(t, err)
	require.Contains(t, out, "saverr confirm grace@example.com <code>")

	_, err = run(t, c, "confirm", "grace@example.com", mockbackend.UniversalCode)
	require.NoError(t, err)
	out, err = run(t, c, "login", "grace@example.com", "hopper-1906")
	require.NoError(t, err)
	require.Contains(t, out, "(GR)")
}

func TestCommands_RecentHonoursLimit(t *testing.T) {
	t.Setenv("RECENT_TRANSACTION_LIMIT", "3")
	c, backend := setupTestFixture(t)
	_, err := backend.AddUser("ada@example.com", "correct-horse", "Ada Lovelace", true)
	require.NoError(t, err)

	_, err = run(t, c, "login", "ada@example.com", "correct-horse")
	require.NoError(t, err)
	_, err = run(t, c, "link")
	require.NoError(t, err)

	out, err := run(t, c, "recent")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	require.True(t, strings.HasPrefix(lines[0], "DATE"))
}

func TestCommands_Arguments(t *testing.T) {
	c, _ := setupTestFixture(t)

	_, err := run(t, c, "nope")
	require.EqualError(t, err, `unknown command "nope"`)
	_, err = run(t, c, "login", "only-email")
	require.EqualError(t, err, "login takes 2 argument(s)")
}

func TestOpenStore(t *testing.T) {
	t.Setenv("CREDENTIAL_BACKEND", "floppy")
	_, _, err := openStore(config.New())
	require.Error(t, err)

	t.Setenv("CREDENTIAL_BACKEND", config.CredentialBackendMemory)
	store, closeStore, err := openStore(config.New())
	require.NoError(t, err)
	require.NotNil(t, store)
	require.NoError(t, closeStore())
}
