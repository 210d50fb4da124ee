package accounts_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jrsteele09/go-saverr/accounts"
	"github.com/jrsteele09/go-saverr/apiclient"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type routeResponse struct {
	status int
	body   string
}

// setupClient routes "METHOD path" to canned responses and records each request's
// auth header and raw query.
func setupClient(t *testing.T, routes map[string]routeResponse) (*accounts.Client, *[]*http.Request) {
	t.Helper()
	var seen []*http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		seen = append(seen, r)
		resp, ok := routes[r.Method+" "+r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"error":"Not Found","message":"no route"}`)
			return
		}
		if resp.status != 0 {
			w.WriteHeader(resp.status)
		}
		_, _ = io.WriteString(w, resp.body)
	}))
	t.Cleanup(srv.Close)

	api, err := apiclient.New(srv.URL, apiclient.WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "tok"})))
	require.NoError(t, err)
	c, err := accounts.NewClient(api)
	require.NoError(t, err)
	return c, &seen
}

func TestClient_Endpoints(t *testing.T) {
	c, seen := setupClient(t, map[string]routeResponse{
		"POST /accounts/link-token":       {body: `{"link_token":"link-sandbox-1"}`},
		"POST /accounts/link":             {body: `{"account":{"id":"a1","account_id":"p1","name":"Checking","type":"depository","current_balance":100.5},"link_status":"connected"}`},
		"POST /accounts/a1/sync":          {body: `{"synced":3,"added":3,"modified":0,"removed":0,"has_more":false}`},
		"GET /accounts/a1/transactions":   {body: `{"transactions":[{"id":"t1","transaction_id":"x","account_id":"a1","amount":12.5,"date":"2026-03-01","name":"Cafe","pending":false}],"total_count":1}`},
		"GET /accounts":                   {body: `{"accounts":[{"id":"a1","account_id":"p1","name":"Checking","type":"depository"}]}`},
		"POST /accounts/a1/refresh":       {body: `{"account":{"id":"a1","account_id":"p1","name":"Checking","type":"depository","available_balance":"99.95"}}`},
		"DELETE /accounts/a1":             {body: `{"success":true}`},
		"DELETE /accounts/a2":             {body: `{"success":false}`},

		"GET /accounts/broken/transactions": {status: http.StatusForbidden, body: `{"error":"Forbidden","message":"Item login required","error_code":"ITEM_LOGIN_REQUIRED"}`},
	})
	ctx := context.Background()

	token, err := c.GetLinkToken(ctx)
	require.NoError(t, err)
	require.Equal(t, "link-sandbox-1", token)

	link, err := c.LinkAccount(ctx, "public-1")
	require.NoError(t, err)
	require.Equal(t, "a1", link.Account.ID)
	require.Equal(t, "100.50", link.Account.DisplayBalance().StringFixed(2))

	sync, err := c.SyncTransactions(ctx, "a1")
	require.NoError(t, err)
	require.Equal(t, 3, sync.Added)

	start := time.Date(2025, 12, 14, 9, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	txs, err := c.GetTransactions(ctx, "a1", start, end)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	require.Equal(t, "end_date=2026-03-14&start_date=2025-12-14", (*seen)[len(*seen)-1].URL.RawQuery)

	list, err := c.GetLinkedAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	refreshed, err := c.RefreshAccountBalance(ctx, "a1")
	require.NoError(t, err)
	require.Equal(t, "99.95", refreshed.DisplayBalance().StringFixed(2))

	require.NoError(t, c.UnlinkAccount(ctx, "a1"))
	require.ErrorIs(t, c.UnlinkAccount(ctx, "a2"), apiclient.ErrInvalidResponse)

	_, err = c.GetTransactions(ctx, "broken", time.Time{}, time.Time{})
	require.Equal(t, "Item login required", apiclient.Message(err))
	require.Empty(t, (*seen)[len(*seen)-1].URL.RawQuery)

	for _, r := range *seen {
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"), r.URL.Path)
	}
}
