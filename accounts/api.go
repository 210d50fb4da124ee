package accounts

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/jrsteele09/go-saverr/apiclient"
	"github.com/pkg/errors"
)

// Endpoint paths of the accounts API. All of them require a bearer token.
const (
	RouteAccounts  = "/accounts"
	RouteLinkToken = "/accounts/link-token"
	RouteLink      = "/accounts/link"
)

func accountPath(accountID string, suffix ...string) string {
	p := RouteAccounts + "/" + url.PathEscape(accountID)
	for _, s := range suffix {
		p += "/" + s
	}
	return p
}

// LinkAPI is the account-aggregation backend consumed by the Manager.
type LinkAPI interface {
	GetLinkToken(ctx context.Context) (string, error)
	LinkAccount(ctx context.Context, publicToken string) (*AccountLinkResponse, error)
	SyncTransactions(ctx context.Context, accountID string) (*SyncResponse, error)
	// GetTransactions omits a bound when it is the zero time.
	GetTransactions(ctx context.Context, accountID string, start, end time.Time) ([]Transaction, error)
	GetLinkedAccounts(ctx context.Context) ([]LinkedAccount, error)
	RefreshAccountBalance(ctx context.Context, accountID string) (*LinkedAccount, error)
	UnlinkAccount(ctx context.Context, accountID string) error
}

var _ LinkAPI = (*Client)(nil)

// Client implements LinkAPI over HTTP. The apiclient must carry a token source.
type Client struct {
	api *apiclient.Client
}

func NewClient(api *apiclient.Client) (*Client, error) {
	if api == nil {
		return nil, errors.New("[NewClient] api client is required")
	}
	return &Client{api: api}, nil
}

func (c *Client) GetLinkToken(ctx context.Context) (string, error) {
	var resp LinkTokenResponse
	err := c.api.Do(ctx, apiclient.Request{Op: "link_token", Method: http.MethodPost, Path: RouteLinkToken, Body: struct{}{}}, &resp)
	if err != nil {
		return "", err
	}
	return resp.LinkToken, nil
}

func (c *Client) LinkAccount(ctx context.Context, publicToken string) (*AccountLinkResponse, error) {
	var resp AccountLinkResponse
	req := apiclient.Request{Op: "link_account", Method: http.MethodPost, Path: RouteLink, Body: LinkRequest{PublicToken: publicToken}}
	if err := c.api.Do(ctx, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) SyncTransactions(ctx context.Context, accountID string) (*SyncResponse, error) {
	var resp SyncResponse
	req := apiclient.Request{Op: "sync_transactions", Method: http.MethodPost, Path: accountPath(accountID, "sync"), Body: struct{}{}}
	if err := c.api.Do(ctx, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) GetTransactions(ctx context.Context, accountID string, start, end time.Time) ([]Transaction, error) {
	query := url.Values{}
	if !start.IsZero() {
		query.Set("start_date", start.Format(DateLayout))
	}
	if !end.IsZero() {
		query.Set("end_date", end.Format(DateLayout))
	}

	var resp TransactionsResponse
	req := apiclient.Request{Op: "get_transactions", Method: http.MethodGet, Path: accountPath(accountID, "transactions"), Query: query}
	if err := c.api.Do(ctx, req, &resp); err != nil {
		return nil, err
	}
	return resp.Transactions, nil
}

func (c *Client) GetLinkedAccounts(ctx context.Context) ([]LinkedAccount, error) {
	var resp AccountsResponse
	if err := c.api.Do(ctx, apiclient.Request{Op: "list_accounts", Method: http.MethodGet, Path: RouteAccounts}, &resp); err != nil {
		return nil, err
	}
	return resp.Accounts, nil
}

func (c *Client) RefreshAccountBalance(ctx context.Context, accountID string) (*LinkedAccount, error) {
	var resp AccountResponse
	req := apiclient.Request{Op: "refresh_balance", Method: http.MethodPost, Path: accountPath(accountID, "refresh"), Body: struct{}{}}
	if err := c.api.Do(ctx, req, &resp); err != nil {
		return nil, err
	}
	return &resp.Account, nil
}

// UnlinkAccount treats a 2xx answer with success=false as an invalid response.
func (c *Client) UnlinkAccount(ctx context.Context, accountID string) error {
	var resp UnlinkResponse
	if err := c.api.Do(ctx, apiclient.Request{Op: "unlink_account", Method: http.MethodDelete, Path: accountPath(accountID)}, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return errors.Wrapf(apiclient.ErrInvalidResponse, "unlink %s", accountID)
	}
	return nil
}
