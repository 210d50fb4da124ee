package linkfakes

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jrsteele09/go-saverr/accounts"
	"github.com/jrsteele09/go-saverr/apiclient"
)

var _ accounts.LinkAPI = (*FakeLinkAPI)(nil)

// FakeLinkAPI is a consistent in-memory backend. Linking a public token creates
// the account registered for it with AddLinkable; Fail forces the next calls of
// a method to return an error.
type FakeLinkAPI struct {
	lock         sync.Mutex
	linkable     map[string]accounts.LinkedAccount
	accounts     []accounts.LinkedAccount
	transactions map[string][]accounts.Transaction
	failures     map[string]error
	calls        map[string]int
	nextToken    int
}

func NewFakeLinkAPI() *FakeLinkAPI {
	return &FakeLinkAPI{
		linkable:     make(map[string]accounts.LinkedAccount),
		transactions: make(map[string][]accounts.Transaction),
		failures:     make(map[string]error),
		calls:        make(map[string]int),
	}
}

// AddLinkable registers the account produced by exchanging publicToken.
func (f *FakeLinkAPI) AddLinkable(publicToken string, account accounts.LinkedAccount) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.linkable[publicToken] = account
}

// AddAccount links account directly, as if done on another device.
func (f *FakeLinkAPI) AddAccount(account accounts.LinkedAccount) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.accounts = append(f.accounts, account)
}

// SetTransactions replaces what GetTransactions returns for accountID.
func (f *FakeLinkAPI) SetTransactions(accountID string, txs ...accounts.Transaction) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.transactions[accountID] = txs
}

// Fail makes method return err until Fail(method, nil) is called.
func (f *FakeLinkAPI) Fail(method string, err error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	if err == nil {
		delete(f.failures, method)
		return
	}
	f.failures[method] = err
}

func (f *FakeLinkAPI) Calls(method string) int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.calls[method]
}

// call records method and returns its forced failure. The lock is held on return.
func (f *FakeLinkAPI) call(method string) error {
	f.lock.Lock()
	f.calls[method]++
	return f.failures[method]
}

func notFound(accountID string) error {
	return &apiclient.Error{Kind: apiclient.KindAPI, StatusCode: 404, Message: fmt.Sprintf("account %s not found", accountID)}
}

func (f *FakeLinkAPI) indexOf(accountID string) int {
	for i, a := range f.accounts {
		if a.ID == accountID {
			return i
		}
	}
	return -1
}

func (f *FakeLinkAPI) GetLinkToken(_ context.Context) (string, error) {
	defer f.lock.Unlock()
	if err := f.call("GetLinkToken"); err != nil {
		return "", err
	}
	f.nextToken++
	return fmt.Sprintf("link-sandbox-%d", f.nextToken), nil
}

func (f *FakeLinkAPI) LinkAccount(_ context.Context, publicToken string) (*accounts.AccountLinkResponse, error) {
	defer f.lock.Unlock()
	if err := f.call("LinkAccount"); err != nil {
		return nil, err
	}
	account, ok := f.linkable[publicToken]
	if !ok {
		return nil, &apiclient.Error{Kind: apiclient.KindAPI, StatusCode: 400, Code: "INVALID_PUBLIC_TOKEN", Message: "invalid public token"}
	}
	if f.indexOf(account.ID) < 0 {
		f.accounts = append(f.accounts, account)
	}
	return &accounts.AccountLinkResponse{Account: account, LinkStatus: "connected"}, nil
}

func (f *FakeLinkAPI) SyncTransactions(_ context.Context, accountID string) (*accounts.SyncResponse, error) {
	defer f.lock.Unlock()
	if err := f.call("SyncTransactions"); err != nil {
		return nil, err
	}
	if f.indexOf(accountID) < 0 {
		return nil, notFound(accountID)
	}
	n := len(f.transactions[accountID])
	return &accounts.SyncResponse{Synced: n, Added: n}, nil
}

func (f *FakeLinkAPI) GetTransactions(_ context.Context, accountID string, start, end time.Time) ([]accounts.Transaction, error) {
	defer f.lock.Unlock()
	if err := f.call("GetTransactions"); err != nil {
		return nil, err
	}
	if f.indexOf(accountID) < 0 {
		return nil, notFound(accountID)
	}
	var out []accounts.Transaction
	for _, t := range f.transactions[accountID] {
		if d, ok := t.TransactionDate(); ok && (d.Before(start.Truncate(24*time.Hour)) || d.After(end)) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (f *FakeLinkAPI) GetLinkedAccounts(_ context.Context) ([]accounts.LinkedAccount, error) {
	defer f.lock.Unlock()
	if err := f.call("GetLinkedAccounts"); err != nil {
		return nil, err
	}
	return append([]accounts.LinkedAccount(nil), f.accounts...), nil
}

func (f *FakeLinkAPI) RefreshAccountBalance(_ context.Context, accountID string) (*accounts.LinkedAccount, error) {
	defer f.lock.Unlock()
	if err := f.call("RefreshAccountBalance"); err != nil {
		return nil, err
	}
	i := f.indexOf(accountID)
	if i < 0 {
		return nil, notFound(accountID)
	}
	account := f.accounts[i]
	return &account, nil
}

// SetBalance changes the balance the next RefreshAccountBalance reports.
func (f *FakeLinkAPI) SetBalance(accountID string, update func(*accounts.LinkedAccount)) {
	f.lock.Lock()
	defer f.lock.Unlock()
	if i := f.indexOf(accountID); i >= 0 {
		update(&f.accounts[i])
	}
}

func (f *FakeLinkAPI) UnlinkAccount(_ context.Context, accountID string) error {
	defer f.lock.Unlock()
	if err := f.call("UnlinkAccount"); err != nil {
		return err
	}
	i := f.indexOf(accountID)
	if i < 0 {
		return notFound(accountID)
	}
	f.accounts = append(f.accounts[:i:i], f.accounts[i+1:]...)
	delete(f.transactions, accountID)
	return nil
}
