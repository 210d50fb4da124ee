// Package accounts drives linking of external financial accounts and keeps
// their balances and transactions in sync with the backend.
package accounts

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-saverr/apiclient"
	"github.com/jrsteele09/go-saverr/internal/config"
	ierrors "github.com/jrsteele09/go-saverr/internal/errors"
	"github.com/jrsteele09/go-saverr/internal/observable"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// AccountStatus is the lifecycle of a single linked account.
type AccountStatus string

const (
	AccountLinked   AccountStatus = "linked"
	AccountSyncing  AccountStatus = "syncing"
	AccountUnlinked AccountStatus = "unlinked"
)

// Snapshot is the read-only view of a Manager. Its slices are replaced, never
// modified, by later updates.
type Snapshot struct {
	LinkedAccounts  []LinkedAccount
	Transactions    []Transaction
	SpendingSummary []SpendingSummary

	IsLoading        bool
	IsLinking        bool
	IsSyncing        bool
	SyncingAccountID string

	// Err is the most recent failure; a new one overwrites it.
	Err          error
	ErrorMessage string

	Link LinkSession
}

// TotalSpending sums settled outflows.
func (s Snapshot) TotalSpending() decimal.Decimal {
	total := decimal.Zero
	for _, t := range s.Transactions {
		if !t.IsIncome() && !t.Pending {
			total = total.Add(t.AbsoluteAmount())
		}
	}
	return total
}

func (s Snapshot) TotalIncome() decimal.Decimal {
	total := decimal.Zero
	for _, t := range s.Transactions {
		if t.IsIncome() {
			total = total.Add(t.AbsoluteAmount())
		}
	}
	return total
}

// RecentTransactions returns at most n of the newest transactions.
func (s Snapshot) RecentTransactions(n int) []Transaction {
	if n < 0 {
		n = 0
	}
	if n > len(s.Transactions) {
		n = len(s.Transactions)
	}
	return s.Transactions[:n:n]
}

func (s Snapshot) HasLinkedAccounts() bool {
	return len(s.LinkedAccounts) > 0
}

// AccountStatus reports syncing for every linked account while SyncAllAccounts runs.
func (s Snapshot) AccountStatus(accountID string) AccountStatus {
	if s.findAccount(accountID) < 0 {
		return AccountUnlinked
	}
	if s.IsSyncing && (s.SyncingAccountID == "" || s.SyncingAccountID == accountID) {
		return AccountSyncing
	}
	return AccountLinked
}

func (s Snapshot) findAccount(accountID string) int {
	for i, a := range s.LinkedAccounts {
		if a.ID == accountID {
			return i
		}
	}
	return -1
}

// Manager owns the linked-account and transaction collections. Operations are
// serialized and never retried; a failure lands in the snapshot's error slot
// and is returned.
type Manager struct {
	api        LinkAPI
	windowDays int

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

func NewManager(api LinkAPI, cfg config.LinkConfig, options ...ManagerOption) (*Manager, error) {
	if api == nil {
		return nil, errors.New("[NewManager] link api is required")
	}
	if cfg == nil {
		return nil, errors.New("[NewManager] link config is required")
	}

	m := &Manager{
		api:        api,
		windowDays: cfg.GetTransactionWindowDays(),
		snapshot:   observable.NewStore(Snapshot{Link: idleLinkSession()}),
		nowTime:    time.Now,
		logger:     log.Logger,
	}
	for _, opt := range options {
		opt(m)
	}
	m.logger = m.logger.With().Str("component", "accounts").Logger()
	return m, nil
}

func (m *Manager) Snapshot() Snapshot {
	return m.snapshot.Get()
}

// Subscribe calls l with each snapshot once the operation that produced it has
// released the manager.
func (m *Manager) Subscribe(l func(Snapshot)) (unsubscribe func()) {
	return m.snapshot.Subscribe(l)
}

func (m *Manager) ClearError() {
	m.update(func(s *Snapshot) {
		s.Err = nil
		s.ErrorMessage = ""
	})
}

// InitializeLink starts a linking attempt by obtaining a link token. On failure
// the token stays unset; check Link.HasLinkToken before opening the flow.
func (m *Manager) InitializeLink(ctx context.Context) error {
	defer m.lock()()
	defer m.begin(flagLoading, "")()

	attempt := uuid.NewString()
	m.update(func(s *Snapshot) {
		s.Link = LinkSession{ID: attempt, State: LinkObtainingLinkToken}
	})

	token, err := m.api.GetLinkToken(ctx)
	if err != nil {
		m.update(func(s *Snapshot) {
			s.Link.State = LinkFailed
			s.Link.Step = StepFailure
		})
		return m.fail(errors.Wrap(err, "[Manager.InitializeLink] GetLinkToken"))
	}

	m.update(func(s *Snapshot) {
		s.Link.State = LinkReadyToLink
		s.Link.Step = StepSelectInstitution
		s.Link.LinkToken = token
	})
	m.logger.Debug().Str("link_attempt", attempt).Msg("link token issued")
	return nil
}

// SelectInstitution advances the linking UI to the provider's sign-in step.
func (m *Manager) SelectInstitution(institution Institution) error {
	defer m.lock()()

	link := m.snapshot.Get().Link
	if link.State != LinkReadyToLink || !link.HasLinkToken() {
		return ierrors.ErrLinkNotReady
	}
	m.update(func(s *Snapshot) {
		s.Link.Institution = &institution
		s.Link.Step = StepAuthenticate
	})
	return nil
}

// CancelLinking discards the current linking attempt.
func (m *Manager) CancelLinking() {
	defer m.lock()()
	m.update(func(s *Snapshot) {
		s.Link = idleLinkSession()
	})
}

// CompleteLinking exchanges the public token for a linked account and then syncs
// the new account's transactions. A failed follow-up sync is recorded in the
// error slot but does not fail the link.
func (m *Manager) CompleteLinking(ctx context.Context, publicToken string) error {
	defer m.lock()()
	end := m.begin(flagLinking, "")

	if publicToken == "" {
		end()
		return m.fail(ierrors.ErrNoLinkToken)
	}

	m.update(func(s *Snapshot) {
		if s.Link.State == LinkIdle || s.Link.State == LinkFailed {
			s.Link.ID = uuid.NewString()
		}
		s.Link.State = LinkLinking
	})

	resp, err := m.api.LinkAccount(ctx, publicToken)
	if err != nil {
		m.update(func(s *Snapshot) {
			s.Link.State = LinkFailed
			s.Link.Step = StepFailure
		})
		end()
		return m.fail(errors.Wrap(err, "[Manager.CompleteLinking] LinkAccount"))
	}

	account := resp.Account
	m.update(func(s *Snapshot) {
		s.LinkedAccounts = upsertAccount(s.LinkedAccounts, account)
		s.Link.State = LinkLinked
		s.Link.Step = StepSuccess
		s.Link.LinkedAccountID = account.ID
	})
	m.logger.Info().Str("account_id", account.ID).Str("link_status", resp.LinkStatus).Msg("account linked")
	end()

	defer m.begin(flagSyncing, account.ID)()
	if err := m.syncAccount(ctx, account.ID); err != nil {
		m.logger.Warn().Err(err).Str("account_id", account.ID).Msg("initial sync failed")
		_ = m.fail(err)
	}
	return nil
}

// LoadLinkedAccounts replaces the local collection with the backend's list.
func (m *Manager) LoadLinkedAccounts(ctx context.Context) error {
	defer m.lock()()
	defer m.begin(flagLoading, "")()

	return m.loadLinkedAccounts(ctx)
}

func (m *Manager) loadLinkedAccounts(ctx context.Context) error {
	accounts, err := m.api.GetLinkedAccounts(ctx)
	if err != nil {
		return m.fail(errors.Wrap(err, "[Manager.LoadLinkedAccounts] GetLinkedAccounts"))
	}
	m.update(func(s *Snapshot) {
		s.LinkedAccounts = append([]LinkedAccount(nil), accounts...)
	})
	return nil
}

// SyncAccount asks the backend to sync one account, then merges the trailing
// transaction window into the local collection.
func (m *Manager) SyncAccount(ctx context.Context, accountID string) error {
	defer m.lock()()
	defer m.begin(flagSyncing, accountID)()

	if err := m.syncAccount(ctx, accountID); err != nil {
		return m.fail(err)
	}
	return nil
}

func (m *Manager) syncAccount(ctx context.Context, accountID string) error {
	if _, err := m.api.SyncTransactions(ctx, accountID); err != nil {
		return errors.Wrap(err, "[Manager.SyncAccount] SyncTransactions")
	}
	fetched, err := m.fetchTransactions(ctx, accountID, m.windowDays)
	if err != nil {
		return errors.Wrap(err, "[Manager.SyncAccount] GetTransactions")
	}
	m.mergeTransactions(fetched)
	return nil
}

// SyncAllAccounts syncs every linked account one after the other. The first
// failure aborts the run and nothing fetched so far is merged.
func (m *Manager) SyncAllAccounts(ctx context.Context) error {
	defer m.lock()()
	defer m.begin(flagSyncing, "")()

	var fetched []Transaction
	for _, account := range m.snapshot.Get().LinkedAccounts {
		if _, err := m.api.SyncTransactions(ctx, account.ID); err != nil {
			return m.fail(errors.Wrapf(err, "[Manager.SyncAllAccounts] SyncTransactions %s", account.ID))
		}
		txs, err := m.fetchTransactions(ctx, account.ID, m.windowDays)
		if err != nil {
			return m.fail(errors.Wrapf(err, "[Manager.SyncAllAccounts] GetTransactions %s", account.ID))
		}
		fetched = append(fetched, txs...)
	}
	m.mergeTransactions(fetched)
	return nil
}

// LoadTransactions merges one account's last days of transactions without a
// backend sync. days <= 0 uses the configured window.
func (m *Manager) LoadTransactions(ctx context.Context, accountID string, days int) error {
	defer m.lock()()
	defer m.begin(flagLoading, "")()

	fetched, err := m.fetchTransactions(ctx, accountID, days)
	if err != nil {
		return m.fail(errors.Wrap(err, "[Manager.LoadTransactions] GetTransactions"))
	}
	m.mergeTransactions(fetched)
	return nil
}

// LoadAllTransactions is LoadTransactions for every linked account. The first
// failure aborts the run.
func (m *Manager) LoadAllTransactions(ctx context.Context, days int) error {
	defer m.lock()()
	defer m.begin(flagLoading, "")()

	return m.loadAllTransactions(ctx, days)
}

func (m *Manager) loadAllTransactions(ctx context.Context, days int) error {
	var fetched []Transaction
	for _, account := range m.snapshot.Get().LinkedAccounts {
		txs, err := m.fetchTransactions(ctx, account.ID, days)
		if err != nil {
			return m.fail(errors.Wrapf(err, "[Manager.LoadAllTransactions] GetTransactions %s", account.ID))
		}
		fetched = append(fetched, txs...)
	}
	m.mergeTransactions(fetched)
	return nil
}

// Refresh reloads the linked accounts and, if there are any, their transactions.
func (m *Manager) Refresh(ctx context.Context) error {
	defer m.lock()()
	defer m.begin(flagLoading, "")()

	if err := m.loadLinkedAccounts(ctx); err != nil {
		return err
	}
	if !m.snapshot.Get().HasLinkedAccounts() {
		return nil
	}
	return m.loadAllTransactions(ctx, m.windowDays)
}

// UnlinkAccount removes the account and its transactions once the backend has
// confirmed. On failure nothing local changes.
func (m *Manager) UnlinkAccount(ctx context.Context, accountID string) error {
	defer m.lock()()
	defer m.begin(flagLoading, "")()

	if err := m.api.UnlinkAccount(ctx, accountID); err != nil {
		return m.fail(errors.Wrap(err, "[Manager.UnlinkAccount] UnlinkAccount"))
	}

	m.update(func(s *Snapshot) {
		accounts := make([]LinkedAccount, 0, len(s.LinkedAccounts))
		for _, a := range s.LinkedAccounts {
			if a.ID != accountID {
				accounts = append(accounts, a)
			}
		}
		txs := make([]Transaction, 0, len(s.Transactions))
		for _, t := range s.Transactions {
			if t.AccountID != accountID {
				txs = append(txs, t)
			}
		}
		s.LinkedAccounts = accounts
		s.Transactions = txs
		s.SpendingSummary = SummarizeSpending(txs)
	})
	m.logger.Info().Str("account_id", accountID).Msg("account unlinked")
	return nil
}

// RefreshAccountBalance replaces one account's record with the backend's fresh copy.
func (m *Manager) RefreshAccountBalance(ctx context.Context, accountID string) error {
	defer m.lock()()
	defer m.begin(flagLoading, "")()

	account, err := m.api.RefreshAccountBalance(ctx, accountID)
	if err != nil {
		return m.fail(errors.Wrap(err, "[Manager.RefreshAccountBalance] RefreshAccountBalance"))
	}
	m.update(func(s *Snapshot) {
		s.LinkedAccounts = upsertAccount(s.LinkedAccounts, *account)
	})
	return nil
}

func (m *Manager) fetchTransactions(ctx context.Context, accountID string, days int) ([]Transaction, error) {
	if days <= 0 {
		days = m.windowDays
	}
	now := m.nowTime()
	return m.api.GetTransactions(ctx, accountID, now.AddDate(0, 0, -days), now)
}

func (m *Manager) mergeTransactions(fetched []Transaction) {
	now := m.nowTime()
	m.update(func(s *Snapshot) {
		s.Transactions = mergeTransactions(s.Transactions, fetched, now)
		s.SpendingSummary = SummarizeSpending(s.Transactions)
	})
}

// upsertAccount returns a new slice with account replacing the entry of the same ID,
// or appended when there is none.
func upsertAccount(accounts []LinkedAccount, account LinkedAccount) []LinkedAccount {
	next := make([]LinkedAccount, 0, len(accounts)+1)
	replaced := false
	for _, a := range accounts {
		if a.ID == account.ID {
			next = append(next, account)
			replaced = true
			continue
		}
		next = append(next, a)
	}
	if !replaced {
		next = append(next, account)
	}
	return next
}

type busyFlag int

const (
	flagLoading busyFlag = iota
	flagLinking
	flagSyncing
)

func (s *Snapshot) setBusy(flag busyFlag, busy bool, accountID string) {
	switch flag {
	case flagLoading:
		s.IsLoading = busy
	case flagLinking:
		s.IsLinking = busy
	case flagSyncing:
		s.IsSyncing = busy
		s.SyncingAccountID = ""
		if busy {
			s.SyncingAccountID = accountID
		}
	}
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

// begin raises flag and clears the error slot. The returned func lowers flag.
func (m *Manager) begin(flag busyFlag, accountID string) func() {
	m.update(func(s *Snapshot) {
		s.setBusy(flag, true, accountID)
		s.Err = nil
		s.ErrorMessage = ""
	})
	return func() {
		m.update(func(s *Snapshot) {
			s.setBusy(flag, false, "")
		})
	}
}

func (m *Manager) update(fn func(s *Snapshot)) {
	m.snapshot.Update(func(s Snapshot) Snapshot {
		fn(&s)
		return s
	})
}

func (m *Manager) fail(err error) error {
	m.update(func(s *Snapshot) {
		s.Err = err
		s.ErrorMessage = apiclient.Message(err)
	})
	return err
}
