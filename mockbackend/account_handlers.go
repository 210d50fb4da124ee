package mockbackend

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-saverr/accounts"
	ierrors "github.com/jrsteele09/go-saverr/internal/errors"
	"github.com/jrsteele09/go-saverr/internal/utils"
)

// accountIndex finds accountID among userID's accounts. Called with the lock held.
func (s *Server) accountIndex(userID, accountID string) (int, error) {
	for i, a := range s.accounts[userID] {
		if a.ID == accountID {
			return i, nil
		}
	}
	return -1, ierrors.Wrapf(ierrors.ErrAccountNotFound, "account %s", accountID)
}

func writeAccountError(w http.ResponseWriter, err error) {
	if errors.Is(err, ierrors.ErrAccountNotFound) {
		writeError(w, http.StatusNotFound, codeAccountNotFound, "Account not found")
		return
	}
	writeError(w, http.StatusInternalServerError, codeInternal, "Internal server error")
}

// parseDateQuery reads an optional yyyy-MM-dd bound; the zero time means unbounded.
func parseDateQuery(r *http.Request, name string) (time.Time, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return time.Time{}, nil
	}
	return time.Parse(accounts.DateLayout, v)
}

func (s *Server) linkTokenHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, accounts.LinkTokenResponse{LinkToken: "link-sandbox-" + uuid.NewString()})
	}
}

func (s *Server) linkHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req accounts.LinkRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.PublicToken) == "" {
			writeError(w, http.StatusBadRequest, codeInvalidPublicToken, "public_token is required")
			return
		}
		userID := userIDFrom(r.Context())

		s.lock.Lock()
		defer s.lock.Unlock()

		account := s.newAccount(userID)
		s.accounts[userID] = append(s.accounts[userID], account)
		s.transactions[account.ID] = s.generateTransactions(account)
		s.logger.Info().Str("account_id", account.ID).Int("transactions", len(s.transactions[account.ID])).Msg("account linked")

		writeJSON(w, http.StatusOK, accounts.AccountLinkResponse{Account: account, LinkStatus: "connected"})
	}
}

func (s *Server) syncHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID := r.PathValue("id")

		s.lock.Lock()
		defer s.lock.Unlock()

		if _, err := s.accountIndex(userIDFrom(r.Context()), accountID); err != nil {
			writeAccountError(w, err)
			return
		}
		n := len(s.transactions[accountID])
		writeJSON(w, http.StatusOK, accounts.SyncResponse{
			Synced: n,
			Added:  n,
			Cursor: utils.Ptr("cursor_" + uuid.NewString()[:8]),
		})
	}
}

func (s *Server) transactionsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID := r.PathValue("id")
		start, err := parseDateQuery(r, "start_date")
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidField, "start_date must be yyyy-MM-dd")
			return
		}
		end, err := parseDateQuery(r, "end_date")
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidField, "end_date must be yyyy-MM-dd")
			return
		}

		s.lock.Lock()
		defer s.lock.Unlock()

		if _, err := s.accountIndex(userIDFrom(r.Context()), accountID); err != nil {
			writeAccountError(w, err)
			return
		}
		txs := make([]accounts.Transaction, 0, len(s.transactions[accountID]))
		for _, tx := range s.transactions[accountID] {
			d, ok := tx.TransactionDate()
			if ok && ((!start.IsZero() && d.Before(start)) || (!end.IsZero() && d.After(end))) {
				continue
			}
			txs = append(txs, tx)
		}
		writeJSON(w, http.StatusOK, accounts.TransactionsResponse{Transactions: txs, TotalCount: utils.Ptr(len(txs))})
	}
}

func (s *Server) accountsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.lock.Lock()
		defer s.lock.Unlock()

		list := append([]accounts.LinkedAccount{}, s.accounts[userIDFrom(r.Context())]...)
		writeJSON(w, http.StatusOK, accounts.AccountsResponse{Accounts: list})
	}
}

func (s *Server) refreshBalanceHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := userIDFrom(r.Context())

		s.lock.Lock()
		defer s.lock.Unlock()

		i, err := s.accountIndex(userID, r.PathValue("id"))
		if err != nil {
			writeAccountError(w, err)
			return
		}
		account := &s.accounts[userID][i]
		s.jitterBalance(account)
		writeJSON(w, http.StatusOK, accounts.AccountResponse{Account: *account})
	}
}

func (s *Server) unlinkHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := userIDFrom(r.Context())
		accountID := r.PathValue("id")

		s.lock.Lock()
		defer s.lock.Unlock()

		i, err := s.accountIndex(userID, accountID)
		if err != nil {
			writeAccountError(w, err)
			return
		}
		list := s.accounts[userID]
		s.accounts[userID] = append(list[:i:i], list[i+1:]...)
		delete(s.transactions, accountID)
		s.logger.Info().Str("account_id", accountID).Msg("account unlinked")

		writeJSON(w, http.StatusOK, accounts.UnlinkResponse{Success: true})
	}
}
