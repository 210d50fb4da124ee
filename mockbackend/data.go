package mockbackend

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-saverr/accounts"
	"github.com/jrsteele09/go-saverr/internal/utils"
	"github.com/shopspring/decimal"
)

type accountTemplate struct {
	name      string
	official  string
	kind      string
	subtype   string
	mask      string
	balance   string
	available bool
}

// Linking cycles through these, one per link.
var accountTemplates = []accountTemplate{
	{"Checking", "Total Checking", "depository", "checking", "1234", "5432.10", true},
	{"Savings", "Chase Savings", "depository", "savings", "5678", "12500.00", true},
	{"Sapphire Preferred", "Chase Sapphire Preferred", "credit", "credit card", "9012", "1250.50", false},
}

const (
	institutionID   = "ins_3"
	institutionName = "Chase"
	currencyCode    = "USD"
	payrollAmount   = "-3500.00"
)

type merchant struct {
	name     string
	category string
	minCents int
	maxCents int
}

var merchants = []merchant{
	{"Uber Eats", "Food and Drink", 1500, 4500},
	{"Starbucks", "Food and Drink", 500, 1200},
	{"Whole Foods", "Food and Drink", 5000, 15000},
	{"Amazon", "Shops", 2000, 20000},
	{"Target", "Shops", 3000, 10000},
	{"Netflix", "Service", 1500, 2000},
	{"Spotify", "Service", 1000, 1500},
	{"Shell Gas Station", "Travel", 4000, 8000},
	{"Uber", "Travel", 1500, 3500},
	{"CVS Pharmacy", "Healthcare", 1000, 5000},
	{"Planet Fitness", "Recreation", 2500, 3000},
	{"Chipotle", "Food and Drink", 1200, 1800},
	{"Home Depot", "Shops", 5000, 20000},
}

// newAccount builds the next account for userID. Called with the lock held.
func (s *Server) newAccount(userID string) accounts.LinkedAccount {
	t := accountTemplates[len(s.accounts[userID])%len(accountTemplates)]
	balance := decimal.RequireFromString(t.balance)
	a := accounts.LinkedAccount{
		ID:              uuid.NewString(),
		AccountID:       "acc_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12],
		Name:            t.name,
		OfficialName:    utils.Ptr(t.official),
		Type:            t.kind,
		Subtype:         utils.Ptr(t.subtype),
		Mask:            utils.Ptr(t.mask),
		InstitutionID:   utils.Ptr(institutionID),
		InstitutionName: utils.Ptr(institutionName),
		CurrentBalance:  utils.Ptr(balance),
		ISOCurrencyCode: utils.Ptr(currencyCode),
	}
	if t.available {
		a.AvailableBalance = utils.Ptr(balance)
	}
	return a
}

// generateTransactions fills the history window with card spend, plus payroll
// deposits on checking accounts.
func (s *Server) generateTransactions(a accounts.LinkedAccount) []accounts.Transaction {
	now := s.now()
	var txs []accounts.Transaction
	for day := 0; day < s.historyDays; day++ {
		date := now.AddDate(0, 0, -day).Format(accounts.DateLayout)
		for n := s.rng.IntN(3); n > 0; n-- {
			m := merchants[s.rng.IntN(len(merchants))]
			cents := m.minCents + s.rng.IntN(m.maxCents-m.minCents+1)
			tx := s.transaction(a.ID, decimal.New(int64(cents), -2), date, strings.ToUpper(m.name), m.category)
			tx.MerchantName = utils.Ptr(m.name)
			tx.PaymentChannel = utils.Ptr("in store")
			tx.Pending = day == 0 && s.rng.IntN(2) == 0
			txs = append(txs, tx)
		}
	}

	if utils.Value(a.Subtype) == "checking" {
		oldest := now.AddDate(0, 0, -(s.historyDays - 1))
		for month := 0; month < 3; month++ {
			payday := time.Date(now.Year(), now.Month()-time.Month(month), 2, 0, 0, 0, 0, now.Location())
			if payday.Before(oldest) || payday.After(now) {
				continue
			}
			tx := s.transaction(a.ID, decimal.RequireFromString(payrollAmount), payday.Format(accounts.DateLayout),
				"DIRECT DEPOSIT - EMPLOYER", "Transfer", "Payroll")
			tx.PaymentChannel = utils.Ptr("other")
			txs = append(txs, tx)
		}
	}

	sort.SliceStable(txs, func(i, j int) bool { return txs[i].Date > txs[j].Date })
	return txs
}

func (s *Server) transaction(accountID string, amount decimal.Decimal, date, name string, category ...string) accounts.Transaction {
	return accounts.Transaction{
		ID:              uuid.NewString(),
		TransactionID:   "tx_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8],
		AccountID:       accountID,
		Amount:          amount,
		Date:            date,
		Name:            name,
		Category:        category,
		ISOCurrencyCode: utils.Ptr(currencyCode),
	}
}

// jitterBalance moves the balances by up to 100.00 either way.
func (s *Server) jitterBalance(a *accounts.LinkedAccount) {
	delta := decimal.New(int64(s.rng.IntN(20_001)-10_000), -2)
	if a.CurrentBalance != nil {
		a.CurrentBalance = utils.Ptr(a.CurrentBalance.Add(delta))
	}
	if a.AvailableBalance != nil {
		a.AvailableBalance = utils.Ptr(a.AvailableBalance.Add(delta))
	}
}
