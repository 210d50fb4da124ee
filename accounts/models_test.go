package accounts_test

import (
	"encoding/json"
	"testing"

	"github.com/jrsteele09/go-saverr/accounts"
	"github.com/jrsteele09/go-saverr/internal/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestTransaction_SignConvention(t *testing.T) {
	income := tx("pay", checkingID, "-3500.00", "2026-03-01", "Transfer")
	require.True(t, income.IsIncome())
	require.Equal(t, "+3500.00", income.DisplayAmount())
	require.Equal(t, "3500", income.AbsoluteAmount().String())

	spend := tx("coffee", checkingID, "45.99", "2026-03-02", "Food and Drink")
	require.False(t, spend.IsIncome())
	require.Equal(t, "-45.99", spend.DisplayAmount())
}

func TestTransaction_DecodesProviderJSON(t *testing.T) {
	var got accounts.Transaction
	data := `{"id":"t1","transaction_id":"tx_1","account_id":"a1","amount":-3500.00,"date":"2026-03-01",
		"name":"DIRECT DEPOSIT","category":["Transfer","Payroll"],"pending":false}`
	require.NoError(t, json.Unmarshal([]byte(data), &got))
	require.True(t, got.IsIncome())
	require.Equal(t, "Transfer", got.PrimaryCategory())
	require.Equal(t, "DIRECT DEPOSIT", got.DisplayName())

	d, ok := got.TransactionDate()
	require.True(t, ok)
	require.Equal(t, 1, d.Day())

	got.MerchantName = utils.Ptr("Employer Inc")
	require.Equal(t, "Employer Inc", got.DisplayName())
	got.Date = "03/01/2026"
	_, ok = got.TransactionDate()
	require.False(t, ok)
}

func TestLinkedAccount_Category(t *testing.T) {
	tests := []struct {
		accountType string
		subtype     string
		want        accounts.Category
	}{
		{"depository", "checking", accounts.CategoryChecking},
		{"depository", "savings", accounts.CategorySavings},
		{"credit", "credit card", accounts.CategoryCredit},
		{"investment", "ira", accounts.CategoryInvestment},
		{"brokerage", "", accounts.CategoryInvestment},
		{"loan", "mortgage", accounts.CategoryChecking},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, account("a", tt.accountType, tt.subtype).Category(), tt.accountType)
	}
}

func TestLinkedAccount_DisplayBalance(t *testing.T) {
	a := account("a", "depository", "checking")
	require.Equal(t, "5432.10", a.DisplayBalance().StringFixed(2))

	a.AvailableBalance = utils.Ptr(decimal.RequireFromString("5000"))
	require.Equal(t, "5000.00", a.DisplayBalance().StringFixed(2))

	a.AvailableBalance, a.CurrentBalance = nil, nil
	require.True(t, a.DisplayBalance().IsZero())
}

func TestSummarizeSpending(t *testing.T) {
	pending := tx("p", checkingID, "999.00", "2026-03-10", "Shops")
	pending.Pending = true

	summary := accounts.SummarizeSpending([]accounts.Transaction{
		tx("1", checkingID, "10.00", "2026-03-01", "Food and Drink"),
		tx("2", checkingID, "15.50", "2026-03-02", "Food and Drink"),
		tx("3", checkingID, "40.00", "2026-03-03", "Shops"),
		tx("4", checkingID, "3.00", "2026-03-04", ""),
		tx("5", checkingID, "1.00", "2026-03-05", "Gardening"),
		tx("6", checkingID, "-3500.00", "2026-03-01", "Transfer"),
		pending,
	})

	require.Len(t, summary, 4)
	require.Equal(t, "Shops", summary[0].Category)
	require.Equal(t, "Food and Drink", summary[1].Category)
	require.Equal(t, "25.50", summary[1].Amount.StringFixed(2))
	require.Equal(t, 2, summary[1].TransactionCount)
	require.Equal(t, "fork.knife", summary[1].Icon)
	require.Equal(t, "Other", summary[2].Category)
	require.Equal(t, "ellipsis.circle", summary[2].Icon)
	require.Equal(t, "Gardening", summary[3].Category)
	require.Equal(t, "questionmark.circle", summary[3].Icon)
}

func TestSnapshot_Aggregates(t *testing.T) {
	pending := tx("p", checkingID, "50.00", "2026-03-10", "Shops")
	pending.Pending = true
	snap := accounts.Snapshot{Transactions: []accounts.Transaction{
		pending,
		tx("1", checkingID, "45.99", "2026-03-09", "Shops"),
		tx("2", checkingID, "-3500.00", "2026-03-01", "Transfer"),
		tx("3", checkingID, "-20.00", "2026-02-28", "Transfer"),
	}}

	require.Equal(t, "45.99", snap.TotalSpending().StringFixed(2))
	require.Equal(t, "3520.00", snap.TotalIncome().StringFixed(2))
	require.Len(t, snap.RecentTransactions(2), 2)
	require.Len(t, snap.RecentTransactions(10), 4)
	require.Empty(t, snap.RecentTransactions(-1))
	require.False(t, snap.HasLinkedAccounts())
}
