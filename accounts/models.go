package accounts

import (
	"sort"
	"time"

	"github.com/jrsteele09/go-saverr/internal/utils"
	"github.com/shopspring/decimal"
)

// DateLayout is the wire format of transaction dates and query bounds.
const DateLayout = "2006-01-02"

type Category string

const (
	CategoryChecking   Category = "checking"
	CategorySavings    Category = "savings"
	CategoryCredit     Category = "credit"
	CategoryInvestment Category = "investment"
)

// LinkedAccount is one externally linked financial account. ID is unique within
// a user's linked accounts.
type LinkedAccount struct {
	ID               string           `json:"id"`
	AccountID        string           `json:"account_id"`
	Name             string           `json:"name"`
	OfficialName     *string          `json:"official_name,omitempty"`
	Type             string           `json:"type"`
	Subtype          *string          `json:"subtype,omitempty"`
	Mask             *string          `json:"mask,omitempty"`
	InstitutionID    *string          `json:"institution_id,omitempty"`
	InstitutionName  *string          `json:"institution_name,omitempty"`
	CurrentBalance   *decimal.Decimal `json:"current_balance,omitempty"`
	AvailableBalance *decimal.Decimal `json:"available_balance,omitempty"`
	ISOCurrencyCode  *string          `json:"iso_currency_code,omitempty"`
}

// Category maps the provider's type and subtype onto the app's account categories.
func (a LinkedAccount) Category() Category {
	switch a.Type {
	case "depository":
		if utils.Value(a.Subtype) == "savings" {
			return CategorySavings
		}
		return CategoryChecking
	case "credit":
		return CategoryCredit
	case "investment", "brokerage":
		return CategoryInvestment
	}
	return CategoryChecking
}

// DisplayBalance prefers the available balance, then the current one.
func (a LinkedAccount) DisplayBalance() decimal.Decimal {
	if b := utils.Coalesce(a.AvailableBalance, a.CurrentBalance); b != nil {
		return *b
	}
	return decimal.Zero
}

// Transaction follows the provider's sign convention: a positive Amount is money
// leaving the account, a negative Amount is money coming in.
type Transaction struct {
	ID              string          `json:"id"`
	TransactionID   string          `json:"transaction_id"`
	AccountID       string          `json:"account_id"`
	Amount          decimal.Decimal `json:"amount"`
	Date            string          `json:"date"`
	Name            string          `json:"name"`
	MerchantName    *string         `json:"merchant_name,omitempty"`
	Category        []string        `json:"category,omitempty"`
	Pending         bool            `json:"pending"`
	PaymentChannel  *string         `json:"payment_channel,omitempty"`
	ISOCurrencyCode *string         `json:"iso_currency_code,omitempty"`
	LogoURL         *string         `json:"logo_url,omitempty"`
	Website         *string         `json:"website,omitempty"`
}

func (t Transaction) IsIncome() bool {
	return t.Amount.IsNegative()
}

func (t Transaction) AbsoluteAmount() decimal.Decimal {
	return t.Amount.Abs()
}

// PrimaryCategory is the first category, or "" when there is none.
func (t Transaction) PrimaryCategory() string {
	if len(t.Category) == 0 {
		return ""
	}
	return t.Category[0]
}

func (t Transaction) TransactionDate() (time.Time, bool) {
	d, err := time.Parse(DateLayout, t.Date)
	return d, err == nil
}

func (t Transaction) DisplayName() string {
	if t.MerchantName != nil {
		return *t.MerchantName
	}
	return t.Name
}

// DisplayAmount flips the provider sign for display: income reads "+3500.00",
// spending reads "-45.99".
func (t Transaction) DisplayAmount() string {
	abs := t.AbsoluteAmount().StringFixed(2)
	switch {
	case t.IsIncome():
		return "+" + abs
	case t.Amount.IsZero():
		return abs
	}
	return "-" + abs
}

// sortByDateDesc orders newest first. Undated transactions are treated as dated now.
func sortByDateDesc(txs []Transaction, now time.Time) {
	dateOf := func(t Transaction) time.Time {
		if d, ok := t.TransactionDate(); ok {
			return d
		}
		return now
	}
	sort.SliceStable(txs, func(i, j int) bool {
		return dateOf(txs[i]).After(dateOf(txs[j]))
	})
}

// mergeTransactions appends fetched transactions whose IDs are not already present.
func mergeTransactions(existing, fetched []Transaction, now time.Time) []Transaction {
	seen := make(map[string]struct{}, len(existing)+len(fetched))
	merged := make([]Transaction, 0, len(existing)+len(fetched))
	for _, list := range [][]Transaction{existing, fetched} {
		for _, t := range list {
			if _, dup := seen[t.ID]; dup {
				continue
			}
			seen[t.ID] = struct{}{}
			merged = append(merged, t)
		}
	}
	sortByDateDesc(merged, now)
	return merged
}

// SpendingSummary is the settled spending of one primary category.
type SpendingSummary struct {
	Category         string
	Amount           decimal.Decimal
	TransactionCount int
	Icon             string
	Color            string
}

type categoryStyle struct {
	icon  string
	color string
}

const otherCategory = "Other"

var (
	categoryStyles = map[string]categoryStyle{
		"Food and Drink": {"fork.knife", "#FF6B6B"},
		"Shops":          {"bag", "#4ECDC4"},
		"Travel":         {"airplane", "#45B7D1"},
		"Transfer":       {"arrow.left.arrow.right", "#96CEB4"},
		"Payment":        {"creditcard", "#FFEAA7"},
		"Recreation":     {"gamecontroller", "#DDA0DD"},
		"Service":        {"wrench.and.screwdriver", "#87CEEB"},
		"Healthcare":     {"cross.case", "#98D8C8"},
		"Bank Fees":      {"building.columns", "#A0AEC0"},
		"Community":      {"person.3", "#E8DAEF"},
		otherCategory:    {"ellipsis.circle", "#718096"},
	}
	unknownCategoryStyle = categoryStyle{"questionmark.circle", "#718096"}
)

// SummarizeSpending groups settled spending by primary category, largest first.
func SummarizeSpending(txs []Transaction) []SpendingSummary {
	byCategory := make(map[string]*SpendingSummary)
	for _, t := range txs {
		if t.IsIncome() || t.Pending {
			continue
		}
		category := t.PrimaryCategory()
		if category == "" {
			category = otherCategory
		}
		row, ok := byCategory[category]
		if !ok {
			style, known := categoryStyles[category]
			if !known {
				style = unknownCategoryStyle
			}
			row = &SpendingSummary{Category: category, Amount: decimal.Zero, Icon: style.icon, Color: style.color}
			byCategory[category] = row
		}
		row.Amount = row.Amount.Add(t.AbsoluteAmount())
		row.TransactionCount++
	}

	summary := make([]SpendingSummary, 0, len(byCategory))
	for _, row := range byCategory {
		summary = append(summary, *row)
	}
	sort.Slice(summary, func(i, j int) bool {
		if c := summary[i].Amount.Cmp(summary[j].Amount); c != 0 {
			return c > 0
		}
		return summary[i].Category < summary[j].Category
	})
	return summary
}

// Wire shapes of the /accounts endpoints.

type LinkTokenResponse struct {
	LinkToken string `json:"link_token"`
}

type LinkRequest struct {
	PublicToken string `json:"public_token"`
}

type AccountLinkResponse struct {
	Account    LinkedAccount `json:"account"`
	LinkStatus string        `json:"link_status"`
}

type SyncResponse struct {
	Synced   int     `json:"synced"`
	Added    int     `json:"added"`
	Modified int     `json:"modified"`
	Removed  int     `json:"removed"`
	HasMore  bool    `json:"has_more"`
	Cursor   *string `json:"cursor,omitempty"`
}

type TransactionsResponse struct {
	Transactions []Transaction `json:"transactions"`
	TotalCount   *int          `json:"total_count,omitempty"`
}

type AccountsResponse struct {
	Accounts []LinkedAccount `json:"accounts"`
}

type AccountResponse struct {
	Account LinkedAccount `json:"account"`
}

type UnlinkResponse struct {
	Success bool `json:"success"`
}
