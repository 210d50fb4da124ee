package config

type LinkConfig interface {
	GetTransactionWindowDays() int
	GetRecentTransactionLimit() int
}

type Link struct{}

var _ LinkConfig = Link{}

func (Link) GetTransactionWindowDays() int {
	days := GetIntEnv("TRANSACTION_WINDOW_DAYS", 90)
	if days <= 0 {
		return 90
	}
	return days
}

func (Link) GetRecentTransactionLimit() int {
	limit := GetIntEnv("RECENT_TRANSACTION_LIMIT", 10)
	if limit <= 0 {
		return 10
	}
	return limit
}
