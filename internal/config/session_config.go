package config

import "time"

type SessionConfig interface {
	GetRefreshLeadTime() time.Duration
	GetMinPasswordLength() int
}

type Session struct{}

var _ SessionConfig = Session{}

// GetRefreshLeadTime is how long before expiry a stored credential is refreshed.
func (Session) GetRefreshLeadTime() time.Duration {
	return GetDurationEnv("REFRESH_LEAD_TIME", 5*time.Minute)
}

func (Session) GetMinPasswordLength() int {
	return 8
}
