package domain

import "encoding/json"

const (
	DefaultCooldownDays = 7
	MinCooldownDays     = 1
	MaxCooldownDays     = 365
)

// StoreSettings holds per-store signup form configuration.
type StoreSettings struct {
	SignupForm       json.RawMessage
	SignupFormActive bool
	CooldownDays     int
}
