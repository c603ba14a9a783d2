package domain

import "time"

// PassStatus represents the stored status of a pass.
type PassStatus string

const (
	PassStatusActive  PassStatus = "active"
	PassStatusExpired PassStatus = "expired"
)

// PassType represents the class of a travel pass.
type PassType string

const (
	PassTypeDaily   PassType = "daily"
	PassTypeWeekly  PassType = "weekly"
	PassTypeMonthly PassType = "monthly"
)

// Duration returns the validity window implied by the pass class.
// The window is fully determined by the class and never independently settable.
func (t PassType) Duration() time.Duration {
	switch t {
	case PassTypeDaily:
		return 24 * time.Hour
	case PassTypeWeekly:
		return 7 * 24 * time.Hour
	case PassTypeMonthly:
		return 30 * 24 * time.Hour
	}
	return 0
}

// LedgerEnum returns the on-chain enum value for the pass class.
func (t PassType) LedgerEnum() (uint8, bool) {
	switch t {
	case PassTypeDaily:
		return 0, true
	case PassTypeWeekly:
		return 1, true
	case PassTypeMonthly:
		return 2, true
	}
	return 0, false
}

// PassTypeFromLedgerEnum maps an on-chain pass type enum back to its class.
func PassTypeFromLedgerEnum(v uint8) (PassType, bool) {
	switch v {
	case 0:
		return PassTypeDaily, true
	case 1:
		return PassTypeWeekly, true
	case 2:
		return PassTypeMonthly, true
	}
	return "", false
}

// Pass represents a time-boxed travel entitlement. Immutable once created;
// status is derived from wall clock against ExpiresAt.
type Pass struct {
	ID           string
	UserID       string
	PassType     PassType
	Status       PassStatus
	StartsAt     time.Time
	ExpiresAt    time.Time
	LedgerTxHash string
	LedgerPassID *uint64
	CreatedAt    time.Time
}

// ActiveAt reports whether the pass is valid at the given instant.
func (p *Pass) ActiveAt(now time.Time) bool {
	return p.Status == PassStatusActive && now.Before(p.ExpiresAt)
}
