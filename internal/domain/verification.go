package domain

import "time"

// VerificationProvider identifies how a NIN verification attempt was resolved.
type VerificationProvider string

const (
	ProviderKorapay      VerificationProvider = "korapay"
	ProviderSelfAttested VerificationProvider = "self_attested"
)

// NINVerification is one verification attempt, logged regardless of outcome.
type NINVerification struct {
	ID              string
	UserID          string
	NIN             string
	Provider        VerificationProvider
	RequestPayload  map[string]any
	ResponsePayload map[string]any
	Success         bool
	CreatedAt       time.Time
}
