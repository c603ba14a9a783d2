package domain

import "time"

// VerificationStatus represents the identity-verification state of a profile.
// Self-attested is distinct from verified: it records that the external NIN
// lookup was unavailable and the user's own claim was accepted instead.
type VerificationStatus string

const (
	VerificationUnverified   VerificationStatus = "unverified"
	VerificationSelfAttested VerificationStatus = "self_attested"
	VerificationVerified     VerificationStatus = "verified"
)

// Profile represents a passenger profile with its ledger-addressable identity.
type Profile struct {
	ID            string
	FullName      string
	Phone         string
	DOB           string
	NIN           string
	Verification  VerificationStatus
	VerifiedAt    *time.Time
	WalletAddress string // hex address, empty when no wallet is connected
	CreatedAt     time.Time
}

// CanSettle reports whether the profile meets the hard preconditions for
// a ledger settlement: an identity-verification outcome on file and a
// wallet address to mint against.
func (p *Profile) CanSettle() bool {
	return p.Verification != VerificationUnverified && p.WalletAddress != ""
}
