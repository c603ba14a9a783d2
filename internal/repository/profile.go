package repository

import (
	"context"
	"time"

	"railpay/internal/domain"
)

// ProfileRepository defines the persistence operations for profiles.
type ProfileRepository interface {
	// GetByID retrieves a profile by user ID.
	GetByID(ctx context.Context, id string) (*domain.Profile, error)

	// GetByWalletAddress retrieves a profile by wallet address (matched
	// lowercased). Returns nil if no profile owns the address.
	GetByWalletAddress(ctx context.Context, address string) (*domain.Profile, error)

	// UpdateVerification records a verification outcome on the profile.
	UpdateVerification(ctx context.Context, id string, status domain.VerificationStatus, nin, fullName, dob, phone string, at time.Time) error
}

// StaffRepository defines lookups for back-office staff accounts.
type StaffRepository interface {
	// GetByUserID retrieves the active staff record for a user.
	// Returns nil if the user is not staff.
	GetByUserID(ctx context.Context, userID string) (*domain.Staff, error)
}

// VerificationRepository appends NIN verification attempt logs.
type VerificationRepository interface {
	// Append persists one verification attempt. Attempts are never updated.
	Append(ctx context.Context, v *domain.NINVerification) error
}

// AuditRepository appends admin audit entries. The audit log is append-only.
type AuditRepository interface {
	// Append persists one audit entry.
	Append(ctx context.Context, entry *domain.AuditEntry) error

	// ListRecent retrieves the most recent entries, newest first.
	ListRecent(ctx context.Context, limit int) ([]*domain.AuditEntry, error)
}
