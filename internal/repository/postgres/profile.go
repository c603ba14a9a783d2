package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"railpay/internal/domain"
	"railpay/internal/repository"
)

// ProfileRepository is a PostgreSQL implementation of repository.ProfileRepository.
type ProfileRepository struct {
	q Querier
}

// NewProfileRepository creates a new PostgreSQL profile repository.
func NewProfileRepository(db *sql.DB) *ProfileRepository {
	return &ProfileRepository{q: db}
}

const profileColumns = `
	id, full_name, phone, dob, nin, verification_status, verified_at,
	wallet_address, created_at
`

// GetByID retrieves a profile by user ID.
func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`

	profile, err := r.scanProfile(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return profile, nil
}

// GetByWalletAddress retrieves a profile by wallet address. Addresses are
// stored and matched lowercased. Returns nil if no profile owns the address.
func (r *ProfileRepository) GetByWalletAddress(ctx context.Context, address string) (*domain.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE wallet_address = $1`

	profile, err := r.scanProfile(r.q.QueryRowContext(ctx, query, strings.ToLower(address)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return profile, nil
}

// UpdateVerification records a verification outcome on the profile.
func (r *ProfileRepository) UpdateVerification(ctx context.Context, id string, status domain.VerificationStatus, nin, fullName, dob, phone string, at time.Time) error {
	query := `
		UPDATE profiles
		SET verification_status = $1, nin = $2, full_name = $3, dob = $4,
		    phone = $5, verified_at = $6
		WHERE id = $7
	`

	result, err := r.q.ExecContext(ctx, query, status, nin, fullName, dob, phone, at, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *ProfileRepository) scanProfile(row rowScanner) (*domain.Profile, error) {
	var (
		profile    domain.Profile
		phone      sql.NullString
		dob        sql.NullString
		nin        sql.NullString
		verifiedAt sql.NullTime
		wallet     sql.NullString
	)

	err := row.Scan(
		&profile.ID,
		&profile.FullName,
		&phone,
		&dob,
		&nin,
		&profile.Verification,
		&verifiedAt,
		&wallet,
		&profile.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	profile.Phone = phone.String
	profile.DOB = dob.String
	profile.NIN = nin.String
	profile.WalletAddress = wallet.String
	if verifiedAt.Valid {
		t := verifiedAt.Time
		profile.VerifiedAt = &t
	}
	return &profile, nil
}
