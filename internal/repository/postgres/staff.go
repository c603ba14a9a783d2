package postgres

import (
	"context"
	"database/sql"
	"errors"

	"railpay/internal/domain"
)

// StaffRepository is a PostgreSQL implementation of repository.StaffRepository.
type StaffRepository struct {
	q Querier
}

// NewStaffRepository creates a new PostgreSQL staff repository.
func NewStaffRepository(db *sql.DB) *StaffRepository {
	return &StaffRepository{q: db}
}

// GetByUserID retrieves the active staff record for a user.
// Returns nil if the user is not staff.
func (r *StaffRepository) GetByUserID(ctx context.Context, userID string) (*domain.Staff, error) {
	query := `
		SELECT id, user_id, role, active
		FROM staff WHERE user_id = $1
	`

	var staff domain.Staff
	err := r.q.QueryRowContext(ctx, query, userID).Scan(
		&staff.ID,
		&staff.UserID,
		&staff.Role,
		&staff.Active,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &staff, nil
}
