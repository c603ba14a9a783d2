package postgres

import (
	"context"
	"database/sql"
	"errors"

	"railpay/internal/domain"
	"railpay/internal/repository"
)

// PassRepository is a PostgreSQL implementation of repository.PassRepository.
type PassRepository struct {
	q Querier
}

// NewPassRepository creates a new PostgreSQL pass repository.
func NewPassRepository(db *sql.DB) *PassRepository {
	return &PassRepository{q: db}
}

// NewPassRepositoryWithTx creates a pass repository using a transaction.
func NewPassRepositoryWithTx(tx *sql.Tx) *PassRepository {
	return &PassRepository{q: tx}
}

const passColumns = `
	id, user_id, pass_type, status, starts_at, expires_at,
	ledger_tx_hash, ledger_pass_id, created_at
`

// Create persists a new pass. The unique index on ledger_pass_id turns
// a concurrent duplicate mirror insert into ErrDuplicateKey.
func (r *PassRepository) Create(ctx context.Context, pass *domain.Pass) error {
	query := `
		INSERT INTO passes (` + passColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.q.ExecContext(ctx, query,
		pass.ID,
		pass.UserID,
		pass.PassType,
		pass.Status,
		pass.StartsAt,
		pass.ExpiresAt,
		pass.LedgerTxHash,
		nullUint64(pass.LedgerPassID),
		pass.CreatedAt,
	)

	return mapWriteErr(err)
}

// GetByID retrieves a pass by ID.
func (r *PassRepository) GetByID(ctx context.Context, id string) (*domain.Pass, error) {
	query := `SELECT ` + passColumns + ` FROM passes WHERE id = $1`

	pass, err := r.scanPass(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return pass, nil
}

// GetByLedgerPassID retrieves a pass by its ledger natural key.
// Returns nil if no pass carries the id.
func (r *PassRepository) GetByLedgerPassID(ctx context.Context, passID uint64) (*domain.Pass, error) {
	query := `SELECT ` + passColumns + ` FROM passes WHERE ledger_pass_id = $1`

	pass, err := r.scanPass(r.q.QueryRowContext(ctx, query, int64(passID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return pass, nil
}

// ListByUser retrieves all passes owned by a user, newest first.
func (r *PassRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Pass, error) {
	query := `SELECT ` + passColumns + ` FROM passes WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.q.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var passes []*domain.Pass
	for rows.Next() {
		pass, err := r.scanPass(rows)
		if err != nil {
			return nil, err
		}
		passes = append(passes, pass)
	}
	return passes, rows.Err()
}

func (r *PassRepository) scanPass(row rowScanner) (*domain.Pass, error) {
	var (
		pass   domain.Pass
		passID sql.NullInt64
	)

	err := row.Scan(
		&pass.ID,
		&pass.UserID,
		&pass.PassType,
		&pass.Status,
		&pass.StartsAt,
		&pass.ExpiresAt,
		&pass.LedgerTxHash,
		&passID,
		&pass.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if passID.Valid {
		v := uint64(passID.Int64)
		pass.LedgerPassID = &v
	}
	return &pass, nil
}
