package postgres

import (
	"context"
	"database/sql"
	"encoding/json"

	"railpay/internal/domain"
)

// VerificationRepository is a PostgreSQL implementation of repository.VerificationRepository.
type VerificationRepository struct {
	q Querier
}

// NewVerificationRepository creates a new PostgreSQL verification repository.
func NewVerificationRepository(db *sql.DB) *VerificationRepository {
	return &VerificationRepository{q: db}
}

// Append persists one verification attempt. Attempts are append-only.
func (r *VerificationRepository) Append(ctx context.Context, v *domain.NINVerification) error {
	request, err := json.Marshal(v.RequestPayload)
	if err != nil {
		return err
	}
	response, err := json.Marshal(v.ResponsePayload)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO nin_verifications (id, user_id, nin, provider, request_payload, response_payload, success, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = r.q.ExecContext(ctx, query,
		v.ID,
		v.UserID,
		v.NIN,
		v.Provider,
		request,
		response,
		v.Success,
		v.CreatedAt,
	)
	return err
}
