package postgres

import (
	"context"
	"database/sql"
	"encoding/json"

	"railpay/internal/domain"
)

// AuditRepository is a PostgreSQL implementation of repository.AuditRepository.
type AuditRepository struct {
	q Querier
}

// NewAuditRepository creates a new PostgreSQL audit repository.
func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{q: db}
}

// NewAuditRepositoryWithTx creates an audit repository using a transaction.
func NewAuditRepositoryWithTx(tx *sql.Tx) *AuditRepository {
	return &AuditRepository{q: tx}
}

// Append persists one audit entry. Metadata is stored as JSONB.
func (r *AuditRepository) Append(ctx context.Context, entry *domain.AuditEntry) error {
	metadata, err := json.Marshal(entry.Metadata)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO audit_log (id, admin_id, action, resource_type, resource_id, description, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = r.q.ExecContext(ctx, query,
		entry.ID,
		entry.AdminID,
		entry.Action,
		entry.ResourceType,
		entry.ResourceID,
		entry.Description,
		metadata,
		entry.CreatedAt,
	)
	return err
}

// ListRecent retrieves the most recent audit entries, newest first.
func (r *AuditRepository) ListRecent(ctx context.Context, limit int) ([]*domain.AuditEntry, error) {
	query := `
		SELECT id, admin_id, action, resource_type, resource_id, description, metadata, created_at
		FROM audit_log ORDER BY created_at DESC LIMIT $1
	`

	rows, err := r.q.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.AuditEntry
	for rows.Next() {
		var (
			entry    domain.AuditEntry
			metadata []byte
		)
		err := rows.Scan(
			&entry.ID,
			&entry.AdminID,
			&entry.Action,
			&entry.ResourceType,
			&entry.ResourceID,
			&entry.Description,
			&metadata,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &entry.Metadata); err != nil {
				return nil, err
			}
		}
		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}
