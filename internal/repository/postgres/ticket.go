package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"railpay/internal/domain"
	"railpay/internal/repository"
)

// TicketRepository is a PostgreSQL implementation of repository.TicketRepository.
type TicketRepository struct {
	q Querier
}

// NewTicketRepository creates a new PostgreSQL ticket repository.
func NewTicketRepository(db *sql.DB) *TicketRepository {
	return &TicketRepository{q: db}
}

// NewTicketRepositoryWithTx creates a ticket repository using a transaction.
func NewTicketRepositoryWithTx(tx *sql.Tx) *TicketRepository {
	return &TicketRepository{q: tx}
}

const ticketColumns = `
	id, user_id, route_id, seat_number, ticket_type, status, qr_payload,
	ledger_tx_hash, ledger_token_id, travel_at, purchased_at, validated_at
`

// Create persists a new ticket. The unique index on ledger_token_id turns
// a concurrent duplicate mirror insert into ErrDuplicateKey.
func (r *TicketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	query := `
		INSERT INTO tickets (` + ticketColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.q.ExecContext(ctx, query,
		ticket.ID,
		ticket.UserID,
		ticket.RouteID,
		nullString(ticket.SeatNumber),
		ticket.TicketType,
		ticket.Status,
		ticket.QRPayload,
		ticket.LedgerTxHash,
		nullUint64(ticket.LedgerTokenID),
		ticket.TravelAt,
		ticket.PurchasedAt,
		nullTime(ticket.ValidatedAt),
	)

	return mapWriteErr(err)
}

// GetByID retrieves a ticket by ID.
func (r *TicketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id = $1`

	ticket, err := r.scanTicket(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return ticket, nil
}

// GetByLedgerTokenID retrieves a ticket by its ledger natural key.
// Returns nil if no ticket carries the token id.
func (r *TicketRepository) GetByLedgerTokenID(ctx context.Context, tokenID uint64) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE ledger_token_id = $1`

	ticket, err := r.scanTicket(r.q.QueryRowContext(ctx, query, int64(tokenID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return ticket, nil
}

// GetByLedgerTxHash retrieves a ticket by its mint transaction hash.
// Returns nil if no ticket references the hash.
func (r *TicketRepository) GetByLedgerTxHash(ctx context.Context, txHash string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE ledger_tx_hash = $1`

	ticket, err := r.scanTicket(r.q.QueryRowContext(ctx, query, txHash))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return ticket, nil
}

// ListByUser retrieves all tickets owned by a user, newest first.
func (r *TicketRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE user_id = $1 ORDER BY purchased_at DESC`
	return r.listTickets(ctx, query, userID)
}

// ListByRoute retrieves all tickets for a route, newest first.
func (r *TicketRepository) ListByRoute(ctx context.Context, routeID string) ([]*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE route_id = $1 ORDER BY purchased_at DESC`
	return r.listTickets(ctx, query, routeID)
}

// MarkValidated transitions a valid ticket to used. The status guard in
// the WHERE clause makes a second validation attempt affect zero rows.
func (r *TicketRepository) MarkValidated(ctx context.Context, id string, at time.Time) error {
	query := `
		UPDATE tickets SET status = $1, validated_at = $2
		WHERE id = $3 AND status = $4
	`
	return r.execValidated(ctx, query, domain.TicketStatusUsed, at, id, domain.TicketStatusValid)
}

// MarkValidatedByTokenID is MarkValidated keyed by the ledger natural key.
func (r *TicketRepository) MarkValidatedByTokenID(ctx context.Context, tokenID uint64, at time.Time) error {
	query := `
		UPDATE tickets SET status = $1, validated_at = $2
		WHERE ledger_token_id = $3 AND status = $4
	`
	return r.execValidated(ctx, query, domain.TicketStatusUsed, at, int64(tokenID), domain.TicketStatusValid)
}

func (r *TicketRepository) execValidated(ctx context.Context, query string, args ...any) error {
	result, err := r.q.ExecContext(ctx, query, args...)
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

func (r *TicketRepository) listTickets(ctx context.Context, query string, arg any) ([]*domain.Ticket, error) {
	rows, err := r.q.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tickets []*domain.Ticket
	for rows.Next() {
		ticket, err := r.scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, ticket)
	}
	return tickets, rows.Err()
}

func (r *TicketRepository) scanTicket(row rowScanner) (*domain.Ticket, error) {
	var (
		ticket      domain.Ticket
		seat        sql.NullString
		tokenID     sql.NullInt64
		validatedAt sql.NullTime
	)

	err := row.Scan(
		&ticket.ID,
		&ticket.UserID,
		&ticket.RouteID,
		&seat,
		&ticket.TicketType,
		&ticket.Status,
		&ticket.QRPayload,
		&ticket.LedgerTxHash,
		&tokenID,
		&ticket.TravelAt,
		&ticket.PurchasedAt,
		&validatedAt,
	)
	if err != nil {
		return nil, err
	}

	ticket.SeatNumber = seat.String
	if tokenID.Valid {
		v := uint64(tokenID.Int64)
		ticket.LedgerTokenID = &v
	}
	if validatedAt.Valid {
		t := validatedAt.Time
		ticket.ValidatedAt = &t
	}
	return &ticket, nil
}
