package domain

import "time"

// AuditAction identifies the kind of administrative mutation recorded.
type AuditAction string

const (
	AuditFareUpdated     AuditAction = "fare_updated"
	AuditRouteUpdated    AuditAction = "route_updated"
	AuditTicketValidated AuditAction = "ticket_validated"
)

// AuditEntry records a completed administrative mutation. The audit log is
// append-only; entries are never mutated.
type AuditEntry struct {
	ID           string
	AdminID      string
	Action       AuditAction
	ResourceType string
	ResourceID   string
	Description  string
	Metadata     map[string]any
	CreatedAt    time.Time
}
