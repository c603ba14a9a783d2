// Package idmap converts externally-visible UUIDs to the fixed-width
// integer identifiers the ledger contracts understand.
//
// The mapping takes the 16-hex-digit prefix of the UUID's canonical hex
// form (its first 8 bytes) as a big-endian integer. It is deterministic
// and one-directional; distinct UUIDs can collide because the integer
// space is narrower than full UUID space. Collisions are a known,
// bounded-probability limitation and are surfaced, never swallowed.
package idmap

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/google/uuid"
)

// ErrIdentifierCollision is returned when two distinct UUIDs resolve to
// the same ledger identifier.
var ErrIdentifierCollision = errors.New("identifier collision")

// LedgerID returns the ledger identifier for a UUID.
// Same UUID always yields the same integer.
func LedgerID(u uuid.UUID) uint64 {
	return binary.BigEndian.Uint64(u[:8])
}

// LedgerBigID returns the ledger identifier as a big.Int for contract calls.
func LedgerBigID(u uuid.UUID) *big.Int {
	return new(big.Int).SetUint64(LedgerID(u))
}

// CollisionError reports the two UUIDs that fought over one ledger id.
type CollisionError struct {
	LedgerID uint64
	Existing uuid.UUID
	Incoming uuid.UUID
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("identifier collision: ledger id %d maps to both %s and %s",
		e.LedgerID, e.Existing, e.Incoming)
}

func (e *CollisionError) Unwrap() error {
	return ErrIdentifierCollision
}

// Mapper tracks observed (ledger id → UUID) pairs so that a pre-existing
// distinct mapping for the same integer is detected instead of overwritten.
type Mapper struct {
	mu   sync.Mutex
	seen map[uint64]uuid.UUID
}

// NewMapper creates an empty Mapper.
func NewMapper() *Mapper {
	return &Mapper{seen: make(map[uint64]uuid.UUID)}
}

// Map resolves a UUID to its ledger id, recording the pairing. It returns
// a *CollisionError when the ledger id is already claimed by a different UUID.
func (m *Mapper) Map(u uuid.UUID) (uint64, error) {
	id := LedgerID(u)

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.seen[id]; ok && existing != u {
		return 0, &CollisionError{LedgerID: id, Existing: existing, Incoming: u}
	}
	m.seen[id] = u
	return id, nil
}

// MapAll registers a set of known UUIDs (e.g. every route id) so that a
// later Map call against a colliding UUID fails rather than proceeding.
func (m *Mapper) MapAll(ids []uuid.UUID) error {
	for _, u := range ids {
		if _, err := m.Map(u); err != nil {
			return err
		}
	}
	return nil
}
