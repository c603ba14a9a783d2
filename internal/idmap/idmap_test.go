package idmap

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerID_Deterministic(t *testing.T) {
	a := uuid.MustParse("d94f3f01-6ab8-4d5e-8a3c-1b2f4e5d6c7a")
	assert.Equal(t, uint64(0xd94f3f016ab84d5e), LedgerID(a))
	assert.Equal(t, LedgerID(a), LedgerBigID(a).Uint64())
}

func TestLedgerID_PrefixOnly(t *testing.T) {
	// Two UUIDs sharing the first 8 bytes map to the same integer.
	a := uuid.MustParse("d94f3f01-6ab8-4d5e-8a3c-1b2f4e5d6c7a")
	b := uuid.MustParse("d94f3f01-6ab8-4d5e-ffff-ffffffffffff")
	assert.Equal(t, LedgerID(a), LedgerID(b))

	// A differing prefix yields a different integer.
	c := uuid.MustParse("e94f3f01-6ab8-4d5e-8a3c-1b2f4e5d6c7a")
	assert.NotEqual(t, LedgerID(a), LedgerID(c))
}

func TestMapper_SameUUIDIsIdempotent(t *testing.T) {
	m := NewMapper()
	u := uuid.New()

	first, err := m.Map(u)
	require.NoError(t, err)

	second, err := m.Map(u)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestMapper_CollisionSurfaced(t *testing.T) {
	m := NewMapper()
	a := uuid.MustParse("d94f3f01-6ab8-4d5e-8a3c-1b2f4e5d6c7a")
	b := uuid.MustParse("d94f3f01-6ab8-4d5e-ffff-ffffffffffff")

	_, err := m.Map(a)
	require.NoError(t, err)

	_, err = m.Map(b)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIdentifierCollision))

	var colErr *CollisionError
	require.True(t, errors.As(err, &colErr))
	assert.Equal(t, a, colErr.Existing)
	assert.Equal(t, b, colErr.Incoming)
}

func TestMapper_MapAll(t *testing.T) {
	m := NewMapper()
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	require.NoError(t, m.MapAll(ids))

	// Registering the same set again stays clean.
	require.NoError(t, m.MapAll(ids))

	// A colliding newcomer is rejected.
	clash := ids[0]
	clash[15] ^= 0xff
	_, err := m.Map(clash)
	assert.ErrorIs(t, err, ErrIdentifierCollision)
}
