package registry

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/racewire/telemetry-hub/internal/apperrors"
)

func TestPortAllocatorAcquireDrainsThenFails(t *testing.T) {
	a := NewPortAllocator(27700, 27702, nil)

	p1, err := a.Acquire()
	require.NoError(t, err)
	p2, err := a.Acquire()
	require.NoError(t, err)
	require.NotEqual(t, p1, p2)

	_, err = a.Acquire()
	require.Error(t, err)
}

func TestPortAllocatorSeedsReservedAsUnavailable(t *testing.T) {
	a := NewPortAllocator(27700, 27702, map[uint16]bool{27700: true})

	p, err := a.Acquire()
	require.NoError(t, err)
	require.Equal(t, uint16(27701), p)

	_, err = a.Acquire()
	require.Error(t, err)
}

func TestPortAllocatorReserveRejectsOutOfRange(t *testing.T) {
	a := NewPortAllocator(27700, 27800, nil)
	err := a.Reserve(1234)
	require.Error(t, err)
	require.Equal(t, apperrors.KindValidation, apperrors.GetKind(err))
}

func TestPortAllocatorReserveRejectsAlreadyTaken(t *testing.T) {
	a := NewPortAllocator(27700, 27800, nil)
	require.NoError(t, a.Reserve(27700))

	err := a.Reserve(27700)
	require.Error(t, err)
	require.Equal(t, apperrors.KindAlreadyExists, apperrors.GetKind(err))
}

func TestPortAllocatorReleaseReturnsPortToPool(t *testing.T) {
	a := NewPortAllocator(27700, 27701, nil)

	p, err := a.Acquire()
	require.NoError(t, err)
	a.Release(p)

	p2, err := a.Acquire()
	require.NoError(t, err)
	require.Equal(t, p, p2)
}

func TestPortAllocatorReleaseIgnoresUntrackedPort(t *testing.T) {
	a := NewPortAllocator(27700, 27800, nil)
	require.NotPanics(t, func() { a.Release(27750) })
}
