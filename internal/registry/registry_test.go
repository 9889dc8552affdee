package registry

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/racewire/telemetry-hub/internal/apperrors"
	"github.com/racewire/telemetry-hub/internal/collab"
	"github.com/racewire/telemetry-hub/internal/ingest"
	"github.com/racewire/telemetry-hub/internal/session"
)

// newTestRegistry builds a Registry with a hand-inserted entry, bypassing
// Start (which binds a UDP socket and opens a firewall rule neither of
// which a unit test should depend on).
func newTestRegistry(t *testing.T) (*Registry, int32) {
	t.Helper()
	champRepo := collab.NewMemChampionshipRepository()
	driverRepo := collab.NewMemDriverRepository()
	driverSvc := collab.NewMemDriverService(driverRepo)
	ports := NewPortAllocator(27700, 27800, nil)
	r := New(zerolog.Nop(), nil, ports, champRepo, driverRepo, driverSvc)

	mgr := session.NewManager(zerolog.Nop())
	t.Cleanup(mgr.Close)

	const championshipID = int32(7)
	r.entries[championshipID] = &entry{
		port:    27700,
		manager: mgr,
		engine:  ingest.New(zerolog.Nop(), championshipID, nil, mgr, champRepo, driverRepo, driverSvc),
		cancel:  func() {},
		done:    make(chan struct{}),
	}
	return r, championshipID
}

func TestStartRejectsDuplicateChampionship(t *testing.T) {
	r, id := newTestRegistry(t)
	err := r.Start(context.Background(), id, 27700)
	require.Error(t, err)
	require.Equal(t, apperrors.KindAlreadyExists, apperrors.GetKind(err))
}

func TestStopRemovesEntryAndReportsNotFoundOnSecondCall(t *testing.T) {
	r, id := newTestRegistry(t)
	require.NoError(t, r.Stop(id))

	err := r.Stop(id)
	require.Error(t, err)
	require.Equal(t, apperrors.KindNotFound, apperrors.GetKind(err))
}

func TestCacheAndSubscribeReturnsFalseForUnknownChampionship(t *testing.T) {
	r, _ := newTestRegistry(t)
	_, _, ok := r.CacheAndSubscribe(999)
	require.False(t, ok)
}

func TestCacheAndSubscribeSucceedsForKnownChampionship(t *testing.T) {
	r, id := newTestRegistry(t)
	_, sub, ok := r.CacheAndSubscribe(id)
	require.True(t, ok)
	defer sub.Close()

	status, _ := r.ServiceStatus(id)
	require.Equal(t, 1, status.GlobalSubs)
}

func TestSubscribeTeamFailsForUnknownTeam(t *testing.T) {
	r, id := newTestRegistry(t)
	_, ok := r.SubscribeTeam(id, 3)
	require.False(t, ok)
}

func TestServicesListsEveryActiveChampionship(t *testing.T) {
	r, id := newTestRegistry(t)
	services := r.Services()
	require.Len(t, services, 1)
	require.Equal(t, id, services[0].ChampionshipID)
	require.Equal(t, uint16(27700), services[0].Port)
}

func TestServiceStatusFalseForUnknownChampionship(t *testing.T) {
	r, _ := newTestRegistry(t)
	_, ok := r.ServiceStatus(12345)
	require.False(t, ok)
}

func TestStartRejectsPortOutsideConfiguredRange(t *testing.T) {
	r, _ := newTestRegistry(t)
	err := r.Start(context.Background(), 999, 1234)
	require.Error(t, err)
	require.Equal(t, apperrors.KindValidation, apperrors.GetKind(err))
}

func TestStartAutoFailsWithoutPortAllocator(t *testing.T) {
	champRepo := collab.NewMemChampionshipRepository()
	driverRepo := collab.NewMemDriverRepository()
	driverSvc := collab.NewMemDriverService(driverRepo)
	r := New(zerolog.Nop(), nil, nil, champRepo, driverRepo, driverSvc)

	_, err := r.StartAuto(context.Background(), 1)
	require.Error(t, err)
	require.Equal(t, apperrors.KindValidation, apperrors.GetKind(err))
}

// TestSelfTerminatedEngineIsReaped mirrors what happens when an engine's
// Run loop returns on its own (recv timeout, recv error, unsupported
// protocol format, non-networked session) rather than via an explicit
// Stop call: Engine's onDone callback, wired up in Start, must still
// remove the registry's bookkeeping entry.
func TestSelfTerminatedEngineIsReaped(t *testing.T) {
	r, id := newTestRegistry(t)

	r.mu.RLock()
	e := r.entries[id]
	r.mu.RUnlock()

	r.removeIfCurrent(id, e.engine)

	_, ok := r.ServiceStatus(id)
	require.False(t, ok)
}

// TestRemoveIfCurrentIgnoresStaleEngine guards the race between an
// explicit Stop and a self-terminating engine's onDone firing after a
// new engine has already taken the championship id: the stale callback
// must not delete the new entry.
func TestRemoveIfCurrentIgnoresStaleEngine(t *testing.T) {
	r, id := newTestRegistry(t)

	staleEngine := ingest.New(zerolog.Nop(), id, nil, session.NewManager(zerolog.Nop()),
		collab.NewMemChampionshipRepository(), collab.NewMemDriverRepository(),
		collab.NewMemDriverService(collab.NewMemDriverRepository()))

	r.removeIfCurrent(id, staleEngine)

	_, ok := r.ServiceStatus(id)
	require.True(t, ok, "a stale engine's onDone must not remove a different, current entry")
}

func TestRemoveIfCurrentReleasesPortBackToAllocator(t *testing.T) {
	champRepo := collab.NewMemChampionshipRepository()
	driverRepo := collab.NewMemDriverRepository()
	driverSvc := collab.NewMemDriverService(driverRepo)
	ports := NewPortAllocator(27700, 27701, nil)
	r := New(zerolog.Nop(), nil, ports, champRepo, driverRepo, driverSvc)

	require.NoError(t, ports.Reserve(27700))
	mgr := session.NewManager(zerolog.Nop())
	t.Cleanup(mgr.Close)
	eng := ingest.New(zerolog.Nop(), 1, nil, mgr, champRepo, driverRepo, driverSvc)
	r.entries[1] = &entry{port: 27700, manager: mgr, engine: eng, cancel: func() {}, done: make(chan struct{})}

	r.removeIfCurrent(1, eng)

	_, err := ports.Acquire()
	require.NoError(t, err, "the port must be released back to the pool")
}

func TestRemoveIfCurrentIsIdempotent(t *testing.T) {
	r, id := newTestRegistry(t)

	r.mu.RLock()
	e := r.entries[id]
	r.mu.RUnlock()

	r.removeIfCurrent(id, e.engine)
	require.NotPanics(t, func() { r.removeIfCurrent(id, e.engine) })
}
