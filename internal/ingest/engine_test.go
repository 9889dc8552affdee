package ingest

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/racewire/telemetry-hub/internal/codec"
	"github.com/racewire/telemetry-hub/internal/collab"
	"github.com/racewire/telemetry-hub/internal/session"
)

// newTestEngine builds an Engine with peerPinned already set, so
// handleDatagram never reaches the firewall.
func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	mgr := session.NewManager(zerolog.Nop())
	t.Cleanup(mgr.Close)

	champRepo := collab.NewMemChampionshipRepository()
	driverRepo := collab.NewMemDriverRepository()
	driverSvc := collab.NewMemDriverService(driverRepo)

	return &Engine{
		log:            zerolog.Nop(),
		championshipID: 1,
		manager:        mgr,
		champRepo:      champRepo,
		driverRepo:     driverRepo,
		driverSvc:      driverSvc,
		peerPinned:     true,
		lastUpdate:     make(map[codec.PacketClass]time.Time),
		stop:           make(chan struct{}),
	}
}

func motionDatagram(sessionUID uint64) []byte {
	buf := make([]byte, codec.HeaderSize+codec.NumCars*60)
	putHeader(buf, codec.SupportedProtocolFormat, uint8(codec.ClassMotion), sessionUID)
	return buf
}

func putHeader(buf []byte, packetFormat uint16, packetID uint8, sessionUID uint64) {
	le := func(off, n int, v uint64) {
		for i := 0; i < n; i++ {
			buf[off+i] = byte(v >> (8 * i))
		}
	}
	le(0, 2, uint64(packetFormat))
	buf[6] = packetID
	le(7, 8, sessionUID)
}

func TestHandleDatagramDropsBadHeader(t *testing.T) {
	e := newTestEngine(t)
	err := e.handleDatagram(context.Background(), make([]byte, 5), &udpAddr)
	require.NoError(t, err)
}

func TestHandleDatagramDropsUnconsumedClass(t *testing.T) {
	e := newTestEngine(t)
	buf := make([]byte, codec.HeaderSize)
	putHeader(buf, codec.SupportedProtocolFormat, uint8(codec.ClassLapData), 1)
	err := e.handleDatagram(context.Background(), buf, &udpAddr)
	require.NoError(t, err)
}

func TestHandleDatagramRejectsUnsupportedFormat(t *testing.T) {
	e := newTestEngine(t)
	buf := motionDatagram(1)
	putHeader(buf, 1999, uint8(codec.ClassMotion), 1)
	err := e.handleDatagram(context.Background(), buf, &udpAddr)
	require.Error(t, err)
}

func TestHandleDatagramDropsZeroSessionUID(t *testing.T) {
	e := newTestEngine(t)
	buf := motionDatagram(0)
	err := e.handleDatagram(context.Background(), buf, &udpAddr)
	require.NoError(t, err)
}

func TestHandleDatagramDispatchesKnownMotion(t *testing.T) {
	e := newTestEngine(t)
	buf := motionDatagram(42)
	err := e.handleDatagram(context.Background(), buf, &udpAddr)
	require.NoError(t, err)
	require.False(t, e.lastUpdate[codec.ClassMotion].IsZero())
}

func TestDispatchThrottlesRepeatedMotionWithinInterval(t *testing.T) {
	e := newTestEngine(t)
	var pkt codec.MotionPacket
	require.NoError(t, e.dispatch(context.Background(), codec.ClassMotion, pkt))
	first := e.lastUpdate[codec.ClassMotion]

	require.NoError(t, e.dispatch(context.Background(), codec.ClassMotion, pkt))
	require.Equal(t, first, e.lastUpdate[codec.ClassMotion], "a second motion packet inside the interval must not reset the stamp")
}

func TestDispatchRejectsNonNetworkedSession(t *testing.T) {
	e := newTestEngine(t)
	pkt := codec.SessionPacket{NetworkGame: 0}
	err := e.dispatch(context.Background(), codec.ClassSession, pkt)
	require.Error(t, err)
}

func TestDispatchAcceptsNetworkedSession(t *testing.T) {
	e := newTestEngine(t)
	pkt := codec.SessionPacket{NetworkGame: 1, SessionType: 10}
	err := e.dispatch(context.Background(), codec.ClassSession, pkt)
	require.NoError(t, err)
	require.NotNil(t, e.sessionType)
	require.Equal(t, uint8(10), *e.sessionType)
}

func TestDispatchDropsEventsOutsideRaceSession(t *testing.T) {
	e := newTestEngine(t)
	st := uint8(1) // practice
	e.sessionType = &st
	err := e.dispatch(context.Background(), codec.ClassEvent, codec.EventPacket{
		Details: codec.EventDetails{Code: codec.EventFastestLap},
	})
	require.NoError(t, err)
}

func TestDispatchKeepsEventsDuringRaceSession(t *testing.T) {
	e := newTestEngine(t)
	st := uint8(10) // race
	e.sessionType = &st
	err := e.dispatch(context.Background(), codec.ClassEvent, codec.EventPacket{
		Details: codec.EventDetails{Code: codec.EventFastestLap},
	})
	require.NoError(t, err)
}

func TestDispatchSessionHistoryOutOfRangeCarIdxIsIgnored(t *testing.T) {
	e := newTestEngine(t)
	pkt := codec.SessionHistoryPacket{CarIdx: uint8(codec.NumCars)}
	err := e.dispatch(context.Background(), codec.ClassSessionHistory, pkt)
	require.NoError(t, err)
}

func TestReconcileParticipantsCreatesAndLinksNewDriver(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	var pkt codec.ParticipantsPacket
	pkt.NumActiveCars = 1
	pkt.Participants[0] = codec.ParticipantData{
		DriverID: 255, Name: "Alice", TeamID: 2, RaceNumber: 44, Nationality: 7,
	}

	require.NoError(t, e.reconcileParticipants(ctx, pkt))

	exists, err := e.driverRepo.Exists(ctx, "Alice")
	require.NoError(t, err)
	require.True(t, exists)

	linked, err := e.champRepo.LinkedDrivers(ctx, e.championshipID)
	require.NoError(t, err)
	require.Contains(t, linked, "Alice")
}

func TestReconcileParticipantsRespectsInterval(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	e.lastReconcile = time.Now()

	var pkt codec.ParticipantsPacket
	pkt.NumActiveCars = 1
	pkt.Participants[0] = codec.ParticipantData{DriverID: 255, Name: "Bob", TeamID: 1}

	require.NoError(t, e.reconcileParticipants(ctx, pkt))

	exists, err := e.driverRepo.Exists(ctx, "Bob")
	require.NoError(t, err)
	require.False(t, exists, "reconciliation inside the interval should be a no-op")
}

func TestCleanupInvokesOnDoneExactlyOnce(t *testing.T) {
	e := newTestEngine(t)

	var calls int
	e.SetOnDone(func() { calls++ })

	e.cleanup(context.Background())
	require.Equal(t, 1, calls, "cleanup must report completion back through onDone regardless of why Run returned")
}

func TestCleanupToleratesNilOnDone(t *testing.T) {
	e := newTestEngine(t)
	require.NotPanics(t, func() { e.cleanup(context.Background()) })
}

func TestBinarySearchContains(t *testing.T) {
	sorted := []string{"Alice", "Bob", "Carol"}
	require.True(t, binarySearchContains(sorted, "Bob"))
	require.False(t, binarySearchContains(sorted, "Dave"))
	require.False(t, binarySearchContains(nil, "Dave"))
}

var udpAddr = net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 27700}
