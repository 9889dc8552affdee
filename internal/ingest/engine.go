// Package ingest owns the per-championship UDP ingestion task: binding
// a socket, throttling by packet class, driving the firewall's
// open→restrict transition, and handing parsed packets to a session
// manager.
package ingest

import (
	"context"
	"errors"
	"net"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/racewire/telemetry-hub/internal/apperrors"
	"github.com/racewire/telemetry-hub/internal/codec"
	"github.com/racewire/telemetry-hub/internal/collab"
	"github.com/racewire/telemetry-hub/internal/firewall"
	"github.com/racewire/telemetry-hub/internal/metrics"
	"github.com/racewire/telemetry-hub/internal/session"
)

const (
	recvBufferSize = 1460
	recvTimeout    = 15 * time.Minute

	motionInterval       = 700 * time.Millisecond
	sessionInterval      = 10 * time.Second
	participantsInterval = 10 * time.Second
	carLapInterval       = 1 * time.Second
	carDataInterval      = 100 * time.Millisecond

	participantsTicksBeforeReconcile = 6
	reconcileInterval                = 1 * time.Minute
)

// sessionTypeRace and its siblings are the session_type enum values
// during which events are meaningful (practice/qualifying chatter is
// dropped).
const (
	sessionTypeRace  uint8 = 10
	sessionTypeRace2 uint8 = 11
	sessionTypeRace3 uint8 = 12
)

// Engine is one championship's long-lived ingestion task.
type Engine struct {
	log            zerolog.Logger
	championshipID int32
	port           uint16

	firewall   *firewall.Controller
	manager    *session.Manager
	champRepo  collab.ChampionshipRepository
	driverRepo collab.DriverRepository
	driverSvc  collab.DriverService

	conn *net.UDPConn

	peerPinned          bool
	sessionType         *uint8
	participantTicks    int
	lastReconcile       time.Time
	lastUpdate          map[codec.PacketClass]time.Time
	lastCarLap          [codec.NumCars]time.Time

	stop   chan struct{}
	onDone func()
}

// New builds an Engine for championshipID, bound to no socket yet —
// call Initialize before Run.
func New(
	log zerolog.Logger,
	championshipID int32,
	fw *firewall.Controller,
	manager *session.Manager,
	champRepo collab.ChampionshipRepository,
	driverRepo collab.DriverRepository,
	driverSvc collab.DriverService,
) *Engine {
	return &Engine{
		log:            log.With().Int32("championship_id", championshipID).Logger(),
		championshipID: championshipID,
		firewall:       fw,
		manager:        manager,
		champRepo:      champRepo,
		driverRepo:     driverRepo,
		driverSvc:      driverSvc,
		lastUpdate:     make(map[codec.PacketClass]time.Time),
		stop:           make(chan struct{}),
	}
}

// Initialize binds the UDP socket, requests a race id, and opens the
// firewall rule. Any failure here is fatal to starting the engine.
func (e *Engine) Initialize(ctx context.Context, port uint16) error {
	e.port = port

	conn, err := net.ListenUDP("udp", &net.UDPAddr{Port: int(port)})
	if err != nil {
		return apperrors.Wrapf(err, apperrors.KindF1Service, "ingest: bind udp port %d", port)
	}
	e.conn = conn

	if _, err := e.champRepo.RaceIDFor(ctx, e.championshipID); err != nil {
		conn.Close()
		return apperrors.Wrap(err, apperrors.KindExternalRepository, "ingest: creating race id")
	}

	if err := e.firewall.Open(ctx, e.championshipID, port); err != nil {
		conn.Close()
		return err
	}

	now := time.Now()
	for _, class := range []codec.PacketClass{
		codec.ClassMotion, codec.ClassSession, codec.ClassParticipants,
		codec.ClassCarDamage, codec.ClassCarStatus, codec.ClassCarTelemetry,
	} {
		e.lastUpdate[class] = now
	}
	for i := range e.lastCarLap {
		e.lastCarLap[i] = now
	}
	e.lastReconcile = now

	return nil
}

// SetOnDone registers a callback invoked once, from Run's cleanup, after
// the engine has torn itself down — on an explicit Stop as much as on
// self-termination (recv timeout, recv error, unsupported protocol
// format, non-networked session). The registry uses this to remove its
// own bookkeeping entry regardless of which path ended the engine.
func (e *Engine) SetOnDone(fn func()) {
	e.onDone = fn
}

// Stop signals the run loop to end on its next iteration. Idempotent.
func (e *Engine) Stop() {
	select {
	case <-e.stop:
	default:
		close(e.stop)
	}
}

// Run drives the receive loop until shutdown, a 15-minute silence, or a
// fatal error, then cleans up.
func (e *Engine) Run(ctx context.Context) {
	defer e.cleanup(ctx)

	buf := make([]byte, recvBufferSize)
	for {
		select {
		case <-e.stop:
			return
		case <-ctx.Done():
			return
		default:
		}

		e.conn.SetReadDeadline(time.Now().Add(recvTimeout))
		n, peer, err := e.conn.ReadFromUDP(buf)
		if err != nil {
			if ne := net.Error(nil); errors.As(err, &ne) && ne.Timeout() {
				e.log.Info().Msg("ingest: recv timeout, presuming source disconnected")
			} else {
				e.log.Error().Err(err).Msg("ingest: recv failed")
			}
			return
		}

		if err := e.handleDatagram(ctx, buf[:n], peer); err != nil {
			e.log.Error().Err(err).Msg("ingest: fatal error handling datagram")
			return
		}
	}
}

func (e *Engine) handleDatagram(ctx context.Context, buf []byte, peer *net.UDPAddr) error {
	if !e.peerPinned {
		if err := e.firewall.RestrictToIP(ctx, e.championshipID, peer.IP); err != nil {
			return err
		}
		e.peerPinned = true
	}

	header, err := codec.ParseHeader(buf)
	if err != nil {
		metrics.PacketsDropped.WithLabelValues("bad_header").Inc()
		return nil
	}

	class, ok := header.Class()
	if !ok {
		metrics.PacketsDropped.WithLabelValues("unknown_class").Inc()
		return nil
	}
	if !class.Consumed() {
		metrics.PacketsDropped.WithLabelValues("unconsumed_class").Inc()
		return nil
	}

	if header.PacketFormat != codec.SupportedProtocolFormat {
		metrics.PacketsDropped.WithLabelValues("unsupported_format").Inc()
		return apperrors.Errorf(apperrors.KindF1Service,
			"ingest: unsupported protocol format %d", header.PacketFormat)
	}
	if header.SessionUID == 0 {
		metrics.PacketsDropped.WithLabelValues("no_session").Inc()
		return nil
	}

	body := buf[codec.HeaderSize:]
	payload, err := codec.ParsePayload(header, class, body)
	if err != nil {
		metrics.PacketsDropped.WithLabelValues("malformed").Inc()
		e.log.Warn().Err(err).Uint8("class", uint8(class)).Msg("ingest: dropping malformed packet")
		return nil
	}

	metrics.PacketsIngested.WithLabelValues(strconv.Itoa(int(class))).Inc()
	return e.dispatch(ctx, class, payload)
}

func (e *Engine) dispatch(ctx context.Context, class codec.PacketClass, payload any) error {
	now := time.Now()

	switch class {
	case codec.ClassMotion:
		if now.Sub(e.lastUpdate[class]) < motionInterval {
			metrics.PacketsDropped.WithLabelValues("throttled").Inc()
			return nil
		}
		e.manager.SaveMotion(payload.(codec.MotionPacket))
		e.lastUpdate[class] = now

	case codec.ClassSession:
		if now.Sub(e.lastUpdate[class]) < sessionInterval {
			metrics.PacketsDropped.WithLabelValues("throttled").Inc()
			return nil
		}
		pkt := payload.(codec.SessionPacket)
		if pkt.NetworkGame != 1 {
			return apperrors.New(apperrors.KindF1Service, "ingest: non-networked session, closing")
		}
		st := pkt.SessionType
		e.sessionType = &st
		e.manager.SaveSession(pkt)
		e.lastUpdate[class] = now

	case codec.ClassParticipants:
		if now.Sub(e.lastUpdate[class]) < participantsInterval {
			metrics.PacketsDropped.WithLabelValues("throttled").Inc()
			return nil
		}
		pkt := payload.(codec.ParticipantsPacket)
		e.participantTicks++
		if e.participantTicks >= participantsTicksBeforeReconcile {
			e.participantTicks = 0
			if err := e.reconcileParticipants(ctx, pkt); err != nil {
				e.log.Warn().Err(err).Msg("ingest: participant reconciliation failed")
			}
		}
		e.manager.SaveParticipants(pkt)
		e.lastUpdate[class] = now

	case codec.ClassEvent:
		if e.sessionType == nil || !e.isRaceSession(*e.sessionType) {
			return nil
		}
		e.manager.PushEvent(payload.(codec.EventPacket))

	case codec.ClassSessionHistory:
		pkt := payload.(codec.SessionHistoryPacket)
		if int(pkt.CarIdx) >= len(e.lastCarLap) {
			e.log.Warn().Uint8("car_idx", pkt.CarIdx).Msg("ingest: session history car index out of range")
			return nil
		}
		if now.Sub(e.lastCarLap[pkt.CarIdx]) < carLapInterval {
			metrics.PacketsDropped.WithLabelValues("throttled").Inc()
			return nil
		}
		e.manager.SaveLapHistory(pkt)
		e.lastCarLap[pkt.CarIdx] = now

	case codec.ClassFinalClassification:
		if e.sessionType == nil {
			return nil
		}
		e.sessionType = nil
		e.manager.SaveFinalClassification(payload.(codec.FinalClassificationPacket))

	case codec.ClassCarDamage:
		if now.Sub(e.lastUpdate[class]) < carDataInterval {
			metrics.PacketsDropped.WithLabelValues("throttled").Inc()
			return nil
		}
		e.manager.SaveCarDamage(payload.(codec.CarDamagePacket))
		e.lastUpdate[class] = now

	case codec.ClassCarStatus:
		if now.Sub(e.lastUpdate[class]) < carDataInterval {
			metrics.PacketsDropped.WithLabelValues("throttled").Inc()
			return nil
		}
		e.manager.SaveCarStatus(payload.(codec.CarStatusPacket))
		e.lastUpdate[class] = now

	case codec.ClassCarTelemetry:
		if now.Sub(e.lastUpdate[class]) < carDataInterval {
			metrics.PacketsDropped.WithLabelValues("throttled").Inc()
			return nil
		}
		e.manager.SaveCarTelemetry(payload.(codec.CarTelemetryPacket))
		e.lastUpdate[class] = now
	}

	return nil
}

func (e *Engine) isRaceSession(st uint8) bool {
	return st == sessionTypeRace || st == sessionTypeRace2 || st == sessionTypeRace3
}

// reconcileParticipants creates/links any networked human driver this
// championship hasn't seen yet. It runs at most once per
// reconcileInterval and stops at the first failure.
func (e *Engine) reconcileParticipants(ctx context.Context, pkt codec.ParticipantsPacket) error {
	now := time.Now()
	if now.Sub(e.lastReconcile) < reconcileInterval {
		return nil
	}
	e.lastReconcile = now

	linked, err := e.champRepo.LinkedDrivers(ctx, e.championshipID)
	if err != nil {
		return apperrors.Wrap(err, apperrors.KindExternalRepository, "ingest: fetching linked drivers")
	}

	const networkedHuman = 255
	for _, p := range pkt.ActiveParticipants() {
		if p.DriverID != networkedHuman || p.Name == "" || p.Name == "Player" {
			continue
		}

		exists, err := e.driverRepo.Exists(ctx, p.Name)
		if err != nil {
			return apperrors.Wrap(err, apperrors.KindExternalRepository, "ingest: checking driver existence")
		}
		if !exists {
			if err := e.driverSvc.Create(ctx, p.Name, p.Nationality); err != nil {
				return apperrors.Wrap(err, apperrors.KindExternalRepository, "ingest: creating driver")
			}
		}

		if !binarySearchContains(linked, p.Name) {
			if err := e.champRepo.LinkDriver(ctx, e.championshipID, p.Name, p.TeamID, p.RaceNumber); err != nil {
				return apperrors.Wrap(err, apperrors.KindExternalRepository, "ingest: linking driver")
			}
		}
	}
	return nil
}

func binarySearchContains(sorted []string, target string) bool {
	lo, hi := 0, len(sorted)
	for lo < hi {
		mid := (lo + hi) / 2
		if sorted[mid] < target {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo < len(sorted) && sorted[lo] == target
}

func (e *Engine) cleanup(ctx context.Context) {
	if e.firewall != nil {
		if err := e.firewall.Close(ctx, e.championshipID); err != nil {
			e.log.Error().Err(err).Msg("ingest: closing firewall rule on cleanup")
		}
	}
	if e.conn != nil {
		e.conn.Close()
	}
	e.manager.Close()
	if e.onDone != nil {
		e.onDone()
	}
}
