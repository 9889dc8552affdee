// Package registry is the process-global table of running championship
// ingestion services: start/stop an engine, hand out subscriptions to
// its manager's broadcast streams, and answer admin introspection
// queries.
package registry

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/racewire/telemetry-hub/internal/apperrors"
	"github.com/racewire/telemetry-hub/internal/collab"
	"github.com/racewire/telemetry-hub/internal/firewall"
	"github.com/racewire/telemetry-hub/internal/ingest"
	"github.com/racewire/telemetry-hub/internal/metrics"
	"github.com/racewire/telemetry-hub/internal/session"
)

// Status is the introspection snapshot returned by ServiceStatus/Services.
type Status struct {
	ChampionshipID int32
	Port           uint16
	GlobalSubs     int
	TeamSubs       map[uint8]int
}

type entry struct {
	port    uint16
	manager *session.Manager
	engine  *ingest.Engine
	cancel  context.CancelFunc
	done    chan struct{}
}

// Registry holds every championship currently being ingested.
type Registry struct {
	log zerolog.Logger

	mu      sync.RWMutex
	entries map[int32]*entry

	firewall   *firewall.Controller
	ports      *PortAllocator
	champRepo  collab.ChampionshipRepository
	driverRepo collab.DriverRepository
	driverSvc  collab.DriverService
}

// New builds an empty registry. The collaborators are shared across
// every championship the registry starts. ports may be nil, in which
// case Start skips range validation/reservation entirely — useful for
// tests that drive specific ports directly.
func New(
	log zerolog.Logger,
	fw *firewall.Controller,
	ports *PortAllocator,
	champRepo collab.ChampionshipRepository,
	driverRepo collab.DriverRepository,
	driverSvc collab.DriverService,
) *Registry {
	return &Registry{
		log:        log,
		entries:    make(map[int32]*entry),
		firewall:   fw,
		ports:      ports,
		champRepo:  champRepo,
		driverRepo: driverRepo,
		driverSvc:  driverSvc,
	}
}

// StartAuto draws the next free port from the registry's configured
// range and starts championshipID on it. Fails with KindValidation if
// no port range is configured, or whatever Start/the allocator returns.
func (r *Registry) StartAuto(ctx context.Context, championshipID int32) (uint16, error) {
	if r.ports == nil {
		return 0, apperrors.New(apperrors.KindValidation, "registry: no port range configured")
	}
	port, err := r.ports.Acquire()
	if err != nil {
		return 0, err
	}
	if err := r.Start(ctx, championshipID, port); err != nil {
		r.ports.Release(port)
		return 0, err
	}
	return port, nil
}

// Start spins up a new ingestion engine for championshipID listening on
// port. Fails with KindAlreadyExists if an entry is already present. If
// a port range is configured, port must fall inside it and not already
// be reserved — callers that want a port drawn from the range
// automatically should use StartAuto instead. Any failure initializing
// the engine (firewall, race-id creation, socket bind) is fatal to the
// attempt — no entry is inserted.
func (r *Registry) Start(ctx context.Context, championshipID int32, port uint16) error {
	r.mu.Lock()
	if _, exists := r.entries[championshipID]; exists {
		r.mu.Unlock()
		return apperrors.Attr(
			apperrors.New(apperrors.KindAlreadyExists, "registry: championship already started"),
			"championship_id", championshipID)
	}
	r.mu.Unlock()

	if r.ports != nil {
		if err := r.ports.Reserve(port); err != nil {
			return apperrors.Attr(err, "championship_id", championshipID)
		}
	}

	mgr := session.NewManager(r.log.With().Int32("championship_id", championshipID).Logger())
	eng := ingest.New(r.log, championshipID, r.firewall, mgr, r.champRepo, r.driverRepo, r.driverSvc)

	eng.SetOnDone(func() { r.removeIfCurrent(championshipID, eng) })

	if err := eng.Initialize(ctx, port); err != nil {
		mgr.Close()
		if r.ports != nil {
			r.ports.Release(port)
		}
		return err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		eng.Run(runCtx)
	}()

	r.mu.Lock()
	r.entries[championshipID] = &entry{
		port:    port,
		manager: mgr,
		engine:  eng,
		cancel:  cancel,
		done:    done,
	}
	r.mu.Unlock()

	metrics.ActiveChampionships.Inc()
	return nil
}

// Stop tears down championshipID's engine. Returns KindNotFound if no
// entry is present; a second Stop on an already-stopped entry also
// returns KindNotFound since the entry is removed on the first call.
// The engine's own cleanup (via SetOnDone) removes the bookkeeping
// entry once Run actually returns, so a self-terminated engine (recv
// timeout, recv error, unsupported protocol format, non-networked
// session) is reaped the same way without an explicit Stop call.
func (r *Registry) Stop(championshipID int32) error {
	r.mu.RLock()
	e, ok := r.entries[championshipID]
	r.mu.RUnlock()

	if !ok {
		return apperrors.Attr(
			apperrors.New(apperrors.KindNotFound, "registry: championship not active"),
			"championship_id", championshipID)
	}

	e.engine.Stop()
	e.cancel()
	r.removeIfCurrent(championshipID, e.engine)
	return nil
}

// removeIfCurrent deletes championshipID's entry if it still points at
// eng, and decrements the active-championship gauge exactly once for
// it. It is a no-op if the entry was already removed by a concurrent
// Stop or a prior self-termination — both Stop and Engine's own
// cleanup call this, so whichever runs first wins and the other is a
// harmless no-op.
func (r *Registry) removeIfCurrent(championshipID int32, eng *ingest.Engine) {
	r.mu.Lock()
	e, ok := r.entries[championshipID]
	if ok && e.engine == eng {
		delete(r.entries, championshipID)
	} else {
		ok = false
	}
	r.mu.Unlock()

	if ok {
		metrics.ActiveChampionships.Dec()
		if r.ports != nil {
			r.ports.Release(e.port)
		}
	}
}

// CacheAndSubscribe returns the manager's last encoded general snapshot
// together with a fresh global subscription, so a caller can send the
// cached frame immediately and then stream live deltas without the
// up-to-700ms wait for the first tick. ok is false if championshipID is
// not active.
func (r *Registry) CacheAndSubscribe(championshipID int32) (cached []byte, sub GlobalSubscription, ok bool) {
	e := r.lookup(championshipID)
	if e == nil {
		return nil, GlobalSubscription{}, false
	}
	cached = e.manager.Cache()
	s := e.manager.SubscribeGlobal()
	metrics.Subscribers.WithLabelValues("global").Inc()
	return cached, GlobalSubscription{s: s}, true
}

// SubscribeTeam looks up championshipID's manager and subscribes to the
// team channel for teamID. ok is false if the championship isn't active
// or no car with that team id has been seen yet.
func (r *Registry) SubscribeTeam(championshipID int32, teamID uint8) (sub TeamSubscription, ok bool) {
	e := r.lookup(championshipID)
	if e == nil {
		return TeamSubscription{}, false
	}
	s, found := e.manager.SubscribeTeam(teamID)
	if !found {
		return TeamSubscription{}, false
	}
	metrics.Subscribers.WithLabelValues("team").Inc()
	return TeamSubscription{s: s}, true
}

// Services lists every active championship's introspection status.
func (r *Registry) Services() []Status {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Status, 0, len(r.entries))
	for id, e := range r.entries {
		out = append(out, r.statusLocked(id, e))
	}
	return out
}

// ServiceStatus returns one championship's status, ok false if inactive.
func (r *Registry) ServiceStatus(championshipID int32) (Status, bool) {
	r.mu.RLock()
	e, ok := r.entries[championshipID]
	r.mu.RUnlock()
	if !ok {
		return Status{}, false
	}
	return r.statusLocked(championshipID, e), true
}

func (r *Registry) statusLocked(id int32, e *entry) Status {
	return Status{
		ChampionshipID: id,
		Port:           e.port,
		GlobalSubs:     e.manager.GlobalSubscriberCount(),
		TeamSubs:       e.manager.TeamSubscriberCounts(),
	}
}

func (r *Registry) lookup(championshipID int32) *entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.entries[championshipID]
}

// GlobalSubscription wraps a global-stream subscription so callers
// outside the session package never need to name its unexported type.
type GlobalSubscription struct{ s globalSub }

func (g GlobalSubscription) Recv(ctx context.Context) ([]byte, error) { return g.s.Recv(ctx) }
func (g GlobalSubscription) Close() {
	g.s.Close()
	metrics.Subscribers.WithLabelValues("global").Dec()
}

// TeamSubscription is the team-stream equivalent of GlobalSubscription.
type TeamSubscription struct{ s globalSub }

func (t TeamSubscription) Recv(ctx context.Context) ([]byte, error) { return t.s.Recv(ctx) }
func (t TeamSubscription) Close() {
	t.s.Close()
	metrics.Subscribers.WithLabelValues("team").Dec()
}

// globalSub is the minimal interface both subscription handles need;
// session.Manager's Subscribe* methods return an unexported
// *subscription that already satisfies it structurally.
type globalSub interface {
	Recv(ctx context.Context) ([]byte, error)
	Close()
}
