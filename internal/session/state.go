// Package session reconstructs per-championship state from decoded
// telemetry packets and fans out compact deltas to subscribers at two
// cadences. A Manager is single-writer: every mutating method is called
// from exactly one goroutine (the ingestion engine for that
// championship); the locks exist only so the emitter loop can take
// consistent snapshots and collect subscriber counts concurrently.
package session

import (
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	globalBufferCapacity = 50
	teamBufferCapacity   = 30
)

// Manager owns one championship's entire reconstructed state plus the
// broadcast channels its emitter loop publishes onto.
type Manager struct {
	log zerolog.Logger

	driverIndexMu sync.RWMutex
	driverIndex   map[int]DriverInfo

	generalMu sync.RWMutex
	general   *GeneralInfo

	telemetryMu sync.RWMutex
	telemetry   *TelemetryInfo

	lastGeneralMu sync.RWMutex
	lastGeneral   *GeneralInfo

	lastGeneralEncodedMu sync.RWMutex
	lastGeneralEncoded   []byte

	lastTelemetryMu sync.RWMutex
	lastTelemetry   *TelemetryInfo

	teamChannelsMu sync.RWMutex
	teamChannels   map[uint8]*broadcaster

	globalChannel *broadcaster

	stop     chan struct{}
	stopOnce sync.Once
}

// NewManager builds a Manager and starts its emitter loop.
func NewManager(log zerolog.Logger) *Manager {
	m := &Manager{
		log:           log,
		driverIndex:   make(map[int]DriverInfo),
		general:       newGeneralInfo(),
		telemetry:     newTelemetryInfo(),
		lastGeneral:   newGeneralInfo(),
		lastTelemetry: newTelemetryInfo(),
		teamChannels:  make(map[uint8]*broadcaster),
		globalChannel: newBroadcaster(globalBufferCapacity, "global"),
		stop:          make(chan struct{}),
	}
	go m.runEmitter()
	return m
}

// Cache returns the most recently encoded general delta, for priming a
// late subscriber before it starts receiving live frames.
func (m *Manager) Cache() []byte {
	m.lastGeneralEncodedMu.RLock()
	defer m.lastGeneralEncodedMu.RUnlock()
	return m.lastGeneralEncoded
}

// SubscribeGlobal registers a new subscriber on the general stream.
func (m *Manager) SubscribeGlobal() *subscription {
	return m.globalChannel.subscribe()
}

// GlobalSubscriberCount reports how many active general-stream subscribers exist.
func (m *Manager) GlobalSubscriberCount() int {
	return m.globalChannel.subscriberCount()
}

// SubscribeTeam registers a new subscriber on team teamID's telemetry
// stream, or returns false if no participant on that team has been seen
// yet (there is nothing to create a channel for).
func (m *Manager) SubscribeTeam(teamID uint8) (*subscription, bool) {
	m.teamChannelsMu.RLock()
	ch, ok := m.teamChannels[teamID]
	m.teamChannelsMu.RUnlock()
	if !ok {
		return nil, false
	}
	return ch.subscribe(), true
}

// TeamSubscriberCount reports how many active subscribers exist for
// teamID, or 0 if the team's channel does not exist yet.
func (m *Manager) TeamSubscriberCount(teamID uint8) int {
	m.teamChannelsMu.RLock()
	ch, ok := m.teamChannels[teamID]
	m.teamChannelsMu.RUnlock()
	if !ok {
		return 0
	}
	return ch.subscriberCount()
}

// TeamSubscriberCounts reports every team channel that has been created
// so far (at least one participant on that team has been seen) together
// with its current subscriber count.
func (m *Manager) TeamSubscriberCounts() map[uint8]int {
	m.teamChannelsMu.RLock()
	defer m.teamChannelsMu.RUnlock()
	out := make(map[uint8]int, len(m.teamChannels))
	for teamID, ch := range m.teamChannels {
		out[teamID] = ch.subscriberCount()
	}
	return out
}

func (m *Manager) ensureTeamChannel(teamID uint8) {
	m.teamChannelsMu.Lock()
	defer m.teamChannelsMu.Unlock()
	if _, ok := m.teamChannels[teamID]; !ok {
		m.teamChannels[teamID] = newBroadcaster(teamBufferCapacity, "team")
	}
}

// Close stops the emitter loop and closes every broadcast channel this
// manager owns. Subscribers observe end-of-stream.
func (m *Manager) Close() {
	m.stopOnce.Do(func() { close(m.stop) })
}

func (m *Manager) runEmitter() {
	generalTicker := time.NewTicker(generalInterval)
	telemetryTicker := time.NewTicker(telemetryInterval)
	defer generalTicker.Stop()
	defer telemetryTicker.Stop()
	defer m.closeChannels()

	for {
		select {
		case <-m.stop:
			return
		case <-generalTicker.C:
			m.sendGeneralUpdates()
		case <-telemetryTicker.C:
			m.sendTelemetryUpdates()
		}
	}
}

func (m *Manager) closeChannels() {
	m.globalChannel.close()
	m.teamChannelsMu.RLock()
	defer m.teamChannelsMu.RUnlock()
	for _, ch := range m.teamChannels {
		ch.close()
	}
}

// driverName resolves a car slot to the driver recorded for it, or a zero
// DriverInfo and false if no participant has registered that slot yet.
func (m *Manager) driverName(carIdx int) (DriverInfo, bool) {
	m.driverIndexMu.RLock()
	defer m.driverIndexMu.RUnlock()
	d, ok := m.driverIndex[carIdx]
	return d, ok
}

// unknownDriverName formats the placeholder name for a vehicle index that
// doesn't resolve to a registered participant. PushEvent does not call
// it: kept events carry their raw vehicle indices, not driver names.
func unknownDriverName(vehicleIdx uint8) string {
	return unknownDriverPrefix + strconv.Itoa(int(vehicleIdx))
}

const unknownDriverPrefix = "Unknown Driver "
