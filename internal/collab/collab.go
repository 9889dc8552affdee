// Package collab defines the external collaborators the ingestion
// engine consults: championship/driver persistence and a notification
// sink. These are treated as pre-existing services owned elsewhere in
// the wider system — this package only states the contracts the core
// depends on, plus small in-memory implementations so the core is
// runnable and testable standalone.
package collab

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// ErrNotFound is returned by lookups that find nothing, distinguishing
// "doesn't exist" from a transport-level failure.
var ErrNotFound = errors.New("collab: not found")

// ChampionshipRepository looks up and mutates championship-scoped state
// that outlives a single ingestion run: the race id for a session, and
// the roster of drivers already linked to it.
type ChampionshipRepository interface {
	// RaceIDFor returns (creating if necessary) the race id a new
	// ingestion run for championshipID should report against.
	RaceIDFor(ctx context.Context, championshipID int32) (string, error)
	// LinkedDrivers returns driver names already linked to
	// championshipID, sorted for binary search.
	LinkedDrivers(ctx context.Context, championshipID int32) ([]string, error)
	// LinkDriver links name to championshipID with the given team and
	// race number.
	LinkDriver(ctx context.Context, championshipID int32, name string, teamID, raceNumber uint8) error
}

// DriverRepository looks up known drivers by steam name.
type DriverRepository interface {
	Exists(ctx context.Context, name string) (bool, error)
}

// DriverService creates a driver record the first time a steam name is
// seen anywhere in the system.
type DriverService interface {
	Create(ctx context.Context, name string, nationality uint8) error
}

// NotificationSink is a log-only placeholder for whatever out-of-core
// notification channel (email, Discord, …) the wider system wires in.
type NotificationSink interface {
	Notify(ctx context.Context, message string)
}

// MemChampionshipRepository is an in-memory ChampionshipRepository, safe
// for concurrent use. Useful for tests and for running the service
// without its real persistence layer wired in.
type MemChampionshipRepository struct {
	mu      sync.Mutex
	raceIDs map[int32]string
	rosters map[int32][]string
}

func NewMemChampionshipRepository() *MemChampionshipRepository {
	return &MemChampionshipRepository{
		raceIDs: make(map[int32]string),
		rosters: make(map[int32][]string),
	}
}

func (r *MemChampionshipRepository) RaceIDFor(_ context.Context, championshipID int32) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.raceIDs[championshipID]; ok {
		return id, nil
	}
	id := uuid.NewString()
	r.raceIDs[championshipID] = id
	return id, nil
}

func (r *MemChampionshipRepository) LinkedDrivers(_ context.Context, championshipID int32) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := append([]string(nil), r.rosters[championshipID]...)
	sort.Strings(out)
	return out, nil
}

func (r *MemChampionshipRepository) LinkDriver(_ context.Context, championshipID int32, name string, _, _ uint8) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	roster := r.rosters[championshipID]
	i := sort.SearchStrings(roster, name)
	if i < len(roster) && roster[i] == name {
		return nil
	}
	roster = append(roster, name)
	sort.Strings(roster)
	r.rosters[championshipID] = roster
	return nil
}

// MemDriverRepository is an in-memory DriverRepository.
type MemDriverRepository struct {
	mu    sync.Mutex
	known map[string]bool
}

func NewMemDriverRepository() *MemDriverRepository {
	return &MemDriverRepository{known: make(map[string]bool)}
}

func (r *MemDriverRepository) Exists(_ context.Context, name string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.known[name], nil
}

// MemDriverService is an in-memory DriverService backed by the same map
// a MemDriverRepository reads.
type MemDriverService struct {
	repo *MemDriverRepository
}

func NewMemDriverService(repo *MemDriverRepository) *MemDriverService {
	return &MemDriverService{repo: repo}
}

func (s *MemDriverService) Create(_ context.Context, name string, _ uint8) error {
	s.repo.mu.Lock()
	defer s.repo.mu.Unlock()
	s.repo.known[name] = true
	return nil
}

// LogSink is a NotificationSink that only logs; the real notification
// fan-out (email, Discord, …) lives outside the core.
type LogSink struct {
	Log func(message string)
}

func (s LogSink) Notify(_ context.Context, message string) {
	if s.Log != nil {
		s.Log(message)
	}
}
