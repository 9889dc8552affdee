package registry

import (
	"sync"

	"github.com/racewire/telemetry-hub/internal/apperrors"
)

// PortAllocator hands out free UDP ports drawn from a configured range,
// grounded on the original's `MachinePorts`: a free-list seeded once at
// startup from whatever ports are already in use, popped on start and
// pushed back on stop.
type PortAllocator struct {
	start, end uint16

	mu    sync.Mutex
	free  []uint16
	inUse map[uint16]bool
}

// NewPortAllocator seeds the pool with every port in [start, end) not
// already present in reserved.
func NewPortAllocator(start, end uint16, reserved map[uint16]bool) *PortAllocator {
	a := &PortAllocator{
		start: start,
		end:   end,
		inUse: make(map[uint16]bool, len(reserved)),
	}
	for port := start; port < end; port++ {
		if reserved[port] {
			a.inUse[port] = true
			continue
		}
		a.free = append(a.free, port)
	}
	return a
}

// Acquire pops the next free port from the pool.
func (a *PortAllocator) Acquire() (uint16, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.free) == 0 {
		return 0, apperrors.New(apperrors.KindExternalRepository, "registry: no free ports left in configured range")
	}
	port := a.free[0]
	a.free = a.free[1:]
	a.inUse[port] = true
	return port, nil
}

// Reserve marks an explicitly chosen port as in use. It fails if port
// falls outside [start, end) or is already taken.
func (a *PortAllocator) Reserve(port uint16) error {
	if port < a.start || port >= a.end {
		return apperrors.Errorf(apperrors.KindValidation,
			"registry: port %d outside configured range [%d, %d)", port, a.start, a.end)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.inUse[port] {
		return apperrors.Errorf(apperrors.KindAlreadyExists, "registry: port %d already in use", port)
	}
	for i, p := range a.free {
		if p == port {
			a.free = append(a.free[:i], a.free[i+1:]...)
			break
		}
	}
	a.inUse[port] = true
	return nil
}

// Release returns port to the pool. A no-op if port was never tracked
// as in use (e.g. it was never acquired through this allocator).
func (a *PortAllocator) Release(port uint16) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.inUse[port] {
		return
	}
	delete(a.inUse, port)
	a.free = append(a.free, port)
}
