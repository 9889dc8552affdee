package session

import (
	"context"
	"io"
	"sync"
	"sync/atomic"

	"github.com/racewire/telemetry-hub/internal/metrics"
)

// broadcaster is a fixed-capacity, overflow-drop fan-out channel: once
// capacity slots are in flight, publishing one more silently evicts the
// oldest. A subscriber that falls behind by more than capacity jumps
// forward to the oldest surviving message rather than blocking the
// publisher — there is no backpressure path into the ingestion loop.
//
// The standard library has no broadcast channel, and nothing in the
// pack's dependency set provides one either (Go's channels are
// single-consumer by construction); this ring buffer plus condition
// variable is the idiomatic hand-rolled substitute.
type broadcaster struct {
	mu     sync.Mutex
	cond   *sync.Cond
	cap    uint64
	next   uint64
	buf    [][]byte
	subs   int32
	closed bool
	stream string
}

func newBroadcaster(capacity int, stream string) *broadcaster {
	b := &broadcaster{cap: uint64(capacity), buf: make([][]byte, capacity), stream: stream}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// publish appends msg, evicting the oldest buffered message if full.
// Never blocks.
func (b *broadcaster) publish(msg []byte) {
	b.mu.Lock()
	b.buf[b.next%b.cap] = msg
	b.next++
	b.mu.Unlock()
	b.cond.Broadcast()
}

func (b *broadcaster) subscriberCount() int {
	return int(atomic.LoadInt32(&b.subs))
}

// close marks the broadcaster as done; blocked Recv calls return io.EOF
// once they've drained whatever was already published.
func (b *broadcaster) close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	b.cond.Broadcast()
}

// subscription is one subscriber's read cursor into a broadcaster.
type subscription struct {
	b    *broadcaster
	next uint64
}

// subscribe registers a new subscriber starting at the broadcaster's
// current write position — it never replays history older than "now";
// callers that want the last snapshot too must prepend it themselves
// (see registry.go's cache_and_subscribe equivalent).
func (b *broadcaster) subscribe() *subscription {
	atomic.AddInt32(&b.subs, 1)
	b.mu.Lock()
	start := b.next
	b.mu.Unlock()
	return &subscription{b: b, next: start}
}

// Close releases this subscription's slot in the subscriber count. Team
// counts (and the global count) saturate at zero regardless of how many
// times Close is called beyond Subscribe.
func (s *subscription) Close() {
	for {
		cur := atomic.LoadInt32(&s.b.subs)
		if cur <= 0 {
			return
		}
		if atomic.CompareAndSwapInt32(&s.b.subs, cur, cur-1) {
			return
		}
	}
}

// Recv blocks until the next message is available, the broadcaster
// closes, or ctx is cancelled. A subscriber that has lagged past the
// buffer's capacity silently jumps to the oldest still-buffered message.
func (s *subscription) Recv(ctx context.Context) ([]byte, error) {
	done := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		s.b.mu.Lock()
		close(done)
		s.b.cond.Broadcast()
		s.b.mu.Unlock()
	})
	defer stop()

	s.b.mu.Lock()
	defer s.b.mu.Unlock()

	for {
		if s.b.next > s.b.cap {
			oldest := s.b.next - s.b.cap
			if s.next < oldest {
				metrics.BroadcastOverflows.WithLabelValues(s.b.stream).Inc()
				s.next = oldest
			}
		}
		if s.next < s.b.next {
			msg := s.b.buf[s.next%s.b.cap]
			s.next++
			return msg, nil
		}
		if s.b.closed {
			return nil, io.EOF
		}
		select {
		case <-done:
			return nil, ctx.Err()
		default:
		}
		s.b.cond.Wait()
	}
}
