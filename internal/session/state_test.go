package session

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/racewire/telemetry-hub/internal/codec"
)

func TestBroadcasterPublishAndRecv(t *testing.T) {
	b := newBroadcaster(4, "test")
	sub := b.subscribe()
	defer sub.Close()

	b.publish([]byte("hello"))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	msg, err := sub.Recv(ctx)
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), msg)
}

func TestBroadcasterLaggedSubscriberJumpsForward(t *testing.T) {
	b := newBroadcaster(2, "test")
	sub := b.subscribe()
	defer sub.Close()

	b.publish([]byte("a"))
	b.publish([]byte("b"))
	b.publish([]byte("c")) // evicts "a", sub now has 3 unread with capacity 2

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	msg, err := sub.Recv(ctx)
	require.NoError(t, err)
	require.Equal(t, []byte("b"), msg)
}

func TestBroadcasterRecvUnblocksOnContextCancel(t *testing.T) {
	b := newBroadcaster(4, "test")
	sub := b.subscribe()
	defer sub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := sub.Recv(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBroadcasterRecvReturnsEOFOnceClosedAndDrained(t *testing.T) {
	b := newBroadcaster(4, "test")
	sub := b.subscribe()
	defer sub.Close()

	b.publish([]byte("last"))
	b.close()

	ctx := context.Background()
	msg, err := sub.Recv(ctx)
	require.NoError(t, err)
	require.Equal(t, []byte("last"), msg)

	_, err = sub.Recv(ctx)
	require.ErrorIs(t, err, io.EOF)
}

func TestBroadcasterSubscriberCountSaturatesAtZero(t *testing.T) {
	b := newBroadcaster(4, "test")
	sub := b.subscribe()
	require.Equal(t, 1, b.subscriberCount())
	sub.Close()
	sub.Close()
	require.Equal(t, 0, b.subscriberCount())
}

func TestManagerSubscribeTeamRequiresKnownTeam(t *testing.T) {
	m := newTestManager(t)
	_, ok := m.SubscribeTeam(9)
	require.False(t, ok)

	m.SaveParticipants(participantsPacket(codec.ParticipantData{Name: "Alice", TeamID: 9}))
	sub, ok := m.SubscribeTeam(9)
	require.True(t, ok)
	defer sub.Close()
	require.Equal(t, 1, m.TeamSubscriberCount(9))
}

func TestManagerCacheReturnsLastEncodedGeneralDelta(t *testing.T) {
	m := newTestManager(t)
	require.Nil(t, m.Cache())

	m.lastGeneralEncodedMu.Lock()
	m.lastGeneralEncoded = []byte{1, 2, 3}
	m.lastGeneralEncodedMu.Unlock()

	require.Equal(t, []byte{1, 2, 3}, m.Cache())
}

func TestManagerCloseStopsEmitterAndEndsSubscriptions(t *testing.T) {
	m := NewManager(zerolog.Nop())
	sub := m.SubscribeGlobal()
	m.Close()
	m.Close() // idempotent

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := sub.Recv(ctx)
	require.ErrorIs(t, err, io.EOF)
}
