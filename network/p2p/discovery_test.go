package p2p

import (
	"context"
	"testing"
	"time"

	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/stretchr/testify/require"
)

func newTestTracker(t *testing.T, interval time.Duration, factor int) *PresenceTracker {
	t.Helper()
	h := newTestHost(t)
	return NewPresenceTracker(h, interval, factor, &NetworkMetrics{})
}

func awaitDiscoveryEvent(t *testing.T, tr *PresenceTracker, timeout time.Duration) DiscoveryEvent {
	t.Helper()
	select {
	case ev := <-tr.Events():
		return ev
	case <-time.After(timeout):
		t.Fatal("no discovery event before timeout")
		return DiscoveryEvent{}
	}
}

func TestHandlePeerFoundEmitsDiscovered(t *testing.T) {
	tracker := newTestTracker(t, time.Second, 3)
	other := newTestHost(t)

	tracker.HandlePeerFound(peer.AddrInfo{ID: other.ID(), Addrs: other.Addrs()})

	ev := awaitDiscoveryEvent(t, tracker, time.Second)
	require.Equal(t, PeerDiscovered, ev.Type)
	require.Equal(t, other.ID(), ev.Peer)
	require.Contains(t, tracker.Tracked(), other.ID())
}

func TestHandlePeerFoundIgnoresSelf(t *testing.T) {
	h := newTestHost(t)
	tracker := NewPresenceTracker(h, time.Second, 3, &NetworkMetrics{})

	tracker.HandlePeerFound(peer.AddrInfo{ID: h.ID(), Addrs: h.Addrs()})

	require.Empty(t, tracker.Tracked())
	select {
	case ev := <-tracker.Events():
		t.Fatalf("unexpected event for self: %v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHandlePeerFoundRefreshesSilently(t *testing.T) {
	tracker := newTestTracker(t, time.Second, 3)
	other := newTestHost(t)
	info := peer.AddrInfo{ID: other.ID(), Addrs: other.Addrs()}

	tracker.HandlePeerFound(info)
	awaitDiscoveryEvent(t, tracker, time.Second)

	// A repeat sighting refreshes last-seen without a second event.
	tracker.HandlePeerFound(info)
	select {
	case ev := <-tracker.Events():
		t.Fatalf("repeat sighting must not emit an event, got %v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSilentPeerExpires(t *testing.T) {
	tracker := newTestTracker(t, 30*time.Millisecond, 2)

	// A fabricated peer the tracker can never connect to.
	ghost := peer.ID("ghost-peer")
	tracker.HandlePeerFound(peer.AddrInfo{ID: ghost})
	awaitDiscoveryEvent(t, tracker, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go tracker.Run(ctx)

	ev := awaitDiscoveryEvent(t, tracker, 2*time.Second)
	require.Equal(t, PeerExpired, ev.Type)
	require.Equal(t, ghost, ev.Peer)
	require.NotContains(t, tracker.Tracked(), ghost)
}

func TestConnectedPeerSurvivesSilence(t *testing.T) {
	h := newTestHost(t)
	tracker := NewPresenceTracker(h, 30*time.Millisecond, 2, &NetworkMetrics{})

	other := newTestHost(t)
	connectHosts(t, h, other)

	tracker.HandlePeerFound(peer.AddrInfo{ID: other.ID(), Addrs: other.Addrs()})
	awaitDiscoveryEvent(t, tracker, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go tracker.Run(ctx)

	// Well past the expiry window the peer is still tracked because
	// the transport holds a live connection.
	time.Sleep(200 * time.Millisecond)
	require.Contains(t, tracker.Tracked(), other.ID())

	select {
	case ev := <-tracker.Events():
		require.NotEqual(t, PeerExpired, ev.Type, "a connected peer must never expire on silence")
	default:
	}
}
