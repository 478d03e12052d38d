package p2p

import (
	"context"
	"sync"
	"time"

	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/p2p/discovery/mdns"
	"github.com/multiformats/go-multiaddr"
)

// mdnsServiceTag scopes discovery to wallet mesh nodes on the segment.
const mdnsServiceTag = "defiwallet-mesh"

// DiscoveryEventType distinguishes presence changes.
type DiscoveryEventType int

const (
	PeerDiscovered DiscoveryEventType = iota
	PeerExpired
)

// DiscoveryEvent reports a peer appearing on or vanishing from the
// local network. Addrs is populated for PeerDiscovered only.
type DiscoveryEvent struct {
	Type  DiscoveryEventType
	Peer  peer.ID
	Addrs []multiaddr.Multiaddr
}

// PresenceTracker layers expiry on top of mDNS announcements. mDNS only
// reports sightings; the tracker records last-seen times and expires
// peers that stay silent for expiry (a multiple of the announce
// interval), unless the transport still holds a live connection:
// a reachable peer is never evicted on silence alone.
//
// Discovery is best-effort: peers on other network segments are simply
// never found, which is a documented property, not a failure.
type PresenceTracker struct {
	host     host.Host
	interval time.Duration
	expiry   time.Duration
	metrics  *NetworkMetrics

	mu       sync.Mutex
	lastSeen map[peer.ID]time.Time

	events chan DiscoveryEvent
}

var _ mdns.Notifee = (*PresenceTracker)(nil)

// NewPresenceTracker creates a tracker expiring peers silent for
// expiryFactor discovery intervals.
func NewPresenceTracker(h host.Host, interval time.Duration, expiryFactor int, metrics *NetworkMetrics) *PresenceTracker {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if expiryFactor < 2 {
		expiryFactor = 3
	}
	return &PresenceTracker{
		host:     h,
		interval: interval,
		expiry:   time.Duration(expiryFactor) * interval,
		metrics:  metrics,
		lastSeen: make(map[peer.ID]time.Time),
		events:   make(chan DiscoveryEvent, 64),
	}
}

// HandlePeerFound is the mDNS callback. A peer unseen (or previously
// expired) emits Discovered and is dialed in the background; a known
// peer just refreshes its last-seen time.
func (t *PresenceTracker) HandlePeerFound(pi peer.AddrInfo) {
	if pi.ID == t.host.ID() {
		return
	}

	t.mu.Lock()
	_, known := t.lastSeen[pi.ID]
	t.lastSeen[pi.ID] = time.Now()
	t.mu.Unlock()

	if known {
		return
	}

	log.Infow("discovered peer via mdns", "peer", pi.ID)
	t.metrics.IncrementPeersDiscovered()

	go func() {
		connectCtx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		if err := t.host.Connect(connectCtx, pi); err != nil {
			log.Debugw("failed to connect to discovered peer", "peer", pi.ID, "err", err)
		}
	}()

	select {
	case t.events <- DiscoveryEvent{Type: PeerDiscovered, Peer: pi.ID, Addrs: pi.Addrs}:
	default:
		log.Warnw("discovery event queue full", "peer", pi.ID)
	}
}

// Run drives the expiry ticker until ctx is cancelled.
func (t *PresenceTracker) Run(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.expireSilentPeers()
		}
	}
}

// Events surfaces presence changes to the event loop.
func (t *PresenceTracker) Events() <-chan DiscoveryEvent {
	return t.events
}

// Tracked returns the peers currently considered present.
func (t *PresenceTracker) Tracked() []peer.ID {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]peer.ID, 0, len(t.lastSeen))
	for p := range t.lastSeen {
		out = append(out, p)
	}
	return out
}

func (t *PresenceTracker) expireSilentPeers() {
	now := time.Now()
	var expired []peer.ID

	t.mu.Lock()
	for p, seen := range t.lastSeen {
		if now.Sub(seen) < t.expiry {
			continue
		}
		// Still holding a live connection means the peer is reachable
		// even though mDNS went quiet; keep it and re-arm the timer.
		if t.host.Network().Connectedness(p) == network.Connected {
			t.lastSeen[p] = now
			continue
		}
		delete(t.lastSeen, p)
		expired = append(expired, p)
	}
	t.mu.Unlock()

	for _, p := range expired {
		log.Infow("peer expired", "peer", p)
		t.metrics.IncrementPeersExpired()
		select {
		case t.events <- DiscoveryEvent{Type: PeerExpired, Peer: p}:
		default:
			log.Warnw("discovery event queue full", "peer", p)
		}
	}
}

// startMDNS wires the tracker into a libp2p mDNS service.
func startMDNS(h host.Host, tracker *PresenceTracker) (mdns.Service, error) {
	service := mdns.NewMdnsService(h, mdnsServiceTag, tracker)
	if err := service.Start(); err != nil {
		return nil, err
	}
	return service, nil
}
