package p2p

import (
	"context"
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/libp2p/go-libp2p"
	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/p2p/discovery/mdns"
	"github.com/multiformats/go-multiaddr"

	"github.com/gwrxuk/DeFiWallet/config"
)

// Manager owns the process network identity and the libp2p host, and
// assembles the flood engine and presence tracker around it. The
// identity keypair is generated once and lives for the process
// lifetime; the host provides authenticated, multiplexed streams.
type Manager struct {
	cfg *config.NetworkConfig

	mu      sync.RWMutex
	started bool

	host      host.Host
	flood     *FloodEngine
	tracker   *PresenceTracker
	mdnsSvc   mdns.Service
	view      *PartialView
	seen      *SeenCache
	metrics   *NetworkMetrics
	ctx       context.Context
	cancel    context.CancelFunc
	bootstrap []multiaddr.Multiaddr
}

// NewManager parses configuration but defers binding to Start, so the
// listen address is claimed exactly once.
func NewManager(cfg *config.NetworkConfig) (*Manager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("network config cannot be nil")
	}

	var bootstrap []multiaddr.Multiaddr
	for _, addr := range cfg.BootstrapPeers {
		maddr, err := multiaddr.NewMultiaddr(addr)
		if err != nil {
			log.Warnw("skipping invalid bootstrap peer address", "addr", addr, "err", err)
			continue
		}
		bootstrap = append(bootstrap, maddr)
	}

	return &Manager{
		cfg:       cfg,
		metrics:   &NetworkMetrics{},
		bootstrap: bootstrap,
	}, nil
}

// Start generates the node identity, binds the listen address and
// launches discovery. A second Start returns ErrAlreadyListening.
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return ErrAlreadyListening
	}

	priv, _, err := crypto.GenerateEd25519Key(rand.Reader)
	if err != nil {
		return fmt.Errorf("failed to generate node identity: %w", err)
	}

	h, err := libp2p.New(
		libp2p.Identity(priv),
		libp2p.ListenAddrStrings(m.cfg.ListenAddr),
	)
	if err != nil {
		return &BindError{Addr: m.cfg.ListenAddr, Err: err}
	}

	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.host = h
	m.view = NewPartialView(m.cfg.MaxPeers)
	m.seen = NewSeenCache(m.cfg.SeenTTL.Std(), m.cfg.SeenCapacity)
	m.flood = NewFloodEngine(h, m.view, m.seen, m.metrics)
	m.tracker = NewPresenceTracker(h, m.cfg.DiscoveryInterval.Std(), m.cfg.ExpiryFactor, m.metrics)

	svc, err := startMDNS(h, m.tracker)
	if err != nil {
		h.Close()
		m.cancel()
		return fmt.Errorf("failed to start mdns discovery: %w", err)
	}
	m.mdnsSvc = svc

	go m.tracker.Run(m.ctx)
	go m.connectToBootstrapPeers()

	m.started = true
	log.Infow("p2p manager started", "peer", h.ID(), "addrs", h.Addrs())
	return nil
}

// Stop shuts the network down: discovery first, then the flood engine,
// then the host. Idempotent.
func (m *Manager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.started {
		return nil
	}
	m.started = false

	if m.mdnsSvc != nil {
		if err := m.mdnsSvc.Close(); err != nil {
			log.Warnw("error closing mdns service", "err", err)
		}
	}
	m.cancel()
	m.flood.Close()

	if err := m.host.Close(); err != nil {
		return fmt.Errorf("error closing libp2p host: %w", err)
	}
	log.Infow("p2p manager stopped")
	return nil
}

// Dial establishes a connection to a peer multiaddr, honoring the
// configured dial timeout.
func (m *Manager) Dial(ctx context.Context, addr string) error {
	m.mu.RLock()
	started := m.started
	h := m.host
	m.mu.RUnlock()
	if !started {
		return ErrNotRunning
	}

	maddr, err := multiaddr.NewMultiaddr(addr)
	if err != nil {
		return &DialError{Addr: addr, Err: err}
	}
	pi, err := peer.AddrInfoFromP2pAddr(maddr)
	if err != nil {
		return &DialError{Addr: addr, Err: err}
	}
	if pi.ID == h.ID() {
		return nil
	}

	dialCtx, cancel := context.WithTimeout(ctx, m.cfg.DialTimeout.Std())
	defer cancel()
	if err := h.Connect(dialCtx, *pi); err != nil {
		return &DialError{Addr: addr, Err: err}
	}
	return nil
}

// connectToBootstrapPeers dials the configured seeds with retry and
// exponential backoff.
func (m *Manager) connectToBootstrapPeers() {
	var wg sync.WaitGroup
	for _, addr := range m.bootstrap {
		pi, err := peer.AddrInfoFromP2pAddr(addr)
		if err != nil {
			log.Warnw("invalid bootstrap peer address", "addr", addr, "err", err)
			continue
		}
		if pi.ID == m.host.ID() {
			continue
		}

		wg.Add(1)
		go func(pi peer.AddrInfo) {
			defer wg.Done()
			m.connectWithRetry(pi, 3)
		}(*pi)
	}
	wg.Wait()
}

func (m *Manager) connectWithRetry(pi peer.AddrInfo, maxRetries int) {
	for attempt := 1; attempt <= maxRetries; attempt++ {
		connectCtx, cancel := context.WithTimeout(m.ctx, m.cfg.DialTimeout.Std())
		err := m.host.Connect(connectCtx, pi)
		cancel()

		if err == nil {
			log.Infow("connected to bootstrap peer", "peer", pi.ID, "attempt", attempt)
			return
		}
		log.Debugw("bootstrap connection failed", "peer", pi.ID, "attempt", attempt, "err", err)

		if attempt < maxRetries {
			backoff := time.Duration(attempt*attempt) * time.Second
			select {
			case <-time.After(backoff):
			case <-m.ctx.Done():
				return
			}
		}
	}
	log.Warnw("giving up on bootstrap peer", "peer", pi.ID, "attempts", maxRetries)
}

// Done is closed when the transport shuts down. The event loop uses it
// to detect a transport that died underneath it.
func (m *Manager) Done() <-chan struct{} {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.ctx == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return m.ctx.Done()
}

// Flood returns the flood engine. Nil before Start.
func (m *Manager) Flood() *FloodEngine {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.flood
}

// Tracker returns the presence tracker. Nil before Start.
func (m *Manager) Tracker() *PresenceTracker {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tracker
}

// View returns the topic partial view. Nil before Start.
func (m *Manager) View() *PartialView {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.view
}

// Metrics returns the shared network counters.
func (m *Manager) Metrics() *NetworkMetrics {
	return m.metrics
}

// ID returns the host peer ID, or "" before Start.
func (m *Manager) ID() peer.ID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.host == nil {
		return ""
	}
	return m.host.ID()
}

// Addrs returns the bound listen addresses.
func (m *Manager) Addrs() []multiaddr.Multiaddr {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.host == nil {
		return nil
	}
	return m.host.Addrs()
}

// ConnectedPeers returns the peers with live connections.
func (m *Manager) ConnectedPeers() []peer.ID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.host == nil {
		return nil
	}
	return m.host.Network().Peers()
}

// IsConnected reports whether a live connection to p exists.
func (m *Manager) IsConnected(p peer.ID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.host == nil {
		return false
	}
	return m.host.Network().Connectedness(p) == network.Connected
}

// Stats returns manager state plus metric counters for the status API.
func (m *Manager) Stats() map[string]interface{} {
	m.mu.RLock()
	stats := map[string]interface{}{
		"listen_addr":     m.cfg.ListenAddr,
		"bootstrap_peers": len(m.bootstrap),
		"running":         m.started,
	}
	if m.host != nil {
		stats["peer_id"] = m.host.ID().String()
		stats["connected_peers"] = len(m.host.Network().Peers())
		addrs := make([]string, 0, len(m.host.Addrs()))
		for _, a := range m.host.Addrs() {
			addrs = append(addrs, a.String())
		}
		stats["listen_addrs"] = addrs
	}
	if m.flood != nil {
		stats["topics"] = m.flood.Topics()
	}
	m.mu.RUnlock()

	for k, v := range m.metrics.GetSnapshot() {
		stats[k] = v
	}
	return stats
}
