package network

import (
	"context"
	"sync"
	"time"

	"github.com/gwrxuk/DeFiWallet/network/p2p"
)

const peerDialTimeout = 10 * time.Second

// MeshPeerBook consumes peer lists shared over the mesh and dials the
// addresses it has not seen before. It is constructed before the
// manager exists, so the manager is bound after startup; lists arriving
// earlier are only recorded.
type MeshPeerBook struct {
	mu      sync.Mutex
	manager *p2p.Manager
	known   map[string]struct{}
}

// NewMeshPeerBook returns an unbound peer book.
func NewMeshPeerBook() *MeshPeerBook {
	return &MeshPeerBook{known: make(map[string]struct{})}
}

// Bind attaches the transport used for dialing.
func (b *MeshPeerBook) Bind(manager *p2p.Manager) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.manager = manager
}

// OnPeerList records the announced addresses and dials new ones in the
// background. Dial failures are logged and forgotten; the peer may
// announce again.
func (b *MeshPeerBook) OnPeerList(peers []string) {
	b.mu.Lock()
	manager := b.manager
	var fresh []string
	for _, addr := range peers {
		if _, ok := b.known[addr]; ok {
			continue
		}
		b.known[addr] = struct{}{}
		fresh = append(fresh, addr)
	}
	b.mu.Unlock()

	if manager == nil || len(fresh) == 0 {
		return
	}

	go func() {
		for _, addr := range fresh {
			ctx, cancel := context.WithTimeout(context.Background(), peerDialTimeout)
			if err := manager.Dial(ctx, addr); err != nil {
				log.Debugw("announced peer unreachable", "addr", addr, "err", err)
				b.mu.Lock()
				delete(b.known, addr)
				b.mu.Unlock()
			}
			cancel()
		}
	}()
}

// Known returns the number of addresses the book has recorded.
func (b *MeshPeerBook) Known() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.known)
}
