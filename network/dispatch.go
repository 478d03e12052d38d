package network

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gwrxuk/DeFiWallet/config"
	"github.com/gwrxuk/DeFiWallet/network/p2p"
)

// Collaborator interfaces. Dispatch is fire-and-forget: the event loop
// enqueues work onto a bounded queue per collaborator and moves on, so
// a slow wallet or chain consumer can never stall the network.

// WalletState consumes balance announcements from the mesh.
type WalletState interface {
	OnWalletUpdate(address string, balance float64)
}

// ChainState consumes transaction announcements from the mesh.
type ChainState interface {
	OnTransaction(from, to string, amount float64, chainType string)
}

// PeerBook consumes peer lists shared over the mesh.
type PeerBook interface {
	OnPeerList(peers []string)
}

// Collaborators bundles the external consumers of decoded messages.
type Collaborators struct {
	Wallet WalletState
	Chain  ChainState
	Peers  PeerBook
}

type handlerFunc func(env *p2p.Envelope) error

// Dispatcher decodes delivered envelopes into typed events and routes
// them to collaborators through bounded queues. The handler table is
// exhaustive over p2p.Kinds(); constructing a dispatcher with a missing
// handler fails, so a new message kind cannot silently go unrouted.
type Dispatcher struct {
	handlers   map[p2p.Kind]handlerFunc
	walletQ    chan func()
	chainQ     chan func()
	peerQ      chan func()
	dropOldest bool
	metrics    *p2p.NetworkMetrics
}

// NewDispatcher builds the handler table and the per-collaborator
// queues. Queue overflow policy comes from cfg.DropOldest.
func NewDispatcher(cfg *config.NetworkConfig, collab Collaborators, metrics *p2p.NetworkMetrics) (*Dispatcher, error) {
	if collab.Wallet == nil || collab.Chain == nil || collab.Peers == nil {
		return nil, fmt.Errorf("all collaborators must be set")
	}

	d := &Dispatcher{
		walletQ:    make(chan func(), cfg.DispatchQueue),
		chainQ:     make(chan func(), cfg.DispatchQueue),
		peerQ:      make(chan func(), cfg.DispatchQueue),
		dropOldest: cfg.DropOldest,
		metrics:    metrics,
	}

	d.handlers = map[p2p.Kind]handlerFunc{
		p2p.KindWalletUpdate: func(env *p2p.Envelope) error {
			var msg p2p.WalletUpdate
			if err := json.Unmarshal(env.Payload, &msg); err != nil {
				return fmt.Errorf("malformed wallet update: %w", err)
			}
			d.enqueue(d.walletQ, func() {
				collab.Wallet.OnWalletUpdate(msg.Address, msg.Balance)
			})
			return nil
		},
		p2p.KindTransaction: func(env *p2p.Envelope) error {
			var msg p2p.Transaction
			if err := json.Unmarshal(env.Payload, &msg); err != nil {
				return fmt.Errorf("malformed transaction: %w", err)
			}
			d.enqueue(d.chainQ, func() {
				collab.Chain.OnTransaction(msg.From, msg.To, msg.Amount, msg.ChainType)
			})
			return nil
		},
		p2p.KindPeerDiscovery: func(env *p2p.Envelope) error {
			var msg p2p.PeerDiscovery
			if err := json.Unmarshal(env.Payload, &msg); err != nil {
				return fmt.Errorf("malformed peer discovery: %w", err)
			}
			d.enqueue(d.peerQ, func() {
				collab.Peers.OnPeerList(msg.Peers)
			})
			return nil
		},
	}

	// The kind set is closed; refuse to run with an incomplete table.
	for _, kind := range p2p.Kinds() {
		if _, ok := d.handlers[kind]; !ok {
			return nil, fmt.Errorf("dispatch table is missing handler for kind %q", kind)
		}
	}

	return d, nil
}

// Start launches one worker per collaborator queue. Workers exit when
// ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for _, q := range []chan func(){d.walletQ, d.chainQ, d.peerQ} {
		go func(q chan func()) {
			for {
				select {
				case <-ctx.Done():
					return
				case fn := <-q:
					fn()
				}
			}
		}(q)
	}
}

// Dispatch routes a delivered envelope. Malformed payloads and unknown
// kinds are counted and dropped; they never propagate as errors that
// could stop the event loop.
func (d *Dispatcher) Dispatch(env *p2p.Envelope) {
	handler, ok := d.handlers[env.Kind]
	if !ok {
		d.metrics.IncrementDecodeErrors()
		log.Debugw("dropping message of unknown kind", "kind", env.Kind, "id", env.ID)
		return
	}
	if err := handler(env); err != nil {
		d.metrics.IncrementDecodeErrors()
		log.Debugw("dropping undecodable message", "kind", env.Kind, "id", env.ID, "err", err)
	}
}

// enqueue applies the configured overflow policy: drop the oldest
// queued item to make room, or reject the incoming one.
func (d *Dispatcher) enqueue(q chan func(), fn func()) {
	select {
	case q <- fn:
		return
	default:
	}

	if d.dropOldest {
		select {
		case <-q:
			d.metrics.IncrementDispatchDrops()
		default:
		}
		select {
		case q <- fn:
			return
		default:
		}
	}
	d.metrics.IncrementDispatchDrops()
}
