// Package network runs the node's single control loop: it merges
// discovery events, flood deliveries and application commands, and
// routes decoded messages to the wallet and blockchain collaborators.
package network

import (
	"context"
	"errors"

	logging "github.com/ipfs/go-log/v2"

	"github.com/gwrxuk/DeFiWallet/config"
	"github.com/gwrxuk/DeFiWallet/network/p2p"
)

var log = logging.Logger("network")

// Topics carried by the wallet mesh.
const (
	TopicWalletUpdates = "wallet-updates"
	TopicTransactions  = "transactions"
	TopicPeerExchange  = "peer-exchange"
)

// DefaultTopics lists the topics every node subscribes to at startup.
func DefaultTopics() []string {
	return []string{TopicWalletUpdates, TopicTransactions, TopicPeerExchange}
}

// ErrTransportClosed reports the transport dying underneath the event
// loop. It is fatal for the network component; the owning process
// decides whether to restart or exit.
var ErrTransportClosed = errors.New("transport closed while event loop was running")

type command struct {
	topic   string
	kind    p2p.Kind
	payload interface{}
	result  chan error
}

// Network owns the p2p manager, the dispatcher and the command queue.
//
// All mutable network state (partial view, seen cache) is written from
// the event loop and the flood engine only; other goroutines interact
// through the bounded command queue or read-locked accessors.
type Network struct {
	cfg        *config.Config
	manager    *p2p.Manager
	dispatcher *Dispatcher
	commands   chan command
}

// New assembles the network component around the given collaborators.
func New(cfg *config.Config, collab Collaborators) (*Network, error) {
	manager, err := p2p.NewManager(&cfg.Network)
	if err != nil {
		return nil, err
	}

	dispatcher, err := NewDispatcher(&cfg.Network, collab, manager.Metrics())
	if err != nil {
		return nil, err
	}

	return &Network{
		cfg:        cfg,
		manager:    manager,
		dispatcher: dispatcher,
		commands:   make(chan command, cfg.Network.CommandQueue),
	}, nil
}

// Start binds the transport, subscribes the default topics and launches
// the dispatch workers. The event loop itself runs via Run.
func (n *Network) Start(ctx context.Context) error {
	if err := n.manager.Start(); err != nil {
		return err
	}

	flood := n.manager.Flood()
	for _, topic := range DefaultTopics() {
		flood.Subscribe(topic)
	}

	n.dispatcher.Start(ctx)
	return nil
}

// Stop shuts the transport down.
func (n *Network) Stop() error {
	return n.manager.Stop()
}

// Run is the event loop. Each iteration waits for whichever source is
// ready first (a discovery event, a flood delivery, a connection
// change or a queued command), handles it to completion without
// blocking calls, and loops. It returns nil on ctx cancellation and
// ErrTransportClosed if the transport dies first.
func (n *Network) Run(ctx context.Context) error {
	flood := n.manager.Flood()
	tracker := n.manager.Tracker()
	if flood == nil || tracker == nil {
		return p2p.ErrNotRunning
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-n.manager.Done():
			return ErrTransportClosed

		case ev := <-tracker.Events():
			n.handleDiscovery(flood, ev)

		case d := <-flood.Deliveries():
			n.dispatcher.Dispatch(d.Envelope)

		case ce := <-flood.ConnEvents():
			n.manager.Metrics().UpdatePeerCount(int64(len(n.manager.ConnectedPeers())))
			log.Debugw("connection change", "peer", ce.Peer, "connected", ce.Connected)

		case cmd := <-n.commands:
			cmd.result <- flood.Publish(cmd.topic, cmd.kind, cmd.payload)
		}
	}
}

// Publish enqueues a broadcast for the event loop and waits for its
// result. A full command queue fails fast with p2p.ErrBusy instead of
// blocking; an empty partial view surfaces p2p.ErrNoRecipients.
func (n *Network) Publish(ctx context.Context, topic string, kind p2p.Kind, payload interface{}) error {
	cmd := command{topic: topic, kind: kind, payload: payload, result: make(chan error, 1)}

	select {
	case n.commands <- cmd:
	default:
		return p2p.ErrBusy
	}

	select {
	case err := <-cmd.result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishWalletUpdate broadcasts a balance change.
func (n *Network) PublishWalletUpdate(ctx context.Context, address string, balance float64) error {
	return n.Publish(ctx, TopicWalletUpdates, p2p.KindWalletUpdate,
		&p2p.WalletUpdate{Address: address, Balance: balance})
}

// PublishTransaction broadcasts a transaction announcement.
func (n *Network) PublishTransaction(ctx context.Context, from, to string, amount float64, chainType string) error {
	return n.Publish(ctx, TopicTransactions, p2p.KindTransaction,
		&p2p.Transaction{From: from, To: to, Amount: amount, ChainType: chainType})
}

// PublishPeerList shares known peer addresses with the mesh.
func (n *Network) PublishPeerList(ctx context.Context, peers []string) error {
	return n.Publish(ctx, TopicPeerExchange, p2p.KindPeerDiscovery,
		&p2p.PeerDiscovery{Peers: peers})
}

// Manager exposes the p2p layer for status queries and dials.
func (n *Network) Manager() *p2p.Manager {
	return n.manager
}

// Stats returns the manager and metric counters.
func (n *Network) Stats() map[string]interface{} {
	return n.manager.Stats()
}

func (n *Network) handleDiscovery(flood *p2p.FloodEngine, ev p2p.DiscoveryEvent) {
	switch ev.Type {
	case p2p.PeerDiscovered:
		flood.AddNodeToPartialView(ev.Peer)
	case p2p.PeerExpired:
		flood.RemoveNodeFromPartialView(ev.Peer)
	}
	n.manager.Metrics().UpdatePeerCount(int64(len(n.manager.ConnectedPeers())))
}
