package node

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	logging "github.com/ipfs/go-log/v2"

	"github.com/gwrxuk/DeFiWallet/api"
	"github.com/gwrxuk/DeFiWallet/blockchain"
	"github.com/gwrxuk/DeFiWallet/config"
	"github.com/gwrxuk/DeFiWallet/defi"
	"github.com/gwrxuk/DeFiWallet/network"
	"github.com/gwrxuk/DeFiWallet/storage"
	"github.com/gwrxuk/DeFiWallet/wallet"
)

var log = logging.Logger("node")

const shutdownTimeout = 10 * time.Second

// EventHandler observes node-level events by name.
type EventHandler func(event string, data map[string]interface{})

// Node assembles storage, wallet, chain clients, the mesh network and
// the REST API into one lifecycle.
type Node struct {
	cfg *config.Config

	store    *storage.BadgerStore
	wallets  *wallet.Service
	chains   *blockchain.Service
	swaps    *defi.Service
	peerBook *network.MeshPeerBook
	mesh     *network.Network
	server   *api.Server

	mu       sync.Mutex
	handlers map[string]EventHandler
	started  bool

	cancel  context.CancelFunc
	loopErr chan error
	wg      sync.WaitGroup
	start   time.Time
}

// New builds the node from configuration. Nothing is started; every
// long-lived resource except the store waits for Start.
func New(cfg *config.Config) (*Node, error) {
	store, err := storage.NewBadgerStore(cfg.Wallet.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	wallets, err := wallet.NewService(store, cfg.Wallet.Passphrase)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("wallet service: %w", err)
	}

	chains := blockchain.NewService(&cfg.Blockchain)

	eth := blockchain.NewEthereumClient(cfg.Blockchain.EthereumRPCURL, cfg.Blockchain.RequestTimeout.Std())
	swaps, err := defi.NewService(&cfg.DeFi, eth)
	if err != nil {
		store.Close()
		return nil, err
	}

	peerBook := network.NewMeshPeerBook()
	mesh, err := network.New(cfg, network.Collaborators{
		Wallet: wallets,
		Chain:  chains,
		Peers:  peerBook,
	})
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("network: %w", err)
	}

	n := &Node{
		cfg:      cfg,
		store:    store,
		wallets:  wallets,
		chains:   chains,
		swaps:    swaps,
		peerBook: peerBook,
		mesh:     mesh,
		handlers: make(map[string]EventHandler),
		loopErr:  make(chan error, 1),
	}
	n.server = api.NewServer(&cfg.API, wallets, chains, swaps, mesh, n.Status)
	return n, nil
}

// Start binds the transport, runs the event loop and serves the API.
func (n *Node) Start() error {
	n.mu.Lock()
	if n.started {
		n.mu.Unlock()
		return errors.New("node already started")
	}
	n.started = true
	n.start = time.Now()
	n.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	n.cancel = cancel

	if err := n.mesh.Start(ctx); err != nil {
		cancel()
		return fmt.Errorf("starting network: %w", err)
	}
	n.peerBook.Bind(n.mesh.Manager())

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		if err := n.mesh.Run(ctx); err != nil && ctx.Err() == nil {
			log.Errorw("network loop terminated", "err", err)
			n.emit("network_fatal", map[string]interface{}{"error": err.Error()})
			select {
			case n.loopErr <- err:
			default:
			}
		}
	}()

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		if err := n.server.Start(); err != nil {
			log.Errorw("api server terminated", "err", err)
			select {
			case n.loopErr <- err:
			default:
			}
		}
	}()

	log.Infow("node started",
		"name", n.cfg.NodeName,
		"peer_id", n.mesh.Manager().ID().String(),
		"api", n.cfg.API.RESTAddr)
	n.emit("started", map[string]interface{}{"peer_id": n.mesh.Manager().ID().String()})
	return nil
}

// Stop tears the node down in reverse start order.
func (n *Node) Stop() error {
	n.mu.Lock()
	if !n.started {
		n.mu.Unlock()
		return nil
	}
	n.started = false
	n.mu.Unlock()

	log.Info("stopping node")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := n.server.Stop(ctx); err != nil {
		log.Warnw("api shutdown", "err", err)
	}

	if n.cancel != nil {
		n.cancel()
	}
	if err := n.mesh.Stop(); err != nil {
		log.Warnw("network shutdown", "err", err)
	}
	n.wg.Wait()

	if err := n.store.Close(); err != nil {
		return fmt.Errorf("closing store: %w", err)
	}

	n.emit("stopped", nil)
	log.Info("node stopped")
	return nil
}

// Err reports a fatal error from the network loop or the API server.
func (n *Node) Err() <-chan error {
	return n.loopErr
}

// AddEventHandler registers a named observer for node events. A second
// registration under the same name replaces the first.
func (n *Node) AddEventHandler(name string, fn EventHandler) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.handlers[name] = fn
}

// RemoveEventHandler drops a named observer.
func (n *Node) RemoveEventHandler(name string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.handlers, name)
}

func (n *Node) emit(event string, data map[string]interface{}) {
	n.mu.Lock()
	handlers := make([]EventHandler, 0, len(n.handlers))
	for _, fn := range n.handlers {
		handlers = append(handlers, fn)
	}
	n.mu.Unlock()

	for _, fn := range handlers {
		fn(event, data)
	}
}

// Status summarizes the node for the API and the CLI ticker.
func (n *Node) Status() map[string]interface{} {
	n.mu.Lock()
	started := n.started
	uptime := time.Since(n.start)
	n.mu.Unlock()

	status := map[string]interface{}{
		"name":    n.cfg.NodeName,
		"running": started,
	}
	if !started {
		return status
	}

	status["uptime"] = uptime.Round(time.Second).String()
	status["known_peers"] = n.peerBook.Known()
	if count, err := n.wallets.Count(); err == nil {
		status["wallets"] = count
	}
	status["pending_transactions"] = len(n.chains.PendingTransactions())
	status["network"] = n.mesh.Stats()
	return status
}

// Network exposes the mesh for tests and the CLI.
func (n *Node) Network() *network.Network {
	return n.mesh
}

// Wallets exposes the wallet service.
func (n *Node) Wallets() *wallet.Service {
	return n.wallets
}
