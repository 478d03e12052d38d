package p2p

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	logging "github.com/ipfs/go-log/v2"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/protocol"
	"github.com/multiformats/go-multiaddr"
	"golang.org/x/time/rate"
)

var log = logging.Logger("p2p")

// FloodProtocol is the stream protocol carrying subscription
// announcements and flooded messages between mesh peers.
const FloodProtocol protocol.ID = "/defiwallet/flood/1.0.0"

const sendTimeout = 10 * time.Second

// ConnEvent notifies the event loop of a connection lifecycle change.
type ConnEvent struct {
	Peer      peer.ID
	Connected bool
}

// FloodEngine implements topic-based flooding with deduplication.
// Publishing sends an envelope to every peer in the topic's partial
// view; receiving relays it onward to all view peers except the sender,
// which gives the mesh multi-hop reach. The SeenCache bounds redundant
// relays even when the flood graph has cycles.
type FloodEngine struct {
	host    host.Host
	ctx     context.Context
	cancel  context.CancelFunc
	view    *PartialView
	seen    *SeenCache
	metrics *NetworkMetrics
	limiter *rate.Limiter

	mu     sync.RWMutex
	topics map[string]struct{}

	deliveries chan Delivery
	connEvents chan ConnEvent
}

// NewFloodEngine wires the engine into the host's stream handler and
// connection notifications.
func NewFloodEngine(h host.Host, view *PartialView, seen *SeenCache, metrics *NetworkMetrics) *FloodEngine {
	ctx, cancel := context.WithCancel(context.Background())

	e := &FloodEngine{
		host:    h,
		ctx:     ctx,
		cancel:  cancel,
		view:    view,
		seen:    seen,
		metrics: metrics,
		// 100 msgs/sec with burst of 200
		limiter:    rate.NewLimiter(rate.Limit(100), 200),
		topics:     make(map[string]struct{}),
		deliveries: make(chan Delivery, 256),
		connEvents: make(chan ConnEvent, 64),
	}

	h.SetStreamHandler(FloodProtocol, e.handleStream)
	h.Network().Notify(&floodNotifee{engine: e})
	return e
}

// Subscribe adds topic to the local interest set and announces it to
// every connected peer so they route future floods our way. Idempotent.
func (e *FloodEngine) Subscribe(topic string) {
	e.mu.Lock()
	if _, ok := e.topics[topic]; ok {
		e.mu.Unlock()
		return
	}
	e.topics[topic] = struct{}{}
	e.mu.Unlock()

	fr := frame{Type: frameSubscribe, Topics: []string{topic}}
	for _, p := range e.host.Network().Peers() {
		go e.sendFrame(p, fr)
	}
	log.Infow("subscribed to topic", "topic", topic)
}

// Unsubscribe removes topic from the interest set and tells peers to
// stop flooding it to us.
func (e *FloodEngine) Unsubscribe(topic string) {
	e.mu.Lock()
	if _, ok := e.topics[topic]; !ok {
		e.mu.Unlock()
		return
	}
	delete(e.topics, topic)
	e.mu.Unlock()

	fr := frame{Type: frameUnsubscribe, Topics: []string{topic}}
	for _, p := range e.host.Network().Peers() {
		go e.sendFrame(p, fr)
	}
}

// Subscribed reports whether topic is in the local interest set.
func (e *FloodEngine) Subscribed(topic string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.topics[topic]
	return ok
}

// Topics returns the local interest set.
func (e *FloodEngine) Topics() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]string, 0, len(e.topics))
	for t := range e.topics {
		out = append(out, t)
	}
	return out
}

// Publish floods payload to every peer in topic's partial view and
// records the message ID so echoes are dropped. An empty view yields
// ErrNoRecipients (wrapped) without touching the seen cache; the
// message is not queued for later, but republishing the same content
// after peers arrive delivers it.
func (e *FloodEngine) Publish(topic string, kind Kind, payload interface{}) error {
	env, err := NewEnvelope(e.host.ID(), topic, kind, payload)
	if err != nil {
		return &PublishError{Topic: topic, Err: err}
	}

	if !e.limiter.Allow() {
		return &PublishError{Topic: topic, Err: errors.New("rate limit exceeded")}
	}

	// The no-recipients check runs before the seen-cache insert: a
	// failed publish must leave no trace, so retrying the same content
	// once peers are discovered still sends it.
	peers := e.view.Peers(topic)
	if len(peers) == 0 {
		return &PublishError{Topic: topic, Err: ErrNoRecipients}
	}

	// Identical content published in quick succession maps to the same
	// ID; peers already hold it, so there is nothing to send.
	if !e.seen.AddIfNew(env.ID) {
		return nil
	}

	fr := frame{Type: frameMessage, Envelope: env}
	for _, p := range peers {
		go e.sendFrame(p, fr)
	}
	e.metrics.IncrementMessagesSent()
	return nil
}

// AddNodeToPartialView adds a discovered peer to every subscribed
// topic's view (flood-fill default for new peers).
func (e *FloodEngine) AddNodeToPartialView(p peer.ID) {
	if p == e.host.ID() {
		return
	}
	for _, topic := range e.Topics() {
		e.view.Add(topic, p)
	}
}

// RemoveNodeFromPartialView drops an expired peer from all topic views.
func (e *FloodEngine) RemoveNodeFromPartialView(p peer.ID) {
	e.view.Remove(p)
}

// Deliveries surfaces inbound messages for topics we subscribe to.
func (e *FloodEngine) Deliveries() <-chan Delivery {
	return e.deliveries
}

// ConnEvents surfaces connection lifecycle changes.
func (e *FloodEngine) ConnEvents() <-chan ConnEvent {
	return e.connEvents
}

// Close detaches the engine from the host.
func (e *FloodEngine) Close() {
	e.cancel()
	e.host.RemoveStreamHandler(FloodProtocol)
}

func (e *FloodEngine) handleStream(s network.Stream) {
	defer s.Close()
	remote := s.Conn().RemotePeer()

	reader := NewJSONStreamReader(s)
	for {
		var fr frame
		if err := reader.ReadJSON(&fr); err != nil {
			if !errors.Is(err, io.EOF) {
				e.metrics.IncrementDecodeErrors()
				log.Debugw("dropping malformed frame", "peer", remote, "err", err)
			}
			return
		}
		e.handleFrame(remote, &fr)
	}
}

func (e *FloodEngine) handleFrame(from peer.ID, fr *frame) {
	switch fr.Type {
	case frameSubscribe:
		for _, topic := range fr.Topics {
			e.view.Add(topic, from)
		}
	case frameUnsubscribe:
		for _, topic := range fr.Topics {
			e.view.RemoveFromTopic(topic, from)
		}
	case frameMessage:
		if fr.Envelope == nil {
			e.metrics.IncrementDecodeErrors()
			return
		}
		e.onMessage(from, fr.Envelope)
	default:
		// Unknown frame types from newer peers are ignored.
		log.Debugw("ignoring unknown frame type", "type", fr.Type, "peer", from)
	}
}

func (e *FloodEngine) onMessage(from peer.ID, env *Envelope) {
	if err := env.Validate(); err != nil {
		e.metrics.IncrementDecodeErrors()
		log.Debugw("dropping invalid envelope", "peer", from, "err", err)
		return
	}

	// Loop suppression: our own messages echoed back.
	if env.Origin == e.host.ID().String() {
		return
	}

	if !e.seen.AddIfNew(env.ID) {
		e.metrics.IncrementDuplicatesDropped()
		return
	}
	e.metrics.IncrementMessagesReceived()

	if e.Subscribed(env.Topic) {
		select {
		case e.deliveries <- Delivery{From: from, Envelope: env}:
		default:
			e.metrics.IncrementDispatchDrops()
			log.Warnw("delivery queue full, dropping message", "topic", env.Topic, "id", env.ID)
		}
	}

	// Gossip relay: forward to the topic view minus the sender and the
	// origin. This is what carries a message past direct neighbors.
	fr := frame{Type: frameMessage, Envelope: env}
	relayed := false
	for _, p := range e.view.Peers(env.Topic) {
		if p == from || p.String() == env.Origin {
			continue
		}
		relayed = true
		go e.sendFrame(p, fr)
	}
	if relayed {
		e.metrics.IncrementMessagesRelayed()
	}
}

func (e *FloodEngine) sendFrame(p peer.ID, fr frame) {
	ctx, cancel := context.WithTimeout(e.ctx, sendTimeout)
	defer cancel()

	s, err := e.host.NewStream(ctx, p, FloodProtocol)
	if err != nil {
		log.Debugw("failed to open flood stream", "peer", p, "err", err)
		return
	}
	defer s.Close()

	if err := NewJSONStreamWriter(s).WriteJSON(&fr); err != nil {
		log.Debugw("failed to write frame", "peer", p, "err", err)
	}
}

// announceSubscriptions sends our full interest set to a peer that just
// connected, so it can route floods to us immediately.
func (e *FloodEngine) announceSubscriptions(p peer.ID) {
	topics := e.Topics()
	if len(topics) == 0 {
		return
	}
	e.sendFrame(p, frame{Type: frameSubscribe, Topics: topics})
}

type floodNotifee struct {
	engine *FloodEngine
}

var _ network.Notifiee = (*floodNotifee)(nil)

func (n *floodNotifee) Connected(_ network.Network, c network.Conn) {
	p := c.RemotePeer()
	go n.engine.announceSubscriptions(p)

	select {
	case n.engine.connEvents <- ConnEvent{Peer: p, Connected: true}:
	default:
	}
}

func (n *floodNotifee) Disconnected(_ network.Network, c network.Conn) {
	select {
	case n.engine.connEvents <- ConnEvent{Peer: c.RemotePeer(), Connected: false}:
	default:
	}
}

func (n *floodNotifee) Listen(network.Network, multiaddr.Multiaddr)      {}
func (n *floodNotifee) ListenClose(network.Network, multiaddr.Multiaddr) {}
