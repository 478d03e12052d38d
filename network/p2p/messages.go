package p2p

import (
	"encoding/json"
	"fmt"

	"github.com/libp2p/go-libp2p/core/peer"
	"golang.org/x/crypto/blake2b"
)

// Kind tags the closed set of application payloads carried by the
// flood protocol. Adding a kind means adding a constant here, a payload
// struct below, and a handler in the dispatch table; the dispatcher
// refuses to start with an incomplete table.
type Kind string

const (
	KindWalletUpdate  Kind = "wallet_update"
	KindTransaction   Kind = "transaction"
	KindPeerDiscovery Kind = "peer_discovery"
)

// Kinds returns every known message kind.
func Kinds() []Kind {
	return []Kind{KindWalletUpdate, KindTransaction, KindPeerDiscovery}
}

// WalletUpdate announces a balance change for a wallet address.
type WalletUpdate struct {
	Address string  `json:"address"`
	Balance float64 `json:"balance"`
}

// Transaction announces a transfer between two addresses on a chain.
type Transaction struct {
	From      string  `json:"from"`
	To        string  `json:"to"`
	Amount    float64 `json:"amount"`
	ChainType string  `json:"chain_type"`
}

// PeerDiscovery shares known peer addresses with the mesh.
type PeerDiscovery struct {
	Peers []string `json:"peers"`
}

// Envelope wraps a payload for wire transmission. The ID is derived
// from origin, topic and payload bytes, so re-publishing identical
// content yields the same ID and deduplicates downstream.
//
// Decoding is forward-compatible: unknown fields are ignored, and the
// raw payload is only interpreted by the dispatch layer.
type Envelope struct {
	ID      string          `json:"id"`
	Origin  string          `json:"origin"`
	Topic   string          `json:"topic"`
	Kind    Kind            `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// NewEnvelope serializes payload and stamps the content-derived ID.
func NewEnvelope(origin peer.ID, topic string, kind Kind, payload interface{}) (*Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize %s payload: %w", kind, err)
	}

	return &Envelope{
		ID:      messageID(origin, topic, data),
		Origin:  origin.String(),
		Topic:   topic,
		Kind:    kind,
		Payload: data,
	}, nil
}

// Validate checks the fields the flood engine relies on for routing
// and deduplication. Payload contents stay opaque here.
func (e *Envelope) Validate() error {
	if e.ID == "" || e.Topic == "" || e.Kind == "" {
		return fmt.Errorf("envelope missing required fields (id=%q topic=%q kind=%q)",
			e.ID, e.Topic, e.Kind)
	}
	return nil
}

// Delivery is an envelope surfaced to the event loop together with the
// directly connected peer it arrived from.
type Delivery struct {
	From     peer.ID
	Envelope *Envelope
}

func messageID(origin peer.ID, topic string, payload []byte) string {
	h, _ := blake2b.New256(nil)
	h.Write([]byte(origin))
	h.Write([]byte(topic))
	h.Write(payload)
	return fmt.Sprintf("%x", h.Sum(nil))
}
