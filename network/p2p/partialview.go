package p2p

import (
	"sync"

	"github.com/libp2p/go-libp2p/core/peer"
)

// PartialView maps each topic to the bounded set of peers we flood
// messages to. It is mutated only by discovery events and subscription
// announcements; readers (flood sends, status queries) share an RLock.
type PartialView struct {
	mu       sync.RWMutex
	maxPeers int
	topics   map[string]*topicPeers
}

// topicPeers keeps insertion order alongside the set so the oldest
// member can be evicted when the view is full.
type topicPeers struct {
	order []peer.ID
	set   map[peer.ID]struct{}
}

// NewPartialView creates a view bounded to maxPeers per topic.
func NewPartialView(maxPeers int) *PartialView {
	if maxPeers <= 0 {
		maxPeers = 50
	}
	return &PartialView{
		maxPeers: maxPeers,
		topics:   make(map[string]*topicPeers),
	}
}

// Add inserts p into topic's view, evicting the oldest member when the
// bound is reached. Returns false if p was already present.
func (v *PartialView) Add(topic string, p peer.ID) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	tp, ok := v.topics[topic]
	if !ok {
		tp = &topicPeers{set: make(map[peer.ID]struct{})}
		v.topics[topic] = tp
	}

	if _, exists := tp.set[p]; exists {
		return false
	}

	for len(tp.order) >= v.maxPeers {
		oldest := tp.order[0]
		tp.order = tp.order[1:]
		delete(tp.set, oldest)
	}

	tp.order = append(tp.order, p)
	tp.set[p] = struct{}{}
	return true
}

// Remove deletes p from every topic's view.
func (v *PartialView) Remove(p peer.ID) {
	v.mu.Lock()
	defer v.mu.Unlock()

	for _, tp := range v.topics {
		tp.remove(p)
	}
}

// RemoveFromTopic deletes p from a single topic's view.
func (v *PartialView) RemoveFromTopic(topic string, p peer.ID) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if tp, ok := v.topics[topic]; ok {
		tp.remove(p)
	}
}

// Peers returns a copy of the flood targets for topic.
func (v *PartialView) Peers(topic string) []peer.ID {
	v.mu.RLock()
	defer v.mu.RUnlock()

	tp, ok := v.topics[topic]
	if !ok {
		return nil
	}
	out := make([]peer.ID, len(tp.order))
	copy(out, tp.order)
	return out
}

// Contains reports whether p is in topic's view.
func (v *PartialView) Contains(topic string, p peer.ID) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()

	tp, ok := v.topics[topic]
	if !ok {
		return false
	}
	_, exists := tp.set[p]
	return exists
}

// Size returns the number of peers in topic's view.
func (v *PartialView) Size(topic string) int {
	v.mu.RLock()
	defer v.mu.RUnlock()

	tp, ok := v.topics[topic]
	if !ok {
		return 0
	}
	return len(tp.order)
}

func (tp *topicPeers) remove(p peer.ID) {
	if _, exists := tp.set[p]; !exists {
		return
	}
	delete(tp.set, p)
	for i, id := range tp.order {
		if id == p {
			tp.order = append(tp.order[:i], tp.order[i+1:]...)
			break
		}
	}
}
