package p2p

import (
	"sync"
	"time"
)

// NetworkMetrics tracks flood engine and discovery counters for
// observability. Decode errors and duplicate drops are counted here
// rather than surfaced as errors.
type NetworkMetrics struct {
	mu sync.RWMutex

	MessagesSent      int64
	MessagesReceived  int64
	MessagesRelayed   int64
	DuplicatesDropped int64
	DecodeErrors      int64
	DispatchDrops     int64
	PeersDiscovered   int64
	PeersExpired      int64
	PeerCount         int64
	LastMessageTime   time.Time
}

func (nm *NetworkMetrics) IncrementMessagesSent() {
	nm.mu.Lock()
	defer nm.mu.Unlock()
	nm.MessagesSent++
	nm.LastMessageTime = time.Now()
}

func (nm *NetworkMetrics) IncrementMessagesReceived() {
	nm.mu.Lock()
	defer nm.mu.Unlock()
	nm.MessagesReceived++
	nm.LastMessageTime = time.Now()
}

func (nm *NetworkMetrics) IncrementMessagesRelayed() {
	nm.mu.Lock()
	defer nm.mu.Unlock()
	nm.MessagesRelayed++
}

func (nm *NetworkMetrics) IncrementDuplicatesDropped() {
	nm.mu.Lock()
	defer nm.mu.Unlock()
	nm.DuplicatesDropped++
}

func (nm *NetworkMetrics) IncrementDecodeErrors() {
	nm.mu.Lock()
	defer nm.mu.Unlock()
	nm.DecodeErrors++
}

func (nm *NetworkMetrics) IncrementDispatchDrops() {
	nm.mu.Lock()
	defer nm.mu.Unlock()
	nm.DispatchDrops++
}

func (nm *NetworkMetrics) IncrementPeersDiscovered() {
	nm.mu.Lock()
	defer nm.mu.Unlock()
	nm.PeersDiscovered++
}

func (nm *NetworkMetrics) IncrementPeersExpired() {
	nm.mu.Lock()
	defer nm.mu.Unlock()
	nm.PeersExpired++
}

func (nm *NetworkMetrics) UpdatePeerCount(count int64) {
	nm.mu.Lock()
	defer nm.mu.Unlock()
	nm.PeerCount = count
}

// GetSnapshot returns the counters as a map for status endpoints.
func (nm *NetworkMetrics) GetSnapshot() map[string]interface{} {
	nm.mu.RLock()
	defer nm.mu.RUnlock()
	return map[string]interface{}{
		"messages_sent":      nm.MessagesSent,
		"messages_received":  nm.MessagesReceived,
		"messages_relayed":   nm.MessagesRelayed,
		"duplicates_dropped": nm.DuplicatesDropped,
		"decode_errors":      nm.DecodeErrors,
		"dispatch_drops":     nm.DispatchDrops,
		"peers_discovered":   nm.PeersDiscovered,
		"peers_expired":      nm.PeersExpired,
		"peer_count":         nm.PeerCount,
		"last_message_time":  nm.LastMessageTime,
	}
}
