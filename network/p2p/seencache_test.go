package p2p

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSeenCacheAddIfNew(t *testing.T) {
	cache := NewSeenCache(time.Minute, 16)

	require.True(t, cache.AddIfNew("msg-1"), "first sighting should be new")
	require.False(t, cache.AddIfNew("msg-1"), "second sighting should be suppressed")
	require.True(t, cache.Seen("msg-1"))
	require.False(t, cache.Seen("msg-2"))
}

func TestSeenCacheExpiry(t *testing.T) {
	cache := NewSeenCache(20*time.Millisecond, 16)

	require.True(t, cache.AddIfNew("msg-1"))
	require.False(t, cache.AddIfNew("msg-1"))

	time.Sleep(30 * time.Millisecond)

	require.False(t, cache.Seen("msg-1"), "entry should expire after TTL")
	require.True(t, cache.AddIfNew("msg-1"), "expired entry counts as unseen again")
}

func TestSeenCacheCapacityEviction(t *testing.T) {
	cache := NewSeenCache(time.Minute, 4)

	for i := 0; i < 4; i++ {
		require.True(t, cache.AddIfNew(fmt.Sprintf("msg-%d", i)))
	}

	// Inserting past capacity evicts the oldest entries first.
	require.True(t, cache.AddIfNew("msg-4"))
	require.False(t, cache.Seen("msg-0"), "oldest entry should be evicted")
	require.True(t, cache.Seen("msg-4"))
	require.LessOrEqual(t, cache.Len(), 4)
}

func TestSeenCacheConcurrentSingleWinner(t *testing.T) {
	cache := NewSeenCache(time.Minute, 128)

	const workers = 32
	var wins int64
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if cache.AddIfNew("contested") {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Equal(t, int64(1), wins, "exactly one goroutine should win the insert")
}
