package p2p

import (
	"fmt"
	"testing"

	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/stretchr/testify/require"
)

func testPeer(i int) peer.ID {
	return peer.ID(fmt.Sprintf("peer-%02d", i))
}

func TestPartialViewAdd(t *testing.T) {
	view := NewPartialView(10)

	require.True(t, view.Add("wallets", testPeer(1)))
	require.False(t, view.Add("wallets", testPeer(1)), "re-adding a member returns false")
	require.True(t, view.Contains("wallets", testPeer(1)))
	require.Equal(t, 1, view.Size("wallets"))

	// Topics are independent.
	require.False(t, view.Contains("transactions", testPeer(1)))
	require.True(t, view.Add("transactions", testPeer(1)))
}

func TestPartialViewEvictsOldestAtCapacity(t *testing.T) {
	view := NewPartialView(3)

	for i := 0; i < 3; i++ {
		require.True(t, view.Add("wallets", testPeer(i)))
	}
	require.Equal(t, 3, view.Size("wallets"))

	require.True(t, view.Add("wallets", testPeer(3)))
	require.Equal(t, 3, view.Size("wallets"), "size stays at the bound")
	require.False(t, view.Contains("wallets", testPeer(0)), "oldest member is evicted")
	require.True(t, view.Contains("wallets", testPeer(3)))

	// Eviction order follows insertion order, not peer identity.
	require.True(t, view.Add("wallets", testPeer(4)))
	require.False(t, view.Contains("wallets", testPeer(1)))
}

func TestPartialViewRemove(t *testing.T) {
	view := NewPartialView(10)
	view.Add("wallets", testPeer(1))
	view.Add("wallets", testPeer(2))
	view.Add("transactions", testPeer(1))

	view.RemoveFromTopic("wallets", testPeer(1))
	require.False(t, view.Contains("wallets", testPeer(1)))
	require.True(t, view.Contains("transactions", testPeer(1)), "removal is per topic")

	view.Remove(testPeer(1))
	require.False(t, view.Contains("transactions", testPeer(1)), "Remove clears every topic")
	require.True(t, view.Contains("wallets", testPeer(2)))
}

func TestPartialViewPeersReturnsCopy(t *testing.T) {
	view := NewPartialView(10)
	view.Add("wallets", testPeer(1))
	view.Add("wallets", testPeer(2))

	peers := view.Peers("wallets")
	require.Equal(t, []peer.ID{testPeer(1), testPeer(2)}, peers)

	peers[0] = testPeer(99)
	require.True(t, view.Contains("wallets", testPeer(1)), "mutating the copy must not touch the view")

	require.Nil(t, view.Peers("unknown"))
}
