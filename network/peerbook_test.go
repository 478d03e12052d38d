package network

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMeshPeerBookRecordsWithoutManager(t *testing.T) {
	book := NewMeshPeerBook()

	book.OnPeerList([]string{"/ip4/10.0.0.1/tcp/9000/p2p/QmA", "/ip4/10.0.0.2/tcp/9000/p2p/QmB"})
	require.Equal(t, 2, book.Known())

	// Repeat announcements do not inflate the count.
	book.OnPeerList([]string{"/ip4/10.0.0.1/tcp/9000/p2p/QmA"})
	require.Equal(t, 2, book.Known())

	book.OnPeerList(nil)
	require.Equal(t, 2, book.Known())
}
