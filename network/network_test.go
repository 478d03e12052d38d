package network

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gwrxuk/DeFiWallet/config"
	"github.com/gwrxuk/DeFiWallet/network/p2p"
)

func testNetworkConfig() *config.Config {
	cfg, _ := config.Load("")
	cfg.Network.ListenAddr = "/ip4/127.0.0.1/tcp/0"
	cfg.Network.BootstrapPeers = nil
	cfg.Network.DiscoveryInterval = config.Duration(500 * time.Millisecond)
	return cfg
}

func startTestNetwork(t *testing.T, rec *recordingCollaborators) *Network {
	t.Helper()
	net, err := New(testNetworkConfig(), Collaborators{Wallet: rec, Chain: rec, Peers: rec})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, net.Start(ctx))
	go net.Run(ctx)
	t.Cleanup(func() {
		cancel()
		net.Stop()
	})
	return net
}

// addrOf builds a dialable multiaddr for a running network.
func addrOf(t *testing.T, n *Network) string {
	t.Helper()
	addrs := n.Manager().Addrs()
	require.NotEmpty(t, addrs)
	return fmt.Sprintf("%s/p2p/%s", addrs[0], n.Manager().ID())
}

func TestNetworkEndToEndWalletUpdate(t *testing.T) {
	senderRec := &recordingCollaborators{}
	receiverRec := &recordingCollaborators{}

	sender := startTestNetwork(t, senderRec)
	receiver := startTestNetwork(t, receiverRec)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, sender.Manager().Dial(ctx, addrOf(t, receiver)))

	// The subscribe handshake fills the sender's view.
	require.Eventually(t, func() bool {
		return sender.Manager().View().Contains(TopicWalletUpdates, receiver.Manager().ID())
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, sender.PublishWalletUpdate(ctx, "0xabc", 12.5))

	require.Eventually(t, func() bool {
		receiverRec.mu.Lock()
		defer receiverRec.mu.Unlock()
		return len(receiverRec.wallets) == 1 &&
			receiverRec.wallets[0].Address == "0xabc" &&
			receiverRec.wallets[0].Balance == 12.5
	}, 5*time.Second, 10*time.Millisecond, "wallet collaborator never saw the update")

	// The sender's own collaborator must not fire (no self-delivery).
	require.Equal(t, 0, senderRec.walletCount())
}

func TestNetworkPublishNoRecipients(t *testing.T) {
	net := startTestNetwork(t, &recordingCollaborators{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := net.PublishWalletUpdate(ctx, "0xabc", 1)
	require.ErrorIs(t, err, p2p.ErrNoRecipients)
}

func TestNetworkPublishBusy(t *testing.T) {
	cfg := testNetworkConfig()
	cfg.Network.CommandQueue = 0 // nothing drains the queue in this test

	rec := &recordingCollaborators{}
	net, err := New(cfg, Collaborators{Wallet: rec, Chain: rec, Peers: rec})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err = net.PublishWalletUpdate(ctx, "0xabc", 1)
	require.ErrorIs(t, err, p2p.ErrBusy)
}

func TestNetworkRunReturnsOnTransportClose(t *testing.T) {
	net, err := New(testNetworkConfig(), Collaborators{
		Wallet: &recordingCollaborators{},
		Chain:  &recordingCollaborators{},
		Peers:  &recordingCollaborators{},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, net.Start(ctx))

	done := make(chan error, 1)
	go func() { done <- net.Run(ctx) }()

	require.NoError(t, net.Stop())

	select {
	case err := <-done:
		require.ErrorIs(t, err, ErrTransportClosed)
	case <-time.After(5 * time.Second):
		t.Fatal("event loop did not notice the transport closing")
	}
}
