package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	logging "github.com/ipfs/go-log/v2"

	"github.com/gwrxuk/DeFiWallet/config"
	"github.com/gwrxuk/DeFiWallet/node"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to JSON config file")
		name       = flag.String("name", "", "Node name (overrides config)")
		listenAddr = flag.String("listen", "", "P2P listen multiaddr (overrides config)")
		apiAddr    = flag.String("api", "", "REST API listen address (overrides config)")
		dataDir    = flag.String("data", "", "Data directory (overrides config)")
		bootstraps = flag.String("bootstrap", "", "Comma-separated bootstrap multiaddrs")
		passphrase = flag.String("passphrase", "", "Wallet encryption passphrase (overrides config)")
		logLevel   = flag.String("log-level", "", "Log level (overrides config)")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *name != "" {
		cfg.NodeName = *name
	}
	if *listenAddr != "" {
		cfg.Network.ListenAddr = *listenAddr
	}
	if *apiAddr != "" {
		cfg.API.RESTAddr = *apiAddr
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
		cfg.Wallet.StoragePath = filepath.Join(*dataDir, "wallets")
	}
	if *bootstraps != "" {
		cfg.Network.BootstrapPeers = strings.Split(*bootstraps, ",")
	}
	if *passphrase != "" {
		cfg.Wallet.Passphrase = *passphrase
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	level, err := logging.LevelFromString(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid log level %q\n", cfg.LogLevel)
		os.Exit(1)
	}
	logging.SetAllLoggers(level)

	n, err := node.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "node init: %v\n", err)
		os.Exit(1)
	}
	if err := n.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "node start: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("%s running, press Ctrl+C to stop\n", cfg.NodeName)
	printStatus(n)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)

	statusTicker := time.NewTicker(30 * time.Second)
	defer statusTicker.Stop()

	for {
		select {
		case <-sigs:
			fmt.Println("\nshutting down")
			if err := n.Stop(); err != nil {
				fmt.Fprintf(os.Stderr, "shutdown: %v\n", err)
				os.Exit(1)
			}
			return

		case err := <-n.Err():
			fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
			n.Stop()
			os.Exit(1)

		case <-statusTicker.C:
			printStatus(n)
		}
	}
}

func printStatus(n *node.Node) {
	status := n.Status()
	fmt.Printf("\n=== %s ===\n", status["name"])
	fmt.Printf("running:   %v\n", status["running"])
	if v, ok := status["uptime"]; ok {
		fmt.Printf("uptime:    %v\n", v)
	}
	if v, ok := status["wallets"]; ok {
		fmt.Printf("wallets:   %v\n", v)
	}
	if v, ok := status["pending_transactions"]; ok {
		fmt.Printf("pending:   %v\n", v)
	}
	if netStats, ok := status["network"].(map[string]interface{}); ok {
		fmt.Printf("peer_id:   %v\n", netStats["peer_id"])
		fmt.Printf("peers:     %v\n", netStats["peer_count"])
		fmt.Printf("sent:      %v  received: %v  relayed: %v\n",
			netStats["messages_sent"], netStats["messages_received"], netStats["messages_relayed"])
	}
}
