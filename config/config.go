package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

type Config struct {
	// Node configuration
	NodeName string `json:"node_name"`
	DataDir  string `json:"data_dir"`
	LogLevel string `json:"log_level"`

	// Network configuration
	Network NetworkConfig `json:"network"`

	// Wallet configuration
	Wallet WalletConfig `json:"wallet"`

	// Blockchain RPC configuration
	Blockchain BlockchainConfig `json:"blockchain"`

	// DeFi configuration
	DeFi DeFiConfig `json:"defi"`

	// API configuration
	API APIConfig `json:"api"`
}

type NetworkConfig struct {
	ListenAddr     string   `json:"listen_addr"`
	BootstrapPeers []string `json:"bootstrap_peers"`
	MaxPeers       int      `json:"max_peers"`
	DialTimeout    Duration `json:"dial_timeout"`

	// Discovery cadence; peers silent for ExpiryFactor intervals are expired.
	DiscoveryInterval Duration `json:"discovery_interval"`
	ExpiryFactor      int      `json:"expiry_factor"`

	// Flood engine bounds
	SeenTTL       Duration `json:"seen_ttl"`
	SeenCapacity  int      `json:"seen_capacity"`
	CommandQueue  int      `json:"command_queue"`
	DispatchQueue int      `json:"dispatch_queue"`

	// DropOldest selects the dispatch overflow policy: true evicts the
	// oldest queued event, false rejects the incoming one.
	DropOldest bool `json:"drop_oldest"`
}

type WalletConfig struct {
	StoragePath string `json:"storage_path"`
	Passphrase  string `json:"passphrase"`
}

type BlockchainConfig struct {
	EthereumRPCURL string   `json:"ethereum_rpc_url"`
	SolanaRPCURL   string   `json:"solana_rpc_url"`
	RequestTimeout Duration `json:"request_timeout"`
}

type DeFiConfig struct {
	SupportedProtocols []string `json:"supported_protocols"`
	DefaultSlippage    float64  `json:"default_slippage"`
}

type APIConfig struct {
	RESTAddr   string `json:"rest_addr"`
	EnableCORS bool   `json:"enable_cors"`
}

// Load returns the default configuration, optionally overlaid with
// values from a JSON file. An empty path skips the overlay.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks bounds that the rest of the system assumes.
func (c *Config) Validate() error {
	if c.Network.MaxPeers <= 0 {
		return fmt.Errorf("network.max_peers must be positive, got %d", c.Network.MaxPeers)
	}
	if c.Network.CommandQueue <= 0 {
		return fmt.Errorf("network.command_queue must be positive, got %d", c.Network.CommandQueue)
	}
	if c.Network.DispatchQueue <= 0 {
		return fmt.Errorf("network.dispatch_queue must be positive, got %d", c.Network.DispatchQueue)
	}
	if c.Network.ExpiryFactor < 2 {
		return fmt.Errorf("network.expiry_factor must be at least 2, got %d", c.Network.ExpiryFactor)
	}
	if c.DeFi.DefaultSlippage < 0 || c.DeFi.DefaultSlippage >= 1 {
		return fmt.Errorf("defi.default_slippage must be in [0,1), got %f", c.DeFi.DefaultSlippage)
	}
	return nil
}

func defaultConfig() *Config {
	return &Config{
		NodeName: "defiwallet-node",
		DataDir:  "./data",
		LogLevel: "info",
		Network: NetworkConfig{
			ListenAddr:        "/ip4/0.0.0.0/tcp/9000",
			BootstrapPeers:    []string{},
			MaxPeers:          50,
			DialTimeout:       Duration(10 * time.Second),
			DiscoveryInterval: Duration(5 * time.Second),
			ExpiryFactor:      3,
			SeenTTL:           Duration(2 * time.Minute),
			SeenCapacity:      8192,
			CommandQueue:      100,
			DispatchQueue:     256,
			DropOldest:        false,
		},
		Wallet: WalletConfig{
			StoragePath: "./data/wallets",
			Passphrase:  "",
		},
		Blockchain: BlockchainConfig{
			EthereumRPCURL: "http://localhost:8545",
			SolanaRPCURL:   "http://localhost:8899",
			RequestTimeout: Duration(15 * time.Second),
		},
		DeFi: DeFiConfig{
			SupportedProtocols: []string{"uniswap_v2", "uniswap_v3", "sushiswap", "curve"},
			DefaultSlippage:    0.005,
		},
		API: APIConfig{
			RESTAddr:   ":8080",
			EnableCORS: true,
		},
	}
}
