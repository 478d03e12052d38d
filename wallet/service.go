package wallet

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	logging "github.com/ipfs/go-log/v2"

	"github.com/gwrxuk/DeFiWallet/crypto"
	"github.com/gwrxuk/DeFiWallet/crypto/address"
	"github.com/gwrxuk/DeFiWallet/storage"
)

var log = logging.Logger("wallet")

// ErrWalletNotFound reports a lookup for an address we do not hold.
var ErrWalletNotFound = errors.New("wallet not found")

var walletPrefix = []byte("wallet/")

// Service owns the wallet records. Reads are concurrent; mutations
// (create, balance apply) serialize on the write lock.
type Service struct {
	store *storage.BadgerStore
	key   [32]byte
	mu    sync.RWMutex
}

// NewService opens a wallet service over store. The passphrase derives
// the at-rest encryption key for private key material.
func NewService(store *storage.BadgerStore, passphrase string) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("wallet store cannot be nil")
	}
	return &Service{
		store: store,
		key:   deriveKey(passphrase),
	}, nil
}

// Create generates a new wallet for chain, encrypts its private key
// and persists the record.
func (s *Service) Create(chain ChainType) (*Wallet, error) {
	priv, err := crypto.NewPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate wallet key: %w", err)
	}
	pub := priv.PublicKey().Bytes()

	addr, err := deriveAddress(pub, chain)
	if err != nil {
		return nil, err
	}

	sealed, err := sealKey(priv.Bytes(), &s.key)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt private key: %w", err)
	}

	w := &Wallet{
		Address:             addr,
		PublicKey:           pub,
		EncryptedPrivateKey: sealed,
		ChainType:           chain,
		Balance:             0,
		CreatedAt:           time.Now().Unix(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.put(w); err != nil {
		return nil, err
	}

	log.Infow("created wallet", "address", addr, "chain", chain)
	return w, nil
}

// Get returns the wallet for address, or ErrWalletNotFound.
func (s *Service) Get(addr string) (*Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.get(addr)
}

// List returns every stored wallet.
func (s *Service) List() ([]*Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records, err := s.store.Scan(walletPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to scan wallets: %w", err)
	}

	wallets := make([]*Wallet, 0, len(records))
	for _, data := range records {
		var w Wallet
		if err := cbor.Unmarshal(data, &w); err != nil {
			log.Warnw("skipping corrupt wallet record", "err", err)
			continue
		}
		wallets = append(wallets, &w)
	}
	return wallets, nil
}

// ApplyBalance sets the stored balance for address. Unknown addresses
// are ignored: the mesh announces balances for wallets we may not hold.
func (s *Service) ApplyBalance(addr string, balance float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, err := s.get(addr)
	if errors.Is(err, ErrWalletNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	w.Balance = balance
	return s.put(w)
}

// OnWalletUpdate is the network collaborator entry point. It is called
// from a dispatch worker, never from the event loop itself.
func (s *Service) OnWalletUpdate(addr string, balance float64) {
	if err := s.ApplyBalance(addr, balance); err != nil {
		log.Warnw("failed to apply balance update", "address", addr, "err", err)
		return
	}
	log.Debugw("applied balance update", "address", addr, "balance", balance)
}

// PrivateKey decrypts and returns the signing key for address.
func (s *Service) PrivateKey(addr string) (crypto.PrivateKey, error) {
	w, err := s.Get(addr)
	if err != nil {
		return nil, err
	}

	plain, err := openKey(w.EncryptedPrivateKey, &s.key)
	if err != nil {
		return nil, err
	}
	return crypto.NewPrivateKeyFromBytes(plain)
}

// Count returns the number of stored wallets.
func (s *Service) Count() (int, error) {
	wallets, err := s.List()
	if err != nil {
		return 0, err
	}
	return len(wallets), nil
}

func (s *Service) get(addr string) (*Wallet, error) {
	data, err := s.store.Get(walletKey(addr))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, ErrWalletNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load wallet %s: %w", addr, err)
	}

	var w Wallet
	if err := cbor.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("failed to decode wallet %s: %w", addr, err)
	}
	return &w, nil
}

func (s *Service) put(w *Wallet) error {
	data, err := cbor.Marshal(w)
	if err != nil {
		return fmt.Errorf("failed to encode wallet %s: %w", w.Address, err)
	}
	if err := s.store.Put(walletKey(w.Address), data); err != nil {
		return fmt.Errorf("failed to store wallet %s: %w", w.Address, err)
	}
	return nil
}

func walletKey(addr string) []byte {
	return []byte(string(walletPrefix) + addr)
}

func deriveAddress(pub []byte, chain ChainType) (string, error) {
	switch chain {
	case ChainEthereum:
		return address.Ethereum(pub)
	case ChainSolana:
		return address.Solana(pub)
	case ChainBitcoin:
		return address.Bitcoin(pub)
	}
	return "", fmt.Errorf("unsupported chain type %q", chain)
}
