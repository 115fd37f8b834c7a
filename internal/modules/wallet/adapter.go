// Package wallet provides the signing wallet, its connection session and
// the token accounts it owns.
package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

var (
	// ErrNoAdapter is returned when connecting without a configured wallet
	ErrNoAdapter = errors.New("no wallet adapter configured")
	// ErrNotConnected is returned by operations that need a connected wallet
	ErrNotConnected = errors.New("wallet not connected")
)

// Adapter signs transactions for one wallet
type Adapter interface {
	PublicKey() solana.PublicKey
	// AutoApprove reports whether the adapter signs without per-transaction confirmation
	AutoApprove() bool
	SignTransaction(ctx context.Context, tx *solana.Transaction) error
}

// KeypairAdapter signs with a local ed25519 keypair
type KeypairAdapter struct {
	key         solana.PrivateKey
	autoApprove bool
}

// NewKeypairAdapter wraps an in-memory private key
func NewKeypairAdapter(key solana.PrivateKey, autoApprove bool) *KeypairAdapter {
	return &KeypairAdapter{key: key, autoApprove: autoApprove}
}

// LoadKeypairAdapter reads a solana-keygen JSON keypair file
func LoadKeypairAdapter(path string, autoApprove bool) (*KeypairAdapter, error) {
	key, err := solana.PrivateKeyFromSolanaKeygenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load keypair %s: %w", path, err)
	}
	return NewKeypairAdapter(key, autoApprove), nil
}

// PublicKey returns the wallet address
func (a *KeypairAdapter) PublicKey() solana.PublicKey {
	return a.key.PublicKey()
}

// AutoApprove reports whether signing happens without confirmation
func (a *KeypairAdapter) AutoApprove() bool {
	return a.autoApprove
}

// SignTransaction adds the wallet's signature. The transaction must not
// require any other signer.
func (a *KeypairAdapter) SignTransaction(ctx context.Context, tx *solana.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	pub := a.key.PublicKey()
	_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(pub) {
			return &a.key
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to sign transaction: %w", err)
	}
	return nil
}
