package wallet

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/aristath/autosettle/internal/clients/chain"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog"
)

// tokenAccountPrefix covers mint, owner and amount of an SPL token account
const tokenAccountPrefix = 72

// TokenAccount is an SPL token account owned by the wallet
type TokenAccount struct {
	Pubkey solana.PublicKey `json:"pubkey"`
	Mint   solana.PublicKey `json:"mint"`
	Owner  solana.PublicKey `json:"owner"`
	Amount uint64           `json:"amount"`
}

// DecodeTokenAccount reads the mint, owner and amount from SPL token account data
func DecodeTokenAccount(pubkey solana.PublicKey, data []byte) (TokenAccount, error) {
	if len(data) < tokenAccountPrefix {
		return TokenAccount{}, fmt.Errorf("token account %s: data too short (%d bytes)", pubkey, len(data))
	}
	return TokenAccount{
		Pubkey: pubkey,
		Mint:   solana.PublicKeyFromBytes(data[0:32]),
		Owner:  solana.PublicKeyFromBytes(data[32:64]),
		Amount: binary.LittleEndian.Uint64(data[64:72]),
	}, nil
}

// TokenAccountTracker keeps the connected wallet's token accounts fresh
type TokenAccountTracker struct {
	client    *chain.Client
	session   *Session
	mu        sync.RWMutex
	accounts  []TokenAccount
	updatedAt time.Time
	log       zerolog.Logger
}

// NewTokenAccountTracker creates a tracker with no accounts loaded
func NewTokenAccountTracker(client *chain.Client, session *Session, log zerolog.Logger) *TokenAccountTracker {
	return &TokenAccountTracker{
		client:  client,
		session: session,
		log:     log.With().Str("component", "token_accounts").Logger(),
	}
}

// Current returns the last loaded token accounts, or nil before the first load
func (t *TokenAccountTracker) Current() []TokenAccount {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.accounts == nil {
		return nil
	}
	out := make([]TokenAccount, len(t.accounts))
	copy(out, t.accounts)
	return out
}

// UpdatedAt returns when the accounts were last loaded
func (t *TokenAccountTracker) UpdatedAt() time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.updatedAt
}

// Refresh reloads token accounts for the connected wallet. When the wallet
// is not connected the set is cleared and ErrNotConnected returned.
func (t *TokenAccountTracker) Refresh(ctx context.Context) error {
	adapter := t.session.Adapter()
	if !t.session.Connected() || adapter == nil {
		t.mu.Lock()
		t.accounts = nil
		t.mu.Unlock()
		return ErrNotConnected
	}

	owner := adapter.PublicKey()
	programID := solana.TokenProgramID
	out, err := t.client.RPC().GetTokenAccountsByOwner(ctx, owner,
		&rpc.GetTokenAccountsConfig{ProgramId: &programID},
		&rpc.GetTokenAccountsOpts{
			Encoding:   solana.EncodingBase64,
			Commitment: t.client.Commitment(),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to get token accounts for %s: %w", owner, err)
	}

	accounts := make([]TokenAccount, 0)
	if out != nil {
		for _, keyed := range out.Value {
			if keyed == nil || keyed.Account.Data == nil {
				continue
			}
			acc, err := DecodeTokenAccount(keyed.Pubkey, keyed.Account.Data.GetBinary())
			if err != nil {
				t.log.Warn().Err(err).Msg("Skipping undecodable token account")
				continue
			}
			accounts = append(accounts, acc)
		}
	}

	t.mu.Lock()
	t.accounts = accounts
	t.updatedAt = time.Now()
	t.mu.Unlock()

	t.log.Debug().Int("count", len(accounts)).Str("owner", owner.String()).Msg("Token accounts refreshed")
	return nil
}
