package settlement

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"sync"
	"testing"

	"github.com/aristath/autosettle/internal/clients/chain"
	"github.com/aristath/autosettle/internal/modules/markets"
	"github.com/aristath/autosettle/internal/modules/wallet"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newKey() solana.PublicKey {
	return solana.NewWallet().PublicKey()
}

type settleRPC struct {
	chain.RPC
	mu           sync.Mutex
	openOrders   map[solana.PublicKey]rpc.GetProgramAccountsResult // keyed by market address
	findErr      map[solana.PublicKey]error
	sendErrAfter int // fail sends once this many succeeded; 0 disables
	rejectKeys   map[solana.PublicKey]bool // fail sends of transactions touching these accounts
	sent         []*solana.Transaction
}

func (f *settleRPC) GetProgramAccountsWithOpts(ctx context.Context, program solana.PublicKey, opts *rpc.GetProgramAccountsOpts) (rpc.GetProgramAccountsResult, error) {
	var market solana.PublicKey
	for _, filter := range opts.Filters {
		if filter.Memcmp != nil && filter.Memcmp.Offset == openOrdersMarketOffset {
			market = solana.PublicKeyFromBytes(filter.Memcmp.Bytes)
		}
	}
	if err := f.findErr[market]; err != nil {
		return nil, err
	}
	return f.openOrders[market], nil
}

func (f *settleRPC) GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error) {
	return &rpc.GetLatestBlockhashResult{Value: &rpc.LatestBlockhashResult{Blockhash: solana.Hash{9}}}, nil
}

func (f *settleRPC) SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErrAfter > 0 && len(f.sent) >= f.sendErrAfter {
		return solana.Signature{}, errors.New("blockhash not found")
	}
	for _, key := range tx.Message.AccountKeys {
		if f.rejectKeys[key] {
			return solana.Signature{}, errors.New("custom program error: 0x3")
		}
	}
	f.sent = append(f.sent, tx)
	return tx.Signatures[0], nil
}

func newSettleClient(f *settleRPC) *chain.Client {
	return chain.NewClientWithRPC(f, "", "confirmed", zerolog.Nop())
}

// testMarket returns a market whose vault signer nonce derives a valid address
func testMarket(t *testing.T) *markets.Market {
	t.Helper()
	m := &markets.Market{
		Address:    newKey(),
		ProgramID:  newKey(),
		BaseMint:   newKey(),
		QuoteMint:  newKey(),
		BaseVault:  newKey(),
		QuoteVault: newKey(),
	}
	for nonce := uint64(0); nonce < 256; nonce++ {
		m.VaultSignerNonce = nonce
		if _, err := m.VaultSigner(); err == nil {
			return m
		}
	}
	t.Fatal("no valid vault signer nonce")
	return nil
}

// heldAccounts returns the owner's associated token accounts for every mint
// the markets trade
func heldAccounts(t *testing.T, owner solana.PublicKey, ms ...*markets.Market) []wallet.TokenAccount {
	t.Helper()
	var out []wallet.TokenAccount
	for _, m := range ms {
		for _, mint := range []solana.PublicKey{m.BaseMint, m.QuoteMint} {
			ata, _, err := solana.FindAssociatedTokenAddress(owner, mint)
			require.NoError(t, err)
			out = append(out, wallet.TokenAccount{Pubkey: ata, Mint: mint, Owner: owner})
		}
	}
	return out
}

func encodeOpenOrders(t *testing.T, raw openOrdersLayout) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, raw))
	return buf.Bytes()
}

func openOrdersAccount(t *testing.T, market, owner solana.PublicKey, baseFree, quoteFree, rebates uint64) *rpc.KeyedAccount {
	t.Helper()
	raw := openOrdersLayout{
		AccountFlags:           markets.AccountFlagInitialized | markets.AccountFlagOpenOrders,
		Market:                 market,
		Owner:                  owner,
		BaseTokenFree:          baseFree,
		BaseTokenTotal:         baseFree,
		QuoteTokenFree:         quoteFree,
		QuoteTokenTotal:        quoteFree,
		ReferrerRebatesAccrued: rebates,
	}
	copy(raw.Head[:], "serum")
	copy(raw.Tail[:], "padding")
	return &rpc.KeyedAccount{
		Pubkey:  newKey(),
		Account: &rpc.Account{Data: rpc.DataBytesOrJSONFromBytes(encodeOpenOrders(t, raw))},
	}
}
