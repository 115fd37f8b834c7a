package wallet

import (
	"context"
	"sync"

	"github.com/aristath/autosettle/internal/clients/chain"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

type tokenRPC struct {
	chain.RPC
	mu       sync.Mutex
	accounts []*rpc.TokenAccount
	err      error
	calls    int
	lastConf *rpc.GetTokenAccountsConfig
}

func (f *tokenRPC) GetTokenAccountsByOwner(ctx context.Context, owner solana.PublicKey, conf *rpc.GetTokenAccountsConfig, opts *rpc.GetTokenAccountsOpts) (*rpc.GetTokenAccountsResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastConf = conf
	if f.err != nil {
		return nil, f.err
	}
	return &rpc.GetTokenAccountsResult{Value: f.accounts}, nil
}

func tokenAccountData(mint, owner solana.PublicKey, amount uint64) []byte {
	data := make([]byte, 165)
	copy(data[0:32], mint[:])
	copy(data[32:64], owner[:])
	for i := 0; i < 8; i++ {
		data[64+i] = byte(amount >> (8 * i))
	}
	return data
}
