package markets

import (
	"context"
	"fmt"

	"github.com/aristath/autosettle/internal/clients/chain"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog"
)

// RPCLoader fetches and decodes market accounts over JSON-RPC
type RPCLoader struct {
	client *chain.Client
	log    zerolog.Logger
}

// NewRPCLoader creates a loader bound to client
func NewRPCLoader(client *chain.Client, log zerolog.Logger) *RPCLoader {
	return &RPCLoader{
		client: client,
		log:    log.With().Str("component", "market_loader").Logger(),
	}
}

// Load fetches the market account at address and decodes it, requiring
// that programID owns the account.
func (l *RPCLoader) Load(ctx context.Context, address solana.PublicKey, opts LoadOptions, programID solana.PublicKey) (*Market, error) {
	commitment := opts.Commitment
	if commitment == "" {
		commitment = l.client.Commitment()
	}

	out, err := l.client.RPC().GetAccountInfoWithOpts(ctx, address, &rpc.GetAccountInfoOpts{
		Encoding:   solana.EncodingBase64,
		Commitment: commitment,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch market %s: %w", address, err)
	}
	if out == nil || out.Value == nil {
		return nil, fmt.Errorf("failed to fetch market %s: %w", address, rpc.ErrNotFound)
	}

	market, err := DecodeMarket(address, programID, out.Value.Owner, out.Value.Data.GetBinary())
	if err != nil {
		return nil, fmt.Errorf("failed to decode market %s: %w", address, err)
	}

	l.log.Debug().
		Str("market", address.String()).
		Str("base_mint", market.BaseMint.String()).
		Str("quote_mint", market.QuoteMint.String()).
		Msg("Market loaded")
	return market, nil
}
