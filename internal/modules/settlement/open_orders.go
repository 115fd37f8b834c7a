// Package settlement settles free balances held in a wallet's DEX
// open-orders accounts back to its token accounts.
package settlement

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/aristath/autosettle/internal/clients/chain"
	"github.com/aristath/autosettle/internal/modules/markets"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// OpenOrdersAccountSize is the length of an open-orders account, padding included
const OpenOrdersAccountSize = 3228

// Offsets of the market and owner fields, used as memcmp filters
const (
	openOrdersMarketOffset = 13
	openOrdersOwnerOffset  = 45
)

// ErrInvalidOpenOrders is returned for account data that is not an initialized open-orders account
var ErrInvalidOpenOrders = errors.New("invalid open orders account")

type openOrdersLayout struct {
	Head                   [5]byte
	AccountFlags           uint64
	Market                 solana.PublicKey
	Owner                  solana.PublicKey
	BaseTokenFree          uint64
	BaseTokenTotal         uint64
	QuoteTokenFree         uint64
	QuoteTokenTotal        uint64
	FreeSlotBits           [16]byte
	IsBidBits              [16]byte
	Orders                 [128][16]byte
	ClientIDs              [128]uint64
	ReferrerRebatesAccrued uint64
	Tail                   [7]byte
}

// OpenOrders is the decoded balance state of an open-orders account
type OpenOrders struct {
	Address                solana.PublicKey `json:"address"`
	Market                 solana.PublicKey `json:"market"`
	Owner                  solana.PublicKey `json:"owner"`
	BaseTokenFree          uint64           `json:"baseTokenFree"`
	BaseTokenTotal         uint64           `json:"baseTokenTotal"`
	QuoteTokenFree         uint64           `json:"quoteTokenFree"`
	QuoteTokenTotal        uint64           `json:"quoteTokenTotal"`
	ReferrerRebatesAccrued uint64           `json:"referrerRebatesAccrued"`
}

// Settleable reports whether settling would move any funds
func (o *OpenOrders) Settleable() bool {
	return o.BaseTokenFree > 0 || o.QuoteTokenFree > 0 || o.ReferrerRebatesAccrued > 0
}

// DecodeOpenOrders decodes open-orders account data stored at address
func DecodeOpenOrders(address solana.PublicKey, data []byte) (*OpenOrders, error) {
	if len(data) != OpenOrdersAccountSize {
		return nil, fmt.Errorf("%w: %d bytes, expected %d", ErrInvalidOpenOrders, len(data), OpenOrdersAccountSize)
	}

	var raw openOrdersLayout
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOpenOrders, err)
	}

	if string(raw.Head[:]) != "serum" {
		return nil, fmt.Errorf("%w: bad account head", ErrInvalidOpenOrders)
	}
	want := markets.AccountFlagInitialized | markets.AccountFlagOpenOrders
	if raw.AccountFlags&want != want {
		return nil, fmt.Errorf("%w: account flags %#x", ErrInvalidOpenOrders, raw.AccountFlags)
	}

	return &OpenOrders{
		Address:                address,
		Market:                 raw.Market,
		Owner:                  raw.Owner,
		BaseTokenFree:          raw.BaseTokenFree,
		BaseTokenTotal:         raw.BaseTokenTotal,
		QuoteTokenFree:         raw.QuoteTokenFree,
		QuoteTokenTotal:        raw.QuoteTokenTotal,
		ReferrerRebatesAccrued: raw.ReferrerRebatesAccrued,
	}, nil
}

// FindOpenOrders lists the owner's open-orders accounts for market
func FindOpenOrders(ctx context.Context, client *chain.Client, market *markets.Market, owner solana.PublicKey) ([]*OpenOrders, error) {
	out, err := client.RPC().GetProgramAccountsWithOpts(ctx, market.ProgramID, &rpc.GetProgramAccountsOpts{
		Encoding:   solana.EncodingBase64,
		Commitment: client.Commitment(),
		Filters: []rpc.RPCFilter{
			{Memcmp: &rpc.RPCFilterMemcmp{Offset: openOrdersMarketOffset, Bytes: solana.Base58(market.Address.Bytes())}},
			{Memcmp: &rpc.RPCFilterMemcmp{Offset: openOrdersOwnerOffset, Bytes: solana.Base58(owner.Bytes())}},
			{DataSize: OpenOrdersAccountSize},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find open orders for market %s: %w", market.Address, err)
	}

	result := make([]*OpenOrders, 0, len(out))
	for _, keyed := range out {
		if keyed == nil || keyed.Account == nil || keyed.Account.Data == nil {
			continue
		}
		oo, err := DecodeOpenOrders(keyed.Pubkey, keyed.Account.Data.GetBinary())
		if err != nil {
			return nil, fmt.Errorf("open orders %s: %w", keyed.Pubkey, err)
		}
		// Filters already match, but a misbehaving node should not make us sign for someone else
		if !oo.Market.Equals(market.Address) || !oo.Owner.Equals(owner) {
			continue
		}
		result = append(result, oo)
	}
	return result, nil
}
