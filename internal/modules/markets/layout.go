package markets

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Account flag bits shared by every DEX account type
const (
	AccountFlagInitialized uint64 = 1 << 0
	AccountFlagMarket      uint64 = 1 << 1
	AccountFlagOpenOrders  uint64 = 1 << 2
)

// MarketAccountSize is the decoded span of a market account, padding included
const MarketAccountSize = 388

var accountHead = [5]byte{'s', 'e', 'r', 'u', 'm'}

// marketLayout mirrors the v2 market account byte for byte.
// Field names are exported so encoding/binary can populate them.
type marketLayout struct {
	Head                   [5]byte
	AccountFlags           uint64
	OwnAddress             solana.PublicKey
	VaultSignerNonce       uint64
	BaseMint               solana.PublicKey
	QuoteMint              solana.PublicKey
	BaseVault              solana.PublicKey
	BaseDepositsTotal      uint64
	BaseFeesAccrued        uint64
	QuoteVault             solana.PublicKey
	QuoteDepositsTotal     uint64
	QuoteFeesAccrued       uint64
	QuoteDustThreshold     uint64
	RequestQueue           solana.PublicKey
	EventQueue             solana.PublicKey
	Bids                   solana.PublicKey
	Asks                   solana.PublicKey
	BaseLotSize            uint64
	QuoteLotSize           uint64
	FeeRateBps             uint64
	ReferrerRebatesAccrued uint64
	Tail                   [7]byte
}

// DecodeMarket validates and decodes market account data fetched from
// address. owner is the account's owning program and must equal programID.
func DecodeMarket(address, programID, owner solana.PublicKey, data []byte) (*Market, error) {
	if !owner.Equals(programID) {
		return nil, fmt.Errorf("%w: owner %s, expected %s", ErrWrongOwner, owner, programID)
	}
	if len(data) < MarketAccountSize {
		return nil, fmt.Errorf("%w: %d bytes, expected at least %d", ErrInvalidLayout, len(data), MarketAccountSize)
	}

	// Accounts may carry trailing bytes past the decoded span
	var raw marketLayout
	if err := binary.Read(bytes.NewReader(data[:MarketAccountSize]), binary.LittleEndian, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLayout, err)
	}

	if raw.Head != accountHead {
		return nil, fmt.Errorf("%w: bad account head", ErrInvalidLayout)
	}
	want := AccountFlagInitialized | AccountFlagMarket
	if raw.AccountFlags&want != want {
		return nil, fmt.Errorf("%w: account flags %#x", ErrInvalidLayout, raw.AccountFlags)
	}
	if !raw.OwnAddress.Equals(address) {
		return nil, fmt.Errorf("%w: own address %s does not match %s", ErrInvalidLayout, raw.OwnAddress, address)
	}

	return &Market{
		Address:          address,
		ProgramID:        programID,
		BaseMint:         raw.BaseMint,
		QuoteMint:        raw.QuoteMint,
		BaseVault:        raw.BaseVault,
		QuoteVault:       raw.QuoteVault,
		RequestQueue:     raw.RequestQueue,
		EventQueue:       raw.EventQueue,
		Bids:             raw.Bids,
		Asks:             raw.Asks,
		VaultSignerNonce: raw.VaultSignerNonce,
		BaseLotSize:      raw.BaseLotSize,
		QuoteLotSize:     raw.QuoteLotSize,
		FeeRateBps:       raw.FeeRateBps,
	}, nil
}
