// Package markets provides OpenBook/Serum market descriptors, on-chain
// market decoding and the in-process cache of loaded markets.
package markets

import (
	"errors"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

var (
	// ErrWrongOwner is returned when a market account is not owned by the expected DEX program
	ErrWrongOwner = errors.New("market account not owned by program")
	// ErrInvalidLayout is returned when account data does not decode as an initialized market
	ErrInvalidLayout = errors.New("invalid market account layout")
)

// Descriptor identifies a market and the DEX program that owns it
type Descriptor struct {
	Name       string           `json:"name"`
	Address    solana.PublicKey `json:"address"`
	ProgramID  solana.PublicKey `json:"programId"`
	Deprecated bool             `json:"deprecated"`
	Custom     bool             `json:"custom"`
}

// ID is the cache key for the descriptor's market
func (d Descriptor) ID() string {
	return d.Address.String()
}

// LoadOptions tunes a single market load. The zero value uses the client defaults.
type LoadOptions struct {
	Commitment rpc.CommitmentType
}

// Market is the decoded state of an on-chain market account.
// Values are never mutated after loading.
type Market struct {
	Address          solana.PublicKey `json:"address"`
	ProgramID        solana.PublicKey `json:"programId"`
	BaseMint         solana.PublicKey `json:"baseMint"`
	QuoteMint        solana.PublicKey `json:"quoteMint"`
	BaseVault        solana.PublicKey `json:"baseVault"`
	QuoteVault       solana.PublicKey `json:"quoteVault"`
	RequestQueue     solana.PublicKey `json:"requestQueue"`
	EventQueue       solana.PublicKey `json:"eventQueue"`
	Bids             solana.PublicKey `json:"bids"`
	Asks             solana.PublicKey `json:"asks"`
	VaultSignerNonce uint64           `json:"vaultSignerNonce"`
	BaseLotSize      uint64           `json:"baseLotSize"`
	QuoteLotSize     uint64           `json:"quoteLotSize"`
	FeeRateBps       uint64           `json:"feeRateBps"`
}

// VaultSigner derives the program address that signs for the market's vaults
func (m *Market) VaultSigner() (solana.PublicKey, error) {
	nonce := make([]byte, 8)
	for i := 0; i < 8; i++ {
		nonce[i] = byte(m.VaultSignerNonce >> (8 * i))
	}
	return solana.CreateProgramAddress([][]byte{m.Address[:], nonce}, m.ProgramID)
}
