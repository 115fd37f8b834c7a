package settlement

import (
	"encoding/binary"
	"fmt"

	"github.com/aristath/autosettle/internal/modules/markets"
	"github.com/aristath/autosettle/internal/modules/wallet"
	"github.com/gagliardetto/solana-go"
)

// ComputeBudgetProgramID is the native compute budget program
var ComputeBudgetProgramID = solana.MustPublicKeyFromBase58("ComputeBudget111111111111111111111111111111")

const (
	settleFundsInstruction      uint32 = 5
	setComputeUnitLimitDiscrim  byte   = 2
	setComputeUnitPriceDiscrim  byte   = 3
	dexInstructionVersionPrefix byte   = 0
	createIdempotentDiscrim     byte   = 1
)

// SetComputeUnitLimit builds a compute budget instruction capping compute units
func SetComputeUnitLimit(units uint32) solana.Instruction {
	data := make([]byte, 5)
	data[0] = setComputeUnitLimitDiscrim
	binary.LittleEndian.PutUint32(data[1:], units)
	return solana.NewInstruction(ComputeBudgetProgramID, solana.AccountMetaSlice{}, data)
}

// SetComputeUnitPrice builds a compute budget instruction setting the
// priority fee in micro-lamports per compute unit
func SetComputeUnitPrice(microLamports uint64) solana.Instruction {
	data := make([]byte, 9)
	data[0] = setComputeUnitPriceDiscrim
	binary.LittleEndian.PutUint64(data[1:], microLamports)
	return solana.NewInstruction(ComputeBudgetProgramID, solana.AccountMetaSlice{}, data)
}

// SettleFunds builds the DEX instruction moving free balances from oo to
// the given base and quote token accounts
func SettleFunds(market *markets.Market, oo *OpenOrders, owner, baseWallet, quoteWallet solana.PublicKey) (solana.Instruction, error) {
	vaultSigner, err := market.VaultSigner()
	if err != nil {
		return nil, fmt.Errorf("failed to derive vault signer for market %s: %w", market.Address, err)
	}

	data := make([]byte, 5)
	data[0] = dexInstructionVersionPrefix
	binary.LittleEndian.PutUint32(data[1:], settleFundsInstruction)

	accounts := solana.AccountMetaSlice{
		solana.Meta(market.Address).WRITE(),
		solana.Meta(oo.Address).WRITE(),
		solana.Meta(owner).SIGNER(),
		solana.Meta(market.BaseVault).WRITE(),
		solana.Meta(market.QuoteVault).WRITE(),
		solana.Meta(baseWallet).WRITE(),
		solana.Meta(quoteWallet).WRITE(),
		solana.Meta(vaultSigner),
		solana.Meta(solana.TokenProgramID),
	}
	return solana.NewInstruction(market.ProgramID, accounts, data), nil
}

// DestinationAccount picks where settled funds of mint go: the associated
// token account if the wallet holds it, else any held account of that mint,
// else the associated address. held reports whether the returned account
// is known to exist.
func DestinationAccount(accounts []wallet.TokenAccount, owner, mint solana.PublicKey) (dest solana.PublicKey, held bool, err error) {
	ata, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return solana.PublicKey{}, false, fmt.Errorf("failed to derive associated token account for mint %s: %w", mint, err)
	}

	var fallback *solana.PublicKey
	for i := range accounts {
		if !accounts[i].Mint.Equals(mint) {
			continue
		}
		if accounts[i].Pubkey.Equals(ata) {
			return ata, true, nil
		}
		if fallback == nil {
			fallback = &accounts[i].Pubkey
		}
	}
	if fallback != nil {
		return *fallback, true, nil
	}
	return ata, false, nil
}

// CreateAssociatedTokenAccountIdempotent builds an instruction creating the
// associated token account of owner for mint, paid by payer. It succeeds
// without changes when the account already exists.
func CreateAssociatedTokenAccountIdempotent(payer, ata, owner, mint solana.PublicKey) solana.Instruction {
	accounts := solana.AccountMetaSlice{
		solana.Meta(payer).WRITE().SIGNER(),
		solana.Meta(ata).WRITE(),
		solana.Meta(owner),
		solana.Meta(mint),
		solana.Meta(solana.SystemProgramID),
		solana.Meta(solana.TokenProgramID),
	}
	return solana.NewInstruction(solana.SPLAssociatedTokenAccountProgramID, accounts, []byte{createIdempotentDiscrim})
}
