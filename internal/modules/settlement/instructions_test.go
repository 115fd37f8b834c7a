package settlement

import (
	"encoding/binary"
	"testing"

	"github.com/aristath/autosettle/internal/modules/wallet"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeBudgetInstructions(t *testing.T) {
	limit := SetComputeUnitLimit(200_000)
	assert.Equal(t, ComputeBudgetProgramID, limit.ProgramID())
	data, err := limit.Data()
	require.NoError(t, err)
	require.Len(t, data, 5)
	assert.Equal(t, byte(2), data[0])
	assert.Equal(t, uint32(200_000), binary.LittleEndian.Uint32(data[1:]))

	price := SetComputeUnitPrice(12_345)
	data, err = price.Data()
	require.NoError(t, err)
	require.Len(t, data, 9)
	assert.Equal(t, byte(3), data[0])
	assert.Equal(t, uint64(12_345), binary.LittleEndian.Uint64(data[1:]))
}

func TestSettleFunds(t *testing.T) {
	m := testMarket(t)
	oo := &OpenOrders{Address: newKey(), Market: m.Address}
	owner, base, quote := newKey(), newKey(), newKey()

	ix, err := SettleFunds(m, oo, owner, base, quote)
	require.NoError(t, err)
	assert.Equal(t, m.ProgramID, ix.ProgramID())

	data, err := ix.Data()
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 5, 0, 0, 0}, data)

	vaultSigner, err := m.VaultSigner()
	require.NoError(t, err)

	accounts := ix.Accounts()
	require.Len(t, accounts, 9)
	expected := []struct {
		key      solana.PublicKey
		writable bool
		signer   bool
	}{
		{m.Address, true, false},
		{oo.Address, true, false},
		{owner, false, true},
		{m.BaseVault, true, false},
		{m.QuoteVault, true, false},
		{base, true, false},
		{quote, true, false},
		{vaultSigner, false, false},
		{solana.TokenProgramID, false, false},
	}
	for i, e := range expected {
		assert.Equal(t, e.key, accounts[i].PublicKey, "account %d", i)
		assert.Equal(t, e.writable, accounts[i].IsWritable, "account %d writable", i)
		assert.Equal(t, e.signer, accounts[i].IsSigner, "account %d signer", i)
	}
}

func TestDestinationAccount(t *testing.T) {
	owner, mint := newKey(), newKey()
	ata, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	require.NoError(t, err)
	other := newKey()
	unrelated := newKey()

	tests := []struct {
		name     string
		accounts []wallet.TokenAccount
		want     solana.PublicKey
		held     bool
	}{
		{"no accounts derives ata", nil, ata, false},
		{"only other mint derives ata", []wallet.TokenAccount{{Pubkey: unrelated, Mint: newKey()}}, ata, false},
		{"non-ata account of mint", []wallet.TokenAccount{{Pubkey: other, Mint: mint}}, other, true},
		{"ata preferred", []wallet.TokenAccount{{Pubkey: other, Mint: mint}, {Pubkey: ata, Mint: mint}}, ata, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, held, err := DestinationAccount(tt.accounts, owner, mint)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.held, held)
		})
	}
}

func TestCreateAssociatedTokenAccountIdempotent(t *testing.T) {
	payer, ata, mint := newKey(), newKey(), newKey()

	ix := CreateAssociatedTokenAccountIdempotent(payer, ata, payer, mint)
	assert.Equal(t, solana.SPLAssociatedTokenAccountProgramID, ix.ProgramID())

	data, err := ix.Data()
	require.NoError(t, err)
	assert.Equal(t, []byte{1}, data)

	accounts := ix.Accounts()
	require.Len(t, accounts, 6)
	assert.Equal(t, payer, accounts[0].PublicKey)
	assert.True(t, accounts[0].IsSigner)
	assert.True(t, accounts[0].IsWritable)
	assert.Equal(t, ata, accounts[1].PublicKey)
	assert.True(t, accounts[1].IsWritable)
	assert.Equal(t, mint, accounts[3].PublicKey)
	assert.Equal(t, solana.SystemProgramID, accounts[4].PublicKey)
	assert.Equal(t, solana.TokenProgramID, accounts[5].PublicKey)
}
