// Package autosettle keeps the market cache warm for the connected wallet
// and periodically settles its free open-orders balances.
package autosettle

import (
	"context"

	"github.com/aristath/autosettle/internal/clients/chain"
	"github.com/aristath/autosettle/internal/modules/markets"
	"github.com/aristath/autosettle/internal/modules/settlement"
	"github.com/aristath/autosettle/internal/modules/wallet"
	"github.com/gagliardetto/solana-go"
)

// AutoSettleDisabledOverride is the compiled default of the settlement kill
// switch. While the override is set, settlement never runs regardless of
// the user preference.
const AutoSettleDisabledOverride = true

// Preference reports whether the user enabled auto-settlement
type Preference interface {
	Get() bool
}

// WalletSession reports connection state and the signing adapter
type WalletSession interface {
	Connected() bool
	Adapter() wallet.Adapter
}

// DescriptorProvider lists markets in the order they should be warmed
type DescriptorProvider interface {
	Descriptors() []markets.Descriptor
}

// MarketLoader fetches one market from the network
type MarketLoader interface {
	Load(ctx context.Context, address solana.PublicKey, opts markets.LoadOptions, programID solana.PublicKey) (*markets.Market, error)
}

// TokenAccountProvider returns the wallet's token accounts, or nil when none are loaded
type TokenAccountProvider interface {
	Current() []wallet.TokenAccount
}

// ConnectionProvider supplies the RPC connection and fee configuration
type ConnectionProvider interface {
	Connection() *chain.Client
	FeeConfig() chain.FeeConfig
}

// Settler settles funds across markets in one call
type Settler interface {
	SettleAllFunds(ctx context.Context, req settlement.Request) (*settlement.Report, error)
}

// Skip reasons reported by ticks whose guard did not open
const (
	SkipNotConnected   = "wallet_not_connected"
	SkipNoAdapter      = "no_wallet_adapter"
	SkipNoAutoApprove  = "auto_approve_unavailable"
	SkipDisabled       = "auto_settle_disabled"
	SkipWarmInFlight   = "warm_in_flight"
	SkipOverrideActive = "disabled_override"
)

// walletGuard checks the conditions shared by both routines.
// Returns the adapter when all hold, or the reason they do not.
func walletGuard(session WalletSession, prefs Preference) (wallet.Adapter, string) {
	if !session.Connected() {
		return nil, SkipNotConnected
	}
	adapter := session.Adapter()
	if adapter == nil {
		return nil, SkipNoAdapter
	}
	if !adapter.AutoApprove() {
		return nil, SkipNoAutoApprove
	}
	if !prefs.Get() {
		return nil, SkipDisabled
	}
	return adapter, ""
}
