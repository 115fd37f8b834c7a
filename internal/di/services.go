// Package di provides dependency injection for service implementations.
package di

import (
	"fmt"

	"github.com/aristath/autosettle/internal/autosettle"
	"github.com/aristath/autosettle/internal/clients/chain"
	"github.com/aristath/autosettle/internal/config"
	"github.com/aristath/autosettle/internal/events"
	"github.com/aristath/autosettle/internal/metrics"
	"github.com/aristath/autosettle/internal/modules/markets"
	"github.com/aristath/autosettle/internal/modules/settings"
	"github.com/aristath/autosettle/internal/modules/settlement"
	"github.com/aristath/autosettle/internal/modules/wallet"
	"github.com/aristath/autosettle/internal/scheduler"
	"github.com/rs/zerolog"
)

// InitializeServices creates every service in dependency order
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil || container.SettingsRepo == nil {
		return fmt.Errorf("repositories must be initialized before services")
	}

	// Events
	container.EventBus = events.NewBus(log)
	container.EventManager = events.NewManager(container.EventBus, log)

	container.Metrics = metrics.New()
	container.Scheduler = scheduler.New(log)

	// Solana connection
	container.ChainClient = chain.NewClient(cfg.RPCURL, cfg.RPCCommit, log)
	container.ConnectionProvider = chain.NewConnectionProvider(container.ChainClient, container.SettingsRepo, log)

	// Preference
	container.PreferenceStore = settings.NewPreferenceStore(container.SettingsRepo, log)

	// Markets
	registry, err := markets.NewRegistry(cfg.MarketsFile, container.CustomMarketRepo, log)
	if err != nil {
		return fmt.Errorf("failed to load market list: %w", err)
	}
	container.MarketRegistry = registry
	container.MarketCache = markets.NewCache()
	container.MarketLoader = markets.NewRPCLoader(container.ChainClient, log)

	// Wallet
	var adapter wallet.Adapter
	if cfg.KeypairPath != "" {
		keypair, err := wallet.LoadKeypairAdapter(cfg.KeypairPath, cfg.AutoApprove)
		if err != nil {
			return fmt.Errorf("failed to load wallet keypair: %w", err)
		}
		adapter = keypair
		log.Info().
			Str("public_key", keypair.PublicKey().String()).
			Bool("auto_approve", cfg.AutoApprove).
			Msg("Wallet keypair loaded")
	} else {
		log.Warn().Msg("No wallet keypair configured, background routines will stay idle")
	}
	container.WalletSession = wallet.NewSession(adapter, container.EventManager, log)
	container.TokenTracker = wallet.NewTokenAccountTracker(container.ChainClient, container.WalletSession, log)

	// Settlement
	container.Settler = settlement.NewSettler(log)

	// Background routines
	container.Warmer = autosettle.NewWarmer(
		container.MarketCache,
		container.MarketRegistry,
		container.MarketLoader,
		container.WalletSession,
		container.PreferenceStore,
		cfg.LoadDelay,
		log,
	)
	container.Runner = autosettle.NewRunner(
		container.MarketCache,
		container.WalletSession,
		container.PreferenceStore,
		container.TokenTracker,
		container.ConnectionProvider,
		container.Settler,
		cfg.DisabledOverride,
		log,
	)
	container.AutoSettle = autosettle.NewService(
		container.Warmer,
		container.Runner,
		container.TokenTracker,
		container.Scheduler,
		container.EventManager,
		container.Metrics,
		log,
	)
	autosettle.RegisterListeners(container.EventBus, container.AutoSettle)

	log.Info().Msg("Services initialized")
	return nil
}
