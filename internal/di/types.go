/**
 * Package di provides dependency injection type definitions.
 *
 * This package defines the Container type which holds all application dependencies.
 * The Container is the single source of truth for all service instances and is
 * passed to handlers for access to services.
 */
package di

import (
	"github.com/aristath/autosettle/internal/autosettle"
	"github.com/aristath/autosettle/internal/clients/chain"
	"github.com/aristath/autosettle/internal/database"
	"github.com/aristath/autosettle/internal/events"
	"github.com/aristath/autosettle/internal/metrics"
	"github.com/aristath/autosettle/internal/modules/markets"
	"github.com/aristath/autosettle/internal/modules/settings"
	"github.com/aristath/autosettle/internal/modules/settlement"
	"github.com/aristath/autosettle/internal/modules/wallet"
	"github.com/aristath/autosettle/internal/scheduler"
)

// Container holds all application dependencies
type Container struct {
	// Databases
	ConfigDB *database.DB

	// Repositories
	SettingsRepo     *settings.Repository
	CustomMarketRepo *markets.CustomRepository

	// Infrastructure
	EventBus     *events.Bus
	EventManager *events.Manager
	Metrics      *metrics.Metrics
	Scheduler    *scheduler.Scheduler

	// Solana
	ChainClient        *chain.Client
	ConnectionProvider *chain.ConnectionProvider

	// Domain services
	PreferenceStore *settings.PreferenceStore
	MarketRegistry  *markets.Registry
	MarketCache     *markets.Cache
	MarketLoader    *markets.RPCLoader
	WalletSession   *wallet.Session
	TokenTracker    *wallet.TokenAccountTracker
	Settler         *settlement.Settler

	// Background routines
	Warmer     *autosettle.Warmer
	Runner     *autosettle.Runner
	AutoSettle *autosettle.Service
}

// Close releases the container's resources. Safe on a partially built container.
func (c *Container) Close() {
	if c == nil {
		return
	}
	if c.AutoSettle != nil {
		c.AutoSettle.Close()
	}
	if c.ConfigDB != nil {
		c.ConfigDB.Close()
	}
}
