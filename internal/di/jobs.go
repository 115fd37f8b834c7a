// Package di provides dependency injection for background job registration.
package di

import (
	"fmt"

	"github.com/aristath/autosettle/internal/autosettle"
	"github.com/aristath/autosettle/internal/config"
	"github.com/aristath/autosettle/internal/scheduler"
	"github.com/rs/zerolog"
)

// RegisterJobs adds the background routines to the scheduler. The
// scheduler is started separately by the caller.
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil || container.AutoSettle == nil {
		return fmt.Errorf("services must be initialized before jobs")
	}

	err := container.AutoSettle.Register(autosettle.Intervals{
		Warm:          cfg.WarmInterval,
		Settle:        cfg.SettleInterval,
		TokenAccounts: cfg.TokenAccountsInterval,
	})
	if err != nil {
		return err
	}

	maintenance := scheduler.NewDatabaseMaintenanceJob(container.ConfigDB, log)
	if err := container.Scheduler.AddJob("@hourly", maintenance); err != nil {
		return err
	}

	log.Info().
		Dur("warm_interval", cfg.WarmInterval).
		Dur("settle_interval", cfg.SettleInterval).
		Dur("token_accounts_interval", cfg.TokenAccountsInterval).
		Msg("Background jobs registered")
	return nil
}
