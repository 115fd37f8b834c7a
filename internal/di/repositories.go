// Package di provides dependency injection for repository implementations.
package di

import (
	"fmt"

	"github.com/aristath/autosettle/internal/modules/markets"
	"github.com/aristath/autosettle/internal/modules/settings"
	"github.com/rs/zerolog"
)

// InitializeRepositories creates the repositories backed by config.db
func InitializeRepositories(container *Container, log zerolog.Logger) error {
	if container == nil || container.ConfigDB == nil {
		return fmt.Errorf("container has no config database")
	}

	container.SettingsRepo = settings.NewRepository(container.ConfigDB.Conn(), log)
	container.CustomMarketRepo = markets.NewCustomRepository(container.ConfigDB.Conn(), log)

	log.Info().Msg("Repositories initialized")
	return nil
}
