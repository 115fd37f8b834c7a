// Package di provides dependency injection for database connections.
package di

import (
	"fmt"

	"github.com/aristath/autosettle/internal/config"
	"github.com/aristath/autosettle/internal/database"
	"github.com/rs/zerolog"
)

// InitializeDatabases opens config.db and applies its schema
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{}

	// config.db - preferences, connection settings, custom markets
	configDB, err := database.New(database.Config{
		Path:    cfg.ConfigDBPath(),
		Profile: database.ProfileStandard,
		Name:    "config",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize config database: %w", err)
	}
	container.ConfigDB = configDB

	if err := configDB.Migrate(); err != nil {
		configDB.Close()
		return nil, fmt.Errorf("failed to migrate config database: %w", err)
	}

	log.Info().Str("path", configDB.Path()).Msg("Database initialized")

	return container, nil
}
