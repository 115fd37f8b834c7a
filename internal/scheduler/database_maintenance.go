package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/autosettle/internal/database"
	"github.com/rs/zerolog"
)

// walFrameWarnThreshold is the WAL size, in frames, above which a warning is logged
const walFrameWarnThreshold = 1000

// DatabaseMaintenanceJob pings the config database and checkpoints its WAL
type DatabaseMaintenanceJob struct {
	log     zerolog.Logger
	db      *database.DB
	timeout time.Duration
}

// NewDatabaseMaintenanceJob creates a new DatabaseMaintenanceJob
func NewDatabaseMaintenanceJob(db *database.DB, log zerolog.Logger) *DatabaseMaintenanceJob {
	return &DatabaseMaintenanceJob{
		log:     log.With().Str("job", "database_maintenance").Logger(),
		db:      db,
		timeout: 10 * time.Second,
	}
}

// Name returns the job name
func (j *DatabaseMaintenanceJob) Name() string {
	return "database_maintenance"
}

// Run executes the maintenance pass
func (j *DatabaseMaintenanceJob) Run() error {
	if j.db == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	if err := j.db.QuickCheck(ctx); err != nil {
		return fmt.Errorf("%s database unreachable: %w", j.db.Name(), err)
	}

	// PRAGMA wal_checkpoint returns: busy, log, checkpointed
	var busy, frames, checkpointed int
	err := j.db.Conn().QueryRowContext(ctx, "PRAGMA wal_checkpoint(PASSIVE)").Scan(&busy, &frames, &checkpointed)
	if err != nil {
		return fmt.Errorf("failed to checkpoint %s database: %w", j.db.Name(), err)
	}

	if frames > walFrameWarnThreshold {
		j.log.Warn().
			Str("database", j.db.Name()).
			Int("wal_frames", frames).
			Int("checkpointed", checkpointed).
			Msg("WAL file is large, checkpoint may be needed")
		return nil
	}

	j.log.Debug().
		Str("database", j.db.Name()).
		Int("wal_frames", frames).
		Int("checkpointed", checkpointed).
		Msg("Database maintenance completed")
	return nil
}
