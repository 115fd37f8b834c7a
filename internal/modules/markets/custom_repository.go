package markets

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// CustomMarket is a user-added market stored in config.db
type CustomMarket struct {
	Address    string    `json:"address"`
	ProgramID  string    `json:"programId"`
	Name       string    `json:"name"`
	BaseLabel  string    `json:"baseLabel,omitempty"`
	QuoteLabel string    `json:"quoteLabel,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// CustomRepository handles the custom_markets table
type CustomRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewCustomRepository creates a new custom market repository
func NewCustomRepository(db *sql.DB, log zerolog.Logger) *CustomRepository {
	return &CustomRepository{
		db:  db,
		log: log.With().Str("repo", "custom_markets").Logger(),
	}
}

// List returns custom markets, oldest first
func (r *CustomRepository) List() ([]CustomMarket, error) {
	rows, err := r.db.Query(`
		SELECT address, program_id, name, base_label, quote_label, created_at
		FROM custom_markets
		ORDER BY created_at ASC, rowid ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query custom markets: %w", err)
	}
	defer rows.Close()

	var result []CustomMarket
	for rows.Next() {
		var m CustomMarket
		var createdAt int64
		if err := rows.Scan(&m.Address, &m.ProgramID, &m.Name, &m.BaseLabel, &m.QuoteLabel, &createdAt); err != nil {
			r.log.Warn().Err(err).Msg("Failed to scan custom market row")
			continue
		}
		m.CreatedAt = time.Unix(createdAt, 0).UTC()
		result = append(result, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating custom markets: %w", err)
	}
	return result, nil
}

// Upsert adds a custom market or replaces the one with the same address
func (r *CustomRepository) Upsert(m CustomMarket) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	_, err := r.db.Exec(`
		INSERT INTO custom_markets (address, program_id, name, base_label, quote_label, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(address) DO UPDATE SET
			program_id = excluded.program_id,
			name = excluded.name,
			base_label = excluded.base_label,
			quote_label = excluded.quote_label
	`, m.Address, m.ProgramID, m.Name, m.BaseLabel, m.QuoteLabel, m.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to save custom market %s: %w", m.Address, err)
	}
	return nil
}

// Delete removes a custom market. Returns false if it did not exist.
func (r *CustomRepository) Delete(address string) (bool, error) {
	res, err := r.db.Exec("DELETE FROM custom_markets WHERE address = ?", address)
	if err != nil {
		return false, fmt.Errorf("failed to delete custom market %s: %w", address, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to delete custom market %s: %w", address, err)
	}
	return n > 0, nil
}
