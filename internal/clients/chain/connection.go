package chain

import (
	"fmt"
	"math"
	"sync"

	"github.com/aristath/autosettle/internal/modules/settings"
	"github.com/rs/zerolog"
)

// FeeConfig holds the compute budget attached to settlement transactions
type FeeConfig struct {
	PriorityFee  uint64 `json:"priorityFee"`  // micro-lamports per compute unit
	ComputeUnits uint32 `json:"computeUnits"` // compute unit limit
}

// IntStore persists integer settings. *settings.Repository satisfies it.
type IntStore interface {
	GetInt(key string, defaultValue int64) (int64, error)
	SetInts(values map[string]int64) error
}

// ConnectionProvider hands out the shared RPC client together with the
// current fee configuration.
type ConnectionProvider struct {
	client *Client
	store  IntStore
	mu     sync.RWMutex
	fees   FeeConfig
	log    zerolog.Logger
}

// NewConnectionProvider loads persisted fee settings, falling back to defaults
func NewConnectionProvider(client *Client, store IntStore, log zerolog.Logger) *ConnectionProvider {
	if client == nil {
		panic("chain: connection provider requires a client, must not be nil")
	}

	p := &ConnectionProvider{
		client: client,
		store:  store,
		fees: FeeConfig{
			PriorityFee:  settings.DefaultPriorityFee,
			ComputeUnits: settings.DefaultComputeUnits,
		},
		log: log.With().Str("component", "connection").Logger(),
	}
	p.load()
	return p
}

func (p *ConnectionProvider) load() {
	if p.store == nil {
		return
	}

	fee, err := p.store.GetInt(settings.KeyPriorityFee, int64(settings.DefaultPriorityFee))
	if err != nil {
		p.log.Warn().Err(err).Msg("Failed to load priority fee, using default")
	} else if fee >= 0 {
		p.fees.PriorityFee = uint64(fee)
	}

	units, err := p.store.GetInt(settings.KeyComputeUnits, int64(settings.DefaultComputeUnits))
	if err != nil {
		p.log.Warn().Err(err).Msg("Failed to load compute units, using default")
	} else if units > 0 && units <= math.MaxUint32 {
		p.fees.ComputeUnits = uint32(units)
	}
}

// Connection returns the shared RPC client
func (p *ConnectionProvider) Connection() *Client {
	return p.client
}

// FeeConfig returns the current fee configuration
func (p *ConnectionProvider) FeeConfig() FeeConfig {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.fees
}

// SetFeeConfig validates, persists and applies a new fee configuration
func (p *ConnectionProvider) SetFeeConfig(fees FeeConfig) error {
	if fees.ComputeUnits == 0 {
		return fmt.Errorf("compute units must be greater than zero")
	}
	if fees.ComputeUnits > MaxComputeUnits {
		return fmt.Errorf("compute units must not exceed %d", MaxComputeUnits)
	}
	if fees.PriorityFee > math.MaxInt64 {
		return fmt.Errorf("priority fee out of range")
	}

	if p.store != nil {
		err := p.store.SetInts(map[string]int64{
			settings.KeyPriorityFee:  int64(fees.PriorityFee),
			settings.KeyComputeUnits: int64(fees.ComputeUnits),
		})
		if err != nil {
			return fmt.Errorf("failed to persist fee config: %w", err)
		}
	}

	p.mu.Lock()
	p.fees = fees
	p.mu.Unlock()

	p.log.Info().
		Uint64("priority_fee", fees.PriorityFee).
		Uint32("compute_units", fees.ComputeUnits).
		Msg("Connection fee config updated")
	return nil
}

// MaxComputeUnits is the per-transaction compute limit enforced by the runtime
const MaxComputeUnits uint32 = 1_400_000
