package server

import (
	"context"
	"sync"
	"time"

	"github.com/aristath/autosettle/internal/clients/chain"
	"github.com/aristath/autosettle/internal/events"
	"github.com/rs/zerolog"
)

// StatusMonitor periodically checks RPC health and emits events on changes
type StatusMonitor struct {
	eventManager *events.Manager
	client       *chain.Client
	log          zerolog.Logger

	mu          sync.Mutex
	checked     bool
	lastHealthy bool
}

// NewStatusMonitor creates a new status monitor
func NewStatusMonitor(eventManager *events.Manager, client *chain.Client, log zerolog.Logger) *StatusMonitor {
	return &StatusMonitor{
		eventManager: eventManager,
		client:       client,
		log:          log.With().Str("component", "status_monitor").Logger(),
	}
}

// Start begins periodic status monitoring until ctx is cancelled
func (m *StatusMonitor) Start(ctx context.Context, interval time.Duration) {
	go m.monitor(ctx, interval)
}

func (m *StatusMonitor) monitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Do initial check
	m.checkRPCStatus(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.checkRPCStatus(ctx)
		}
	}
}

// checkRPCStatus emits RPC_STATUS_CHANGED on the first check and whenever health flips
func (m *StatusMonitor) checkRPCStatus(ctx context.Context) {
	if m.client == nil {
		return
	}

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	err := m.client.Health(checkCtx)
	cancel()
	healthy := err == nil

	m.mu.Lock()
	changed := !m.checked || healthy != m.lastHealthy
	m.checked = true
	m.lastHealthy = healthy
	m.mu.Unlock()

	if !changed {
		return
	}

	data := &events.RPCStatusChangedData{
		Healthy:  healthy,
		Endpoint: m.client.Endpoint(),
	}
	if err != nil {
		data.Error = err.Error()
		m.log.Warn().Err(err).Str("endpoint", data.Endpoint).Msg("RPC endpoint unhealthy")
	} else {
		m.log.Info().Str("endpoint", data.Endpoint).Msg("RPC endpoint healthy")
	}

	if m.eventManager != nil {
		m.eventManager.EmitTyped("status_monitor", data)
	}
}
