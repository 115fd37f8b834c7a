package server

import (
	"context"
	"errors"
	"sync"

	"github.com/aristath/autosettle/internal/clients/chain"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog"
)

type healthRPC struct {
	chain.RPC
	mu      sync.Mutex
	healthy bool
}

func (f *healthRPC) GetHealth(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.healthy {
		return "", errors.New("connection refused")
	}
	return rpc.HealthOk, nil
}

func (f *healthRPC) setHealthy(v bool) {
	f.mu.Lock()
	f.healthy = v
	f.mu.Unlock()
}

func newHealthClient(healthy bool) (*chain.Client, *healthRPC) {
	f := &healthRPC{healthy: healthy}
	return chain.NewClientWithRPC(f, "http://rpc.test", "confirmed", zerolog.Nop()), f
}
