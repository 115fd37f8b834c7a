package autosettle

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/aristath/autosettle/internal/modules/markets"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// errNoMarket is reported when a loader returns neither a market nor an error
var errNoMarket = errors.New("loader returned no market")

// WarmResult describes one cache warming tick
type WarmResult struct {
	RunID         string        `json:"runId"`
	Skipped       string        `json:"skipped,omitempty"`
	Loaded        int           `json:"loaded"`
	AlreadyCached int           `json:"alreadyCached"`
	Failed        int           `json:"failed"`
	FailedMarkets []string      `json:"failedMarkets,omitempty"`
	Aborted       bool          `json:"aborted"`
	StartedAt     time.Time     `json:"startedAt"`
	Duration      time.Duration `json:"duration"`
}

// Warmer loads every known market into the cache, one at a time, pausing
// after each successful load to bound the request rate.
type Warmer struct {
	cache       *markets.Cache
	descriptors DescriptorProvider
	loader      MarketLoader
	session     WalletSession
	prefs       Preference
	delay       time.Duration
	inFlight    atomic.Bool
	sleep       func(ctx context.Context, d time.Duration) error
	onInFlight  func(bool)
	log         zerolog.Logger
}

// NewWarmer creates a warmer. Every collaborator is required.
func NewWarmer(
	cache *markets.Cache,
	descriptors DescriptorProvider,
	loader MarketLoader,
	session WalletSession,
	prefs Preference,
	delay time.Duration,
	log zerolog.Logger,
) *Warmer {
	switch {
	case cache == nil:
		panic("autosettle: warmer requires a market cache, must not be nil")
	case descriptors == nil:
		panic("autosettle: warmer requires a descriptor provider, must not be nil")
	case loader == nil:
		panic("autosettle: warmer requires a market loader, must not be nil")
	case session == nil:
		panic("autosettle: warmer requires a wallet session, must not be nil")
	case prefs == nil:
		panic("autosettle: warmer requires a preference store, must not be nil")
	}

	return &Warmer{
		cache:       cache,
		descriptors: descriptors,
		loader:      loader,
		session:     session,
		prefs:       prefs,
		delay:       delay,
		sleep:       sleepContext,
		log:         log.With().Str("component", "cache_warmer").Logger(),
	}
}

// OnInFlightChange registers a callback invoked when a pass starts and ends.
// Must be called before the first Tick.
func (w *Warmer) OnInFlightChange(fn func(inFlight bool)) {
	w.onInFlight = fn
}

// InFlight reports whether a warming pass is running
func (w *Warmer) InFlight() bool {
	return w.inFlight.Load()
}

// SkipReason reports why a pass started now would be skipped, or "" if it
// would run
func (w *Warmer) SkipReason() string {
	if _, reason := walletGuard(w.session, w.prefs); reason != "" {
		return reason
	}
	if w.InFlight() {
		return SkipWarmInFlight
	}
	return ""
}

// Tick runs one warming pass if the guard allows it. Guard conditions are
// evaluated once on entry; a pass that started keeps going even if the
// wallet disconnects.
func (w *Warmer) Tick(ctx context.Context) WarmResult {
	result := WarmResult{
		RunID:     uuid.New().String(),
		StartedAt: time.Now(),
	}

	if _, reason := walletGuard(w.session, w.prefs); reason != "" {
		result.Skipped = reason
		return result
	}
	if !w.inFlight.CompareAndSwap(false, true) {
		result.Skipped = SkipWarmInFlight
		return result
	}
	w.notifyInFlight(true)
	defer func() {
		w.inFlight.Store(false)
		w.notifyInFlight(false)
	}()

	for _, d := range w.descriptors.Descriptors() {
		id := d.ID()
		if w.cache.Has(id) {
			result.AlreadyCached++
			continue
		}

		market, err := w.loader.Load(ctx, d.Address, markets.LoadOptions{}, d.ProgramID)
		if err == nil && market == nil {
			err = errNoMarket
		}
		if err != nil {
			result.Failed++
			result.FailedMarkets = append(result.FailedMarkets, id)
			w.log.Warn().
				Err(err).
				Str("run_id", result.RunID).
				Str("market", id).
				Str("name", d.Name).
				Msg("Error fetching market")
			if ctx.Err() != nil {
				result.Aborted = true
				break
			}
			continue
		}

		w.cache.Insert(id, market)
		result.Loaded++

		if err := w.sleep(ctx, w.delay); err != nil {
			result.Aborted = true
			break
		}
	}

	result.Duration = time.Since(result.StartedAt)
	return result
}

func (w *Warmer) notifyInFlight(v bool) {
	if w.onInFlight != nil {
		w.onInFlight(v)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
