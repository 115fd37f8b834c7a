package autosettle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aristath/autosettle/internal/events"
	"github.com/aristath/autosettle/internal/metrics"
	"github.com/aristath/autosettle/internal/modules/wallet"
	"github.com/aristath/autosettle/internal/scheduler"
	"github.com/rs/zerolog"
)

const moduleName = "autosettle"

// TokenRefresher reloads the wallet's token accounts
type TokenRefresher interface {
	TokenAccountProvider
	Refresh(ctx context.Context) error
}

// Intervals configures the three background jobs
type Intervals struct {
	Warm          time.Duration
	Settle        time.Duration
	TokenAccounts time.Duration
}

// Status is a point-in-time view of the background routines
type Status struct {
	WarmInFlight     bool              `json:"warmInFlight"`
	CacheSize        int               `json:"cacheSize"`
	OverrideActive   bool              `json:"overrideActive"`
	LastWarm         *WarmResult       `json:"lastWarm,omitempty"`
	LastSettle       *SettleResult     `json:"lastSettle,omitempty"`
	TokenAccounts    int               `json:"tokenAccounts"`
	TokenAccountsSet bool              `json:"tokenAccountsLoaded"`
	Jobs             []scheduler.Entry `json:"jobs"`
}

// Service owns the warmer and the settlement runner, runs them on the
// scheduler and publishes their outcomes as events and metrics.
type Service struct {
	warmer       *Warmer
	runner       *Runner
	tokens       TokenRefresher
	sched        *scheduler.Scheduler
	eventManager *events.Manager
	metrics      *metrics.Metrics

	// Ticks run under this context, not the timer's, so a disconnect
	// never cancels a pass. Close cancels it on shutdown.
	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.RWMutex
	lastWarm   *WarmResult
	lastSettle *SettleResult

	log zerolog.Logger
}

// NewService creates the service. tokens, eventManager and m may be nil.
func NewService(
	warmer *Warmer,
	runner *Runner,
	tokens TokenRefresher,
	sched *scheduler.Scheduler,
	eventManager *events.Manager,
	m *metrics.Metrics,
	log zerolog.Logger,
) *Service {
	if warmer == nil || runner == nil || sched == nil {
		panic("autosettle: service requires a warmer, a runner and a scheduler")
	}

	ctx, cancel := context.WithCancel(context.Background())
	warmer.OnInFlightChange(m.SetWarmInFlight)

	return &Service{
		warmer:       warmer,
		runner:       runner,
		tokens:       tokens,
		sched:        sched,
		eventManager: eventManager,
		metrics:      m,
		ctx:          ctx,
		cancel:       cancel,
		log:          log.With().Str("component", "autosettle").Logger(),
	}
}

// Register adds the service's jobs to the scheduler
func (s *Service) Register(iv Intervals) error {
	jobs := []struct {
		every time.Duration
		job   scheduler.Job
	}{
		{iv.Warm, &warmJob{svc: s}},
		{iv.Settle, &settleJob{svc: s}},
	}
	if s.tokens != nil {
		jobs = append(jobs, struct {
			every time.Duration
			job   scheduler.Job
		}{iv.TokenAccounts, &tokenAccountsJob{svc: s}})
	}

	for _, j := range jobs {
		if j.every <= 0 {
			return fmt.Errorf("invalid interval %s for job %s", j.every, j.job.Name())
		}
		if err := s.sched.AddJob("@every "+j.every.String(), j.job); err != nil {
			return err
		}
	}

	if s.runner.Override() {
		s.log.Warn().Msg("Auto-settle disabled override is active, settlement will not run")
	}
	return nil
}

// Close cancels any tick still running
func (s *Service) Close() {
	s.cancel()
}

// RunWarm runs one warming tick and records its outcome
func (s *Service) RunWarm() WarmResult {
	result := s.warmer.Tick(s.ctx)

	s.mu.Lock()
	s.lastWarm = &result
	s.mu.Unlock()

	cacheSize := s.warmer.cache.Len()
	s.metrics.SetCacheSize(cacheSize)

	log := s.log.With().Str("run_id", result.RunID).Logger()
	if result.Skipped != "" {
		log.Debug().Str("reason", result.Skipped).Msg("Cache warm skipped")
		s.metrics.ObserveWarmPass(metrics.OutcomeSkipped, 0, 0, 0)
		return result
	}

	outcome := metrics.OutcomeSuccess
	if result.Failed > 0 || result.Aborted {
		outcome = metrics.OutcomeFailure
	}
	s.metrics.ObserveWarmPass(outcome, result.Loaded, result.Failed, result.Duration)

	log.Info().
		Int("loaded", result.Loaded).
		Int("already_cached", result.AlreadyCached).
		Int("failed", result.Failed).
		Bool("aborted", result.Aborted).
		Int("cache_size", cacheSize).
		Dur("duration", result.Duration).
		Msg("Cache warm completed")

	if s.eventManager != nil {
		s.eventManager.EmitTyped(moduleName, &events.CacheWarmCompletedData{
			RunID:         result.RunID,
			Loaded:        result.Loaded,
			AlreadyCached: result.AlreadyCached,
			Failed:        result.Failed,
			FailedMarkets: result.FailedMarkets,
			Aborted:       result.Aborted,
			DurationMs:    result.Duration.Milliseconds(),
		})
	}
	return result
}

// RunSettle runs one settlement tick and records its outcome. Failures are
// logged and reported, never retried.
func (s *Service) RunSettle() SettleResult {
	result := s.runner.Tick(s.ctx)

	s.mu.Lock()
	s.lastSettle = &result
	s.mu.Unlock()

	log := s.log.With().Str("run_id", result.RunID).Logger()
	if result.Skipped != "" {
		log.Debug().Str("reason", result.Skipped).Msg("Settlement skipped")
		s.metrics.ObserveSettleTick(metrics.OutcomeSkipped, 0, 0)
		return result
	}

	transactions := 0
	if result.Report != nil {
		transactions = result.Report.Transactions
	}

	if result.Err != nil {
		log.Error().
			Err(result.Err).
			Int("markets", result.Markets).
			Int("transactions", transactions).
			Msg("Error auto settling funds")
		s.metrics.ObserveSettleTick(metrics.OutcomeFailure, transactions, result.Duration)
		if s.eventManager != nil {
			s.eventManager.EmitTyped(moduleName, &events.SettlementFailedData{
				RunID: result.RunID,
				Error: result.Error,
			})
		}
		return result
	}

	s.metrics.ObserveSettleTick(metrics.OutcomeSuccess, transactions, result.Duration)

	data := &events.SettlementCompletedData{
		RunID:      result.RunID,
		Markets:    result.Markets,
		DurationMs: result.Duration.Milliseconds(),
	}
	if r := result.Report; r != nil {
		data.OpenOrders = r.OpenOrders
		data.Transactions = r.Transactions
		for _, sig := range r.Signatures {
			data.Signatures = append(data.Signatures, sig.String())
		}
	}

	log.Info().
		Int("markets", result.Markets).
		Int("open_orders", data.OpenOrders).
		Int("transactions", data.Transactions).
		Dur("duration", result.Duration).
		Msg("Settlement completed")

	if s.eventManager != nil {
		s.eventManager.EmitTyped(moduleName, data)
	}
	return result
}

// RefreshTokenAccounts reloads the token account set
func (s *Service) RefreshTokenAccounts() error {
	if s.tokens == nil {
		return nil
	}
	err := s.tokens.Refresh(s.ctx)
	s.metrics.SetTokenAccounts(len(s.tokens.Current()))
	return err
}

// Status returns the current state of the routines
func (s *Service) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := Status{
		WarmInFlight:   s.warmer.InFlight(),
		CacheSize:      s.warmer.cache.Len(),
		OverrideActive: s.runner.Override(),
		LastWarm:       s.lastWarm,
		LastSettle:     s.lastSettle,
		Jobs:           s.sched.Entries(),
	}
	if s.tokens != nil {
		if current := s.tokens.Current(); current != nil {
			status.TokenAccounts = len(current)
			status.TokenAccountsSet = true
		}
	}
	return status
}

type warmJob struct {
	svc *Service
}

func (j *warmJob) Name() string { return "cache_warm" }

func (j *warmJob) Run() error {
	j.svc.RunWarm()
	return nil
}

type settleJob struct {
	svc *Service
}

func (j *settleJob) Name() string { return "auto_settle" }

// Run never returns the settlement error; it is already logged by RunSettle.
func (j *settleJob) Run() error {
	j.svc.RunSettle()
	return nil
}

type tokenAccountsJob struct {
	svc *Service
}

func (j *tokenAccountsJob) Name() string { return "token_accounts" }

func (j *tokenAccountsJob) Run() error {
	err := j.svc.RefreshTokenAccounts()
	if err == nil || errors.Is(err, wallet.ErrNotConnected) {
		return nil
	}
	return err
}

// WarmSkipReason reports why a warm pass started now would be skipped
func (s *Service) WarmSkipReason() string {
	return s.warmer.SkipReason()
}
