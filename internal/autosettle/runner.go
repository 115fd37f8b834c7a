package autosettle

import (
	"context"
	"errors"
	"time"

	"github.com/aristath/autosettle/internal/modules/markets"
	"github.com/aristath/autosettle/internal/modules/settlement"
	"github.com/aristath/autosettle/internal/modules/wallet"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SettleResult describes one settlement tick
type SettleResult struct {
	RunID     string             `json:"runId"`
	Skipped   string             `json:"skipped,omitempty"`
	Markets   int                `json:"markets"`
	Report    *settlement.Report `json:"report,omitempty"`
	Err       error              `json:"-"`
	Error     string             `json:"error,omitempty"`
	StartedAt time.Time          `json:"startedAt"`
	Duration  time.Duration      `json:"duration"`
}

// Runner settles free funds across every cached market for the connected wallet
type Runner struct {
	cache    *markets.Cache
	session  WalletSession
	prefs    Preference
	tokens   TokenAccountProvider
	conn     ConnectionProvider
	settler  Settler
	override bool
	log      zerolog.Logger
}

// NewRunner creates a settlement runner. tokens may be nil, in which case
// settlement runs with an empty token account set. override is the kill switch.
func NewRunner(
	cache *markets.Cache,
	session WalletSession,
	prefs Preference,
	tokens TokenAccountProvider,
	conn ConnectionProvider,
	settler Settler,
	override bool,
	log zerolog.Logger,
) *Runner {
	switch {
	case cache == nil:
		panic("autosettle: runner requires a market cache, must not be nil")
	case session == nil:
		panic("autosettle: runner requires a wallet session, must not be nil")
	case prefs == nil:
		panic("autosettle: runner requires a preference store, must not be nil")
	case conn == nil:
		panic("autosettle: runner requires a connection provider, must not be nil")
	case settler == nil:
		panic("autosettle: runner requires a settler, must not be nil")
	}

	return &Runner{
		cache:    cache,
		session:  session,
		prefs:    prefs,
		tokens:   tokens,
		conn:     conn,
		settler:  settler,
		override: override,
		log:      log.With().Str("component", "settlement_runner").Logger(),
	}
}

// Override reports whether the kill switch is set
func (r *Runner) Override() bool {
	return r.override
}

// Tick runs one settlement attempt if the guard allows it. A failed attempt
// is reported in the result and not retried.
func (r *Runner) Tick(ctx context.Context) SettleResult {
	result := SettleResult{
		RunID:     uuid.New().String(),
		StartedAt: time.Now(),
	}

	if r.override {
		result.Skipped = SkipOverrideActive
		return result
	}
	adapter, reason := walletGuard(r.session, r.prefs)
	if reason != "" {
		result.Skipped = reason
		return result
	}

	var accounts []wallet.TokenAccount
	if r.tokens != nil {
		accounts = r.tokens.Current()
	}
	if accounts == nil {
		accounts = []wallet.TokenAccount{}
	}

	snapshot := r.cache.Snapshot()
	fees := r.conn.FeeConfig()
	result.Markets = len(snapshot)

	report, err := r.settler.SettleAllFunds(ctx, settlement.Request{
		Connection:    r.conn.Connection(),
		Wallet:        adapter,
		TokenAccounts: accounts,
		Markets:       snapshot,
		PriorityFee:   fees.PriorityFee,
		ComputeUnits:  fees.ComputeUnits,
	})
	result.Report = report
	result.Duration = time.Since(result.StartedAt)
	if err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			r.log.Debug().Str("run_id", result.RunID).Msg("Settlement interrupted by shutdown")
		}
		result.Err = err
		result.Error = err.Error()
	}
	return result
}
