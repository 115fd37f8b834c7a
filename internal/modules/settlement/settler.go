package settlement

import (
	"context"
	"errors"
	"fmt"

	"github.com/aristath/autosettle/internal/clients/chain"
	"github.com/aristath/autosettle/internal/modules/markets"
	"github.com/aristath/autosettle/internal/modules/wallet"
	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"
)

// SettleInstructionsPerTransaction bounds transaction size
const SettleInstructionsPerTransaction = 3

// Request is everything one settlement pass needs
type Request struct {
	Connection    *chain.Client
	Wallet        wallet.Adapter
	TokenAccounts []wallet.TokenAccount
	Markets       []*markets.Market
	PriorityFee   uint64
	ComputeUnits  uint32
}

// Report summarises a settlement pass
type Report struct {
	Markets      int                `json:"markets"`
	OpenOrders   int                `json:"openOrders"`
	Transactions int                `json:"transactions"`
	Signatures   []solana.Signature `json:"signatures"`
}

// Settler settles free open-orders balances across markets
type Settler struct {
	log zerolog.Logger
}

// NewSettler creates a settler
func NewSettler(log zerolog.Logger) *Settler {
	return &Settler{
		log: log.With().Str("component", "settler").Logger(),
	}
}

type pendingSettle struct {
	market *markets.Market
	oo     *OpenOrders
}

// SettleAllFunds finds the wallet's settleable open-orders accounts in
// every market and settles them in batched, signed transactions. Payout
// token accounts the wallet does not hold are created first.
// Failures in individual markets or batches do not stop the rest; they are
// joined into the returned error alongside a partial report.
func (s *Settler) SettleAllFunds(ctx context.Context, req Request) (*Report, error) {
	if req.Connection == nil {
		return nil, errors.New("settlement requires a connection")
	}
	if req.Wallet == nil {
		return nil, wallet.ErrNoAdapter
	}

	owner := req.Wallet.PublicKey()
	report := &Report{Markets: len(req.Markets)}
	var errs []error

	var pending []pendingSettle
	for _, market := range req.Markets {
		if market == nil {
			continue
		}
		accounts, err := FindOpenOrders(ctx, req.Connection, market, owner)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, oo := range accounts {
			if oo.Settleable() {
				pending = append(pending, pendingSettle{market: market, oo: oo})
			}
		}
	}
	report.OpenOrders = len(pending)

	if len(pending) == 0 {
		return report, errors.Join(errs...)
	}

	var shared, isolated []settleGroup
	for _, p := range pending {
		group, err := s.buildGroup(req, owner, p)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		// Groups that create payout accounts always travel alone
		if group.creates > 0 {
			isolated = append(isolated, group)
		} else {
			shared = append(shared, group)
		}
	}

	for start := 0; start < len(shared); start += SettleInstructionsPerTransaction {
		end := start + SettleInstructionsPerTransaction
		if end > len(shared) {
			end = len(shared)
		}
		errs = append(errs, s.sendGroups(ctx, req, owner, shared[start:end], report)...)
	}
	for _, group := range isolated {
		errs = append(errs, s.sendGroups(ctx, req, owner, []settleGroup{group}, report)...)
	}

	s.log.Debug().
		Int("markets", report.Markets).
		Int("open_orders", report.OpenOrders).
		Int("transactions", report.Transactions).
		Int("errors", len(errs)).
		Msg("Settlement pass finished")

	return report, errors.Join(errs...)
}

// settleGroup is the instructions settling one open-orders account,
// preceded by any payout account creations it needs
type settleGroup struct {
	market  solana.PublicKey
	ixs     []solana.Instruction
	creates int
}

func (s *Settler) buildGroup(req Request, owner solana.PublicKey, p pendingSettle) (settleGroup, error) {
	group := settleGroup{market: p.market.Address}

	destination := func(mint solana.PublicKey) (solana.PublicKey, error) {
		dest, held, err := DestinationAccount(req.TokenAccounts, owner, mint)
		if err != nil {
			return solana.PublicKey{}, err
		}
		if !held {
			group.ixs = append(group.ixs, CreateAssociatedTokenAccountIdempotent(owner, dest, owner, mint))
			group.creates++
		}
		return dest, nil
	}

	baseWallet, err := destination(p.market.BaseMint)
	if err != nil {
		return settleGroup{}, err
	}
	quoteWallet, err := destination(p.market.QuoteMint)
	if err != nil {
		return settleGroup{}, err
	}

	ix, err := SettleFunds(p.market, p.oo, owner, baseWallet, quoteWallet)
	if err != nil {
		return settleGroup{}, err
	}
	group.ixs = append(group.ixs, ix)
	return group, nil
}

// sendGroups sends groups in one transaction. When a shared transaction
// fails, each group is retried alone so the others still settle.
func (s *Settler) sendGroups(ctx context.Context, req Request, owner solana.PublicKey, groups []settleGroup, report *Report) []error {
	var ixs []solana.Instruction
	for _, g := range groups {
		ixs = append(ixs, g.ixs...)
	}

	sig, err := s.sendBatch(ctx, req, owner, ixs)
	if err == nil {
		report.Transactions++
		report.Signatures = append(report.Signatures, sig)
		return nil
	}
	if len(groups) == 1 {
		return []error{fmt.Errorf("failed to settle market %s: %w", groups[0].market, err)}
	}

	s.log.Warn().
		Err(err).
		Int("markets", len(groups)).
		Msg("Settle batch failed, retrying markets individually")

	var errs []error
	for _, g := range groups {
		errs = append(errs, s.sendGroups(ctx, req, owner, []settleGroup{g}, report)...)
	}
	return errs
}

func (s *Settler) sendBatch(ctx context.Context, req Request, owner solana.PublicKey, settles []solana.Instruction) (solana.Signature, error) {
	ixs := make([]solana.Instruction, 0, len(settles)+2)
	if req.ComputeUnits > 0 {
		ixs = append(ixs, SetComputeUnitLimit(req.ComputeUnits))
	}
	if req.PriorityFee > 0 {
		ixs = append(ixs, SetComputeUnitPrice(req.PriorityFee))
	}
	ixs = append(ixs, settles...)

	blockhash, err := req.Connection.LatestBlockhash(ctx)
	if err != nil {
		return solana.Signature{}, err
	}

	tx, err := solana.NewTransaction(ixs, blockhash, solana.TransactionPayer(owner))
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to build settle transaction: %w", err)
	}

	if err := req.Wallet.SignTransaction(ctx, tx); err != nil {
		return solana.Signature{}, err
	}

	return req.Connection.SendTransaction(ctx, tx)
}
