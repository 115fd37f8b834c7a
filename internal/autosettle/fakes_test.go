package autosettle

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aristath/autosettle/internal/clients/chain"
	"github.com/aristath/autosettle/internal/modules/markets"
	"github.com/aristath/autosettle/internal/modules/settlement"
	"github.com/aristath/autosettle/internal/modules/wallet"
	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"
)

type fakeSession struct {
	connected atomic.Bool
	adapter   wallet.Adapter
}

func newConnectedSession(autoApprove bool) *fakeSession {
	s := &fakeSession{adapter: wallet.NewKeypairAdapter(solana.NewWallet().PrivateKey, autoApprove)}
	s.connected.Store(true)
	return s
}

func (s *fakeSession) Connected() bool         { return s.connected.Load() }
func (s *fakeSession) Adapter() wallet.Adapter { return s.adapter }

type fakePrefs struct {
	enabled atomic.Bool
}

func newPrefs(enabled bool) *fakePrefs {
	p := &fakePrefs{}
	p.enabled.Store(enabled)
	return p
}

func (p *fakePrefs) Get() bool { return p.enabled.Load() }

type fakeDescriptors struct {
	list []markets.Descriptor
}

func (d *fakeDescriptors) Descriptors() []markets.Descriptor { return d.list }

func descriptors(n int) []markets.Descriptor {
	out := make([]markets.Descriptor, n)
	for i := range out {
		out[i] = markets.Descriptor{
			Name:      "M" + string(rune('A'+i)),
			Address:   solana.NewWallet().PublicKey(),
			ProgramID: solana.NewWallet().PublicKey(),
		}
	}
	return out
}

// fakeLoader records every call and tracks how many run at once
type fakeLoader struct {
	mu        sync.Mutex
	calls     []solana.PublicKey
	callTimes []time.Time
	fail      map[solana.PublicKey]error
	empty     map[solana.PublicKey]bool // return neither a market nor an error
	active    atomic.Int32
	maxActive atomic.Int32
	onLoad    func(address solana.PublicKey)
	hold      time.Duration
}

func (l *fakeLoader) Load(ctx context.Context, address solana.PublicKey, opts markets.LoadOptions, programID solana.PublicKey) (*markets.Market, error) {
	n := l.active.Add(1)
	defer l.active.Add(-1)
	for {
		cur := l.maxActive.Load()
		if n <= cur || l.maxActive.CompareAndSwap(cur, n) {
			break
		}
	}

	l.mu.Lock()
	l.calls = append(l.calls, address)
	l.callTimes = append(l.callTimes, time.Now())
	err := l.fail[address]
	empty := l.empty[address]
	hook := l.onLoad
	l.mu.Unlock()

	if hook != nil {
		hook(address)
	}
	if l.hold > 0 {
		time.Sleep(l.hold)
	}
	if err != nil || empty {
		return nil, err
	}
	return &markets.Market{Address: address, ProgramID: programID}, nil
}

func (l *fakeLoader) callCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.calls)
}

type fakeTokens struct {
	accounts []wallet.TokenAccount
}

func (t *fakeTokens) Current() []wallet.TokenAccount { return t.accounts }

type fakeConn struct {
	client *chain.Client
	fees   chain.FeeConfig
}

func (c *fakeConn) Connection() *chain.Client  { return c.client }
func (c *fakeConn) FeeConfig() chain.FeeConfig { return c.fees }

type fakeSettler struct {
	mu       sync.Mutex
	requests []settlement.Request
	report   *settlement.Report
	err      error
}

func (s *fakeSettler) SettleAllFunds(ctx context.Context, req settlement.Request) (*settlement.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	return s.report, s.err
}

func (s *fakeSettler) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func (s *fakeSettler) lastRequest() settlement.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[len(s.requests)-1]
}

var errLoad = errors.New("rpc: too many requests")

// sleepRecorder records throttle delays without waiting
type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
	events *[]string
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
	if s.events != nil {
		*s.events = append(*s.events, "sleep")
	}
	return ctx.Err()
}

func newTestWarmer(cache *markets.Cache, list []markets.Descriptor, loader *fakeLoader, session WalletSession, prefs Preference) (*Warmer, *sleepRecorder) {
	w := NewWarmer(cache, &fakeDescriptors{list: list}, loader, session, prefs, time.Second, zerolog.Nop())
	rec := &sleepRecorder{}
	w.sleep = rec.sleep
	return w, rec
}
