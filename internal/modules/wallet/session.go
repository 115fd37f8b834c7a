package wallet

import (
	"sync"

	"github.com/aristath/autosettle/internal/events"
	"github.com/rs/zerolog"
)

// Status is a point-in-time view of the session
type Status struct {
	Connected   bool   `json:"connected"`
	Configured  bool   `json:"configured"`
	PublicKey   string `json:"publicKey,omitempty"`
	AutoApprove bool   `json:"autoApprove"`
}

// Session tracks whether the configured wallet is connected
type Session struct {
	mu           sync.RWMutex
	adapter      Adapter
	connected    bool
	eventManager *events.Manager
	log          zerolog.Logger
}

// NewSession creates a disconnected session. adapter may be nil when no
// wallet is configured.
func NewSession(adapter Adapter, eventManager *events.Manager, log zerolog.Logger) *Session {
	return &Session{
		adapter:      adapter,
		eventManager: eventManager,
		log:          log.With().Str("component", "wallet_session").Logger(),
	}
}

// Connect marks the configured wallet as connected
func (s *Session) Connect() error {
	s.mu.Lock()
	if s.adapter == nil {
		s.mu.Unlock()
		return ErrNoAdapter
	}
	changed := !s.connected
	s.connected = true
	s.mu.Unlock()

	if changed {
		s.log.Info().Str("public_key", s.adapter.PublicKey().String()).Msg("Wallet connected")
		s.emitStatus()
	}
	return nil
}

// Disconnect marks the wallet as disconnected. Work already in flight is not cancelled.
func (s *Session) Disconnect() {
	s.mu.Lock()
	changed := s.connected
	s.connected = false
	s.mu.Unlock()

	if changed {
		s.log.Info().Msg("Wallet disconnected")
		s.emitStatus()
	}
}

// Connected reports whether the wallet is connected
func (s *Session) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// Adapter returns the configured adapter, or nil
func (s *Session) Adapter() Adapter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.adapter
}

// Status returns the current session state
func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := Status{
		Connected:  s.connected,
		Configured: s.adapter != nil,
	}
	if s.adapter != nil {
		status.PublicKey = s.adapter.PublicKey().String()
		status.AutoApprove = s.adapter.AutoApprove()
	}
	return status
}

func (s *Session) emitStatus() {
	if s.eventManager == nil {
		return
	}
	status := s.Status()
	s.eventManager.EmitTyped("wallet", &events.WalletStatusChangedData{
		Connected:   status.Connected,
		PublicKey:   status.PublicKey,
		AutoApprove: status.AutoApprove,
	})
}
