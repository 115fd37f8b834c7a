package settings

import (
	"sync"

	"github.com/rs/zerolog"
)

// BoolStore is the persistence a PreferenceStore needs.
// *Repository satisfies it.
type BoolStore interface {
	GetBool(key string, defaultValue bool) (bool, error)
	SetBool(key string, value bool) error
}

// PreferenceStore holds the auto-settle preference in memory and writes
// every change through to durable storage.
type PreferenceStore struct {
	store BoolStore
	mu    sync.RWMutex
	value bool
	log   zerolog.Logger
}

// NewPreferenceStore reads the persisted value once. When storage cannot be
// read the default (enabled) is used and the failure is only logged.
func NewPreferenceStore(store BoolStore, log zerolog.Logger) *PreferenceStore {
	if store == nil {
		panic("settings: preference store requires a BoolStore, must not be nil")
	}

	p := &PreferenceStore{
		store: store,
		value: DefaultAutoSettleEnabled,
		log:   log.With().Str("component", "preferences").Logger(),
	}

	value, err := store.GetBool(KeyAutoSettleEnabled, DefaultAutoSettleEnabled)
	if err != nil {
		p.log.Warn().Err(err).Msg("Preference storage unavailable, using default")
		return p
	}
	p.value = value
	return p
}

// Get returns the current auto-settle preference
func (p *PreferenceStore) Get() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.value
}

// Set updates the preference and persists it before returning.
// The in-memory value changes even when the write fails; the error is
// returned so callers can report the value as not persisted.
func (p *PreferenceStore) Set(enabled bool) error {
	p.mu.Lock()
	p.value = enabled
	p.mu.Unlock()

	if err := p.store.SetBool(KeyAutoSettleEnabled, enabled); err != nil {
		p.log.Warn().Err(err).Bool("enabled", enabled).Msg("Failed to persist auto-settle preference")
		return err
	}

	p.log.Info().Bool("enabled", enabled).Msg("Auto-settle preference updated")
	return nil
}
