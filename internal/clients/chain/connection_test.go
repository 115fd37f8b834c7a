package chain

import (
	"errors"
	"testing"

	"github.com/aristath/autosettle/internal/modules/settings"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memIntStore struct {
	values map[string]int64
	getErr error
	setErr error
}

func newMemIntStore() *memIntStore {
	return &memIntStore{values: make(map[string]int64)}
}

func (m *memIntStore) GetInt(key string, defaultValue int64) (int64, error) {
	if m.getErr != nil {
		return defaultValue, m.getErr
	}
	v, ok := m.values[key]
	if !ok {
		return defaultValue, nil
	}
	return v, nil
}

func (m *memIntStore) SetInts(values map[string]int64) error {
	if m.setErr != nil {
		return m.setErr
	}
	for key, value := range values {
		m.values[key] = value
	}
	return nil
}

func newTestClient() *Client {
	return NewClientWithRPC(&fakeRPC{}, "", "confirmed", zerolog.Nop())
}

func TestConnectionProvider_Defaults(t *testing.T) {
	p := NewConnectionProvider(newTestClient(), newMemIntStore(), zerolog.Nop())

	fees := p.FeeConfig()
	assert.Equal(t, settings.DefaultPriorityFee, fees.PriorityFee)
	assert.Equal(t, settings.DefaultComputeUnits, fees.ComputeUnits)
	assert.NotNil(t, p.Connection())
}

func TestConnectionProvider_LoadsPersisted(t *testing.T) {
	store := newMemIntStore()
	store.values[settings.KeyPriorityFee] = 25_000
	store.values[settings.KeyComputeUnits] = 300_000

	p := NewConnectionProvider(newTestClient(), store, zerolog.Nop())
	assert.Equal(t, FeeConfig{PriorityFee: 25_000, ComputeUnits: 300_000}, p.FeeConfig())
}

func TestConnectionProvider_StoreErrorUsesDefaults(t *testing.T) {
	store := newMemIntStore()
	store.getErr = errors.New("disk gone")

	p := NewConnectionProvider(newTestClient(), store, zerolog.Nop())
	assert.Equal(t, settings.DefaultComputeUnits, p.FeeConfig().ComputeUnits)
}

func TestConnectionProvider_SetFeeConfig(t *testing.T) {
	store := newMemIntStore()
	p := NewConnectionProvider(newTestClient(), store, zerolog.Nop())

	require.NoError(t, p.SetFeeConfig(FeeConfig{PriorityFee: 5000, ComputeUnits: 400_000}))
	assert.Equal(t, FeeConfig{PriorityFee: 5000, ComputeUnits: 400_000}, p.FeeConfig())
	assert.Equal(t, int64(5000), store.values[settings.KeyPriorityFee])
	assert.Equal(t, int64(400_000), store.values[settings.KeyComputeUnits])
}

func TestConnectionProvider_SetFeeConfigRejectsInvalid(t *testing.T) {
	p := NewConnectionProvider(newTestClient(), newMemIntStore(), zerolog.Nop())

	assert.Error(t, p.SetFeeConfig(FeeConfig{PriorityFee: 1, ComputeUnits: 0}))
	assert.Error(t, p.SetFeeConfig(FeeConfig{PriorityFee: 1, ComputeUnits: MaxComputeUnits + 1}))
	assert.Equal(t, settings.DefaultComputeUnits, p.FeeConfig().ComputeUnits)
}

func TestConnectionProvider_SetFeeConfigPersistFailureKeepsOld(t *testing.T) {
	store := newMemIntStore()
	p := NewConnectionProvider(newTestClient(), store, zerolog.Nop())
	store.setErr = errors.New("read-only")

	err := p.SetFeeConfig(FeeConfig{PriorityFee: 9, ComputeUnits: 1000})
	require.Error(t, err)
	assert.Equal(t, settings.DefaultPriorityFee, p.FeeConfig().PriorityFee)
	assert.Empty(t, store.values, "nothing persisted")
}

func TestNewConnectionProvider_NilClientPanics(t *testing.T) {
	assert.Panics(t, func() { NewConnectionProvider(nil, nil, zerolog.Nop()) })
}
