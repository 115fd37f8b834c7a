package settings

import (
	"database/sql"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStore struct {
	getErr error
	setErr error
	sets   []bool
}

func (f *failingStore) GetBool(key string, defaultValue bool) (bool, error) {
	return defaultValue, f.getErr
}

func (f *failingStore) SetBool(key string, value bool) error {
	f.sets = append(f.sets, value)
	return f.setErr
}

func TestPreferenceStore_DefaultsToEnabled(t *testing.T) {
	repo := NewRepository(setupTestDB(t), zerolog.Nop())
	prefs := NewPreferenceStore(repo, zerolog.Nop())
	assert.True(t, prefs.Get())
}

func TestPreferenceStore_StorageUnavailableUsesDefault(t *testing.T) {
	prefs := NewPreferenceStore(&failingStore{getErr: errors.New("no storage")}, zerolog.Nop())
	assert.True(t, prefs.Get())
}

func TestPreferenceStore_SetPersistsSynchronously(t *testing.T) {
	repo := NewRepository(setupTestDB(t), zerolog.Nop())
	prefs := NewPreferenceStore(repo, zerolog.Nop())

	require.NoError(t, prefs.Set(false))
	assert.False(t, prefs.Get())

	stored, err := repo.GetBool(KeyAutoSettleEnabled, true)
	require.NoError(t, err)
	assert.False(t, stored)
}

func TestPreferenceStore_SetFailureStillAppliesInMemory(t *testing.T) {
	store := &failingStore{setErr: errors.New("read-only")}
	prefs := NewPreferenceStore(store, zerolog.Nop())

	err := prefs.Set(false)
	require.Error(t, err)
	assert.False(t, prefs.Get())
	assert.Equal(t, []bool{false}, store.sets)
}

// Survives a restart: a fresh store over the same database file sees the value.
func TestPreferenceStore_RoundTripAcrossRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.db")

	open := func() *sql.DB {
		db, err := sql.Open("sqlite3", path)
		require.NoError(t, err)
		_, err = db.Exec("CREATE TABLE IF NOT EXISTS settings (key TEXT PRIMARY KEY, value TEXT NOT NULL, description TEXT, updated_at INTEGER NOT NULL)")
		require.NoError(t, err)
		return db
	}

	db := open()
	prefs := NewPreferenceStore(NewRepository(db, zerolog.Nop()), zerolog.Nop())
	require.NoError(t, prefs.Set(false))
	require.NoError(t, db.Close())

	db = open()
	defer db.Close()
	restarted := NewPreferenceStore(NewRepository(db, zerolog.Nop()), zerolog.Nop())
	assert.False(t, restarted.Get())

	require.NoError(t, restarted.Set(true))
	again := NewPreferenceStore(NewRepository(db, zerolog.Nop()), zerolog.Nop())
	assert.True(t, again.Get())
}

func TestPreferenceStore_ConcurrentAccess(t *testing.T) {
	prefs := NewPreferenceStore(&failingStore{}, zerolog.Nop())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(v bool) {
			defer wg.Done()
			_ = prefs.Set(v)
		}(i%2 == 0)
		go func() {
			defer wg.Done()
			_ = prefs.Get()
		}()
	}
	wg.Wait()
}

func TestNewPreferenceStore_NilStorePanics(t *testing.T) {
	assert.Panics(t, func() { NewPreferenceStore(nil, zerolog.Nop()) })
}
