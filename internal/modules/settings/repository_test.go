package settings

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const settingsSchema = `
	CREATE TABLE settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		description TEXT,
		updated_at INTEGER NOT NULL
	)
`

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	_, err = db.Exec(settingsSchema)
	require.NoError(t, err)

	t.Cleanup(func() { db.Close() })
	return db
}

func TestRepository_GetSet(t *testing.T) {
	repo := NewRepository(setupTestDB(t), zerolog.Nop())

	value, err := repo.Get("missing")
	require.NoError(t, err)
	assert.Nil(t, value)

	desc := "a description"
	require.NoError(t, repo.Set("k", "v1", &desc))
	require.NoError(t, repo.Set("k", "v2", nil))

	value, err = repo.Get("k")
	require.NoError(t, err)
	require.NotNil(t, value)
	assert.Equal(t, "v2", *value)

	all, err := repo.GetAll()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"k": "v2"}, all)
}

func TestRepository_GetBool(t *testing.T) {
	repo := NewRepository(setupTestDB(t), zerolog.Nop())

	got, err := repo.GetBool("flag", true)
	require.NoError(t, err)
	assert.True(t, got, "missing key returns default")

	tests := []struct {
		stored string
		want   bool
	}{
		{"true", true},
		{"TRUE", true},
		{"1", true},
		{"yes", true},
		{"on", true},
		{"false", false},
		{"0", false},
		{"garbage", false},
	}
	for _, tt := range tests {
		t.Run(tt.stored, func(t *testing.T) {
			require.NoError(t, repo.Set("flag", tt.stored, nil))
			got, err := repo.GetBool("flag", !tt.want)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRepository_GetInt(t *testing.T) {
	repo := NewRepository(setupTestDB(t), zerolog.Nop())

	got, err := repo.GetInt("n", 42)
	require.NoError(t, err)
	assert.Equal(t, int64(42), got)

	require.NoError(t, repo.SetInts(map[string]int64{"n": 200000}))
	got, err = repo.GetInt("n", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(200000), got)

	require.NoError(t, repo.Set("n", "12.0", nil))
	got, err = repo.GetInt("n", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(12), got)

	require.NoError(t, repo.Set("n", "abc", nil))
	got, err = repo.GetInt("n", 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), got)
}

func TestRepository_ClosedDBReturnsError(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db, zerolog.Nop())
	db.Close()

	_, err := repo.Get("k")
	assert.Error(t, err)
	assert.Error(t, repo.SetBool("k", true))
}

func TestRepository_SetIntsIsAllOrNothing(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db, zerolog.Nop())

	require.NoError(t, repo.SetInts(map[string]int64{KeyPriorityFee: 1000, KeyComputeUnits: 200000}))

	_, err := db.Exec(`
		CREATE TRIGGER reject_priority_fee BEFORE UPDATE ON settings
		WHEN NEW.key = 'priorityFee'
		BEGIN SELECT RAISE(ABORT, 'rejected'); END
	`)
	require.NoError(t, err)

	err = repo.SetInts(map[string]int64{KeyPriorityFee: 9000, KeyComputeUnits: 300000})
	require.Error(t, err)

	units, err := repo.GetInt(KeyComputeUnits, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(200000), units, "compute units rolled back with the failed priority fee write")

	fee, err := repo.GetInt(KeyPriorityFee, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), fee)
}
