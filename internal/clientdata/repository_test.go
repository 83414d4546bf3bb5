package clientdata

import (
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func setupClientDataDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	for _, table := range AllTables {
		_, err = db.Exec(`
			CREATE TABLE ` + table + ` (
				cache_key TEXT PRIMARY KEY,
				data TEXT NOT NULL,
				expires_at INTEGER NOT NULL
			)
		`)
		require.NoError(t, err)
	}
	return db
}

func TestRepository_StoreAndFreshness(t *testing.T) {
	repo := NewRepository(setupClientDataDB(t))

	require.NoError(t, repo.Store("exchangerate", "USD:CAD", map[string]float64{"rate": 1.35}, time.Hour))

	data, err := repo.GetIfFresh("exchangerate", "USD:CAD")
	require.NoError(t, err)
	require.NotNil(t, data)
	var decoded map[string]float64
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, 1.35, decoded["rate"])

	data, err = repo.GetIfFresh("exchangerate", "missing")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestRepository_StaleFallback(t *testing.T) {
	repo := NewRepository(setupClientDataDB(t))

	// Expired immediately.
	require.NoError(t, repo.Store("yahoo_chart", "VTI", map[string]string{"v": "x"}, -time.Minute))

	fresh, err := repo.GetIfFresh("yahoo_chart", "VTI")
	require.NoError(t, err)
	assert.Nil(t, fresh)

	stale, err := repo.Get("yahoo_chart", "VTI")
	require.NoError(t, err)
	assert.NotNil(t, stale)
}

func TestRepository_RejectsUnknownTable(t *testing.T) {
	repo := NewRepository(setupClientDataDB(t))
	err := repo.Store("bogus", "k", "v", time.Hour)
	assert.Error(t, err)
}

func TestRepository_DeleteExpired(t *testing.T) {
	repo := NewRepository(setupClientDataDB(t))

	require.NoError(t, repo.Store("exchangerate", "old", "v", -time.Minute))
	require.NoError(t, repo.Store("exchangerate", "new", "v", time.Hour))

	results, err := repo.DeleteAllExpired()
	require.NoError(t, err)
	assert.Equal(t, int64(1), results["exchangerate"])

	data, err := repo.Get("exchangerate", "new")
	require.NoError(t, err)
	assert.NotNil(t, data)
}
