package settings

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/aristath/networth/pkg/logger"
)

func setupSettingsDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)
	`)
	require.NoError(t, err)
	return db
}

func TestRepository_GetSet(t *testing.T) {
	repo := NewRepository(setupSettingsDB(t), logger.Disabled())

	value, err := repo.Get("missing")
	require.NoError(t, err)
	assert.Nil(t, value)

	require.NoError(t, repo.Set("main_currency", "EUR"))
	require.NoError(t, repo.Set("main_currency", "USD"))

	value, err = repo.Get("main_currency")
	require.NoError(t, err)
	require.NotNil(t, value)
	assert.Equal(t, "USD", *value)
}

func TestRepository_TypedGetters(t *testing.T) {
	repo := NewRepository(setupSettingsDB(t), logger.Disabled())

	s, err := repo.GetString("main_currency", "CAD")
	require.NoError(t, err)
	assert.Equal(t, "CAD", s)

	b, err := repo.GetBool("hide_ignored", false)
	require.NoError(t, err)
	assert.False(t, b)
	require.NoError(t, repo.Set("hide_ignored", "true"))
	b, err = repo.GetBool("hide_ignored", false)
	require.NoError(t, err)
	assert.True(t, b)

	list, err := repo.GetStringSlice("ignore_for_total")
	require.NoError(t, err)
	assert.Nil(t, list)
	require.NoError(t, repo.SetStringSlice("ignore_for_total", []string{"Bridge", "Old RRSP"}))
	list, err = repo.GetStringSlice("ignore_for_total")
	require.NoError(t, err)
	assert.Equal(t, []string{"Bridge", "Old RRSP"}, list)
}

func TestService_MainCurrencyValidation(t *testing.T) {
	repo := NewRepository(setupSettingsDB(t), logger.Disabled())
	svc := NewService(repo, "CAD", nil, logger.Disabled())

	currency, err := svc.MainCurrency()
	require.NoError(t, err)
	assert.Equal(t, "CAD", currency)

	require.NoError(t, svc.SetMainCurrency("usd"))
	currency, err = svc.MainCurrency()
	require.NoError(t, err)
	assert.Equal(t, "USD", currency)

	assert.Error(t, svc.SetMainCurrency("dollars"))
	assert.Error(t, svc.SetMainCurrency(""))
}
