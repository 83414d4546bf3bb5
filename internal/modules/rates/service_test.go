package rates

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/aristath/networth/pkg/logger"
)

func setupRatesDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE exchange_rates (
			date TEXT NOT NULL,
			base_currency TEXT NOT NULL,
			target_currency TEXT NOT NULL,
			rate REAL NOT NULL,
			PRIMARY KEY (date, base_currency, target_currency)
		)
	`)
	require.NoError(t, err)
	return db
}

func newTestRates(t *testing.T, entries ...RateEntry) *Service {
	repo := NewRepository(setupRatesDB(t), logger.Disabled())
	for _, e := range entries {
		require.NoError(t, repo.Upsert(e))
	}
	return NewService(repo, "CAD", logger.Disabled())
}

func TestRate_SameCurrency(t *testing.T) {
	svc := newTestRates(t)
	rate, ok, err := svc.Rate("2024-01-01", "CAD", "CAD")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1.0, rate)
}

func TestRate_ExactMatch(t *testing.T) {
	svc := newTestRates(t, RateEntry{Date: "2024-01-01", Base: "USD", Target: "CAD", Rate: 1.35})

	rate, ok, err := svc.Rate("2024-01-01", "USD", "CAD")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1.35, rate)
}

func TestRate_ReciprocalFallback(t *testing.T) {
	// Only USD->CAD stored; CAD->USD resolves as 1/rate.
	svc := newTestRates(t, RateEntry{Date: "2024-01-01", Base: "USD", Target: "CAD", Rate: 1.25})

	rate, ok, err := svc.Rate("2024-01-01", "CAD", "USD")
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 0.8, rate, 1e-9)
}

func TestRate_NearestPriorBeatsNearestNext(t *testing.T) {
	svc := newTestRates(t,
		RateEntry{Date: "2024-01-01", Base: "USD", Target: "CAD", Rate: 1.30},
		RateEntry{Date: "2024-01-10", Base: "USD", Target: "CAD", Rate: 1.40},
	)

	rate, ok, err := svc.Rate("2024-01-05", "USD", "CAD")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1.30, rate)
}

func TestRate_PriorReciprocalBeatsNextDirect(t *testing.T) {
	// A reverse-pair row in the past outranks a direct row in the future.
	svc := newTestRates(t,
		RateEntry{Date: "2024-01-01", Base: "CAD", Target: "USD", Rate: 0.8},
		RateEntry{Date: "2024-01-10", Base: "USD", Target: "CAD", Rate: 1.40},
	)

	rate, ok, err := svc.Rate("2024-01-05", "USD", "CAD")
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 1.25, rate, 1e-9)
}

func TestRate_NearestNextWhenNoPrior(t *testing.T) {
	svc := newTestRates(t, RateEntry{Date: "2024-01-10", Base: "USD", Target: "CAD", Rate: 1.40})

	rate, ok, err := svc.Rate("2024-01-05", "USD", "CAD")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1.40, rate)
}

func TestRate_PivotComposition(t *testing.T) {
	// EUR->USD goes through CAD: EUR->CAD then CAD->USD.
	svc := newTestRates(t,
		RateEntry{Date: "2024-01-01", Base: "EUR", Target: "CAD", Rate: 1.45},
		RateEntry{Date: "2024-01-01", Base: "USD", Target: "CAD", Rate: 1.25},
	)

	rate, ok, err := svc.Rate("2024-01-01", "EUR", "USD")
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 1.45/1.25, rate, 1e-9)
}

func TestRate_PivotCompositionMissingLeg(t *testing.T) {
	svc := newTestRates(t, RateEntry{Date: "2024-01-01", Base: "EUR", Target: "CAD", Rate: 1.45})

	_, ok, err := svc.Rate("2024-01-01", "EUR", "USD")
	require.NoError(t, err)
	assert.False(t, ok, "missing pivot leg must miss, not guess")
}

func TestRate_NoDataIsMissNotError(t *testing.T) {
	svc := newTestRates(t)
	_, ok, err := svc.Rate("2024-01-01", "USD", "CAD")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRepository_UpsertReplaces(t *testing.T) {
	repo := NewRepository(setupRatesDB(t), logger.Disabled())
	require.NoError(t, repo.Upsert(RateEntry{Date: "2024-01-01", Base: "USD", Target: "CAD", Rate: 1.30}))
	require.NoError(t, repo.Upsert(RateEntry{Date: "2024-01-01", Base: "USD", Target: "CAD", Rate: 1.31}))

	rate, ok, err := repo.Exact("2024-01-01", "USD", "CAD")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1.31, rate)
}

func TestRepository_Currencies(t *testing.T) {
	repo := NewRepository(setupRatesDB(t), logger.Disabled())
	require.NoError(t, repo.Upsert(RateEntry{Date: "2024-01-01", Base: "USD", Target: "CAD", Rate: 1.30}))
	require.NoError(t, repo.Upsert(RateEntry{Date: "2024-01-01", Base: "EUR", Target: "CAD", Rate: 1.45}))

	currencies, err := repo.Currencies()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"CAD", "EUR", "USD"}, currencies)
}
