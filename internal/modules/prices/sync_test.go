package prices

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/networth/internal/clients/yahoo"
	"github.com/aristath/networth/pkg/logger"
)

type fakeChart struct {
	histories map[string]*yahoo.History
	ranges    map[string]string
}

func (f *fakeChart) DailyHistory(symbol, rng string) (*yahoo.History, error) {
	if f.ranges == nil {
		f.ranges = make(map[string]string)
	}
	f.ranges[symbol] = rng
	h, ok := f.histories[symbol]
	if !ok {
		return nil, errors.New("unknown symbol")
	}
	return h, nil
}

type fakeTickers struct {
	symbols []string
}

func (f *fakeTickers) AllTickers() ([]string, error) { return f.symbols, nil }

type fakeInvalidator struct {
	calls int
}

func (f *fakeInvalidator) InvalidateAll() error {
	f.calls++
	return nil
}

func TestSync_StoresHistory(t *testing.T) {
	repo := NewRepository(setupPricesDB(t), logger.Disabled())
	chart := &fakeChart{histories: map[string]*yahoo.History{
		"VTI": {
			Symbol:   "VTI",
			Currency: "USD",
			Candles: []yahoo.Candle{
				{Date: "2024-01-04", Close: 237.1},
				{Date: "2024-01-05", Close: 238.5},
			},
		},
	}}
	invalidator := &fakeInvalidator{}
	syncer := NewSyncer(repo, chart, &fakeTickers{symbols: []string{"VTI"}}, invalidator, nil, logger.Disabled())

	stored, err := syncer.Sync()
	require.NoError(t, err)
	assert.Equal(t, 2, stored)
	assert.Equal(t, 1, invalidator.calls)

	// New symbol pulls full history.
	assert.Equal(t, "max", chart.ranges["VTI"])

	price, currency, ok, err := repo.LatestAtOrBefore("2024-01-05", "VTI")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 238.5, price)
	assert.Equal(t, "USD", currency)
}

func TestSync_IncrementalRangeForKnownSymbol(t *testing.T) {
	repo := NewRepository(setupPricesDB(t), logger.Disabled())
	require.NoError(t, repo.Upsert(PriceEntry{Date: "2024-01-01", Symbol: "VTI", Currency: "USD", Price: 230}))

	chart := &fakeChart{histories: map[string]*yahoo.History{
		"VTI": {Symbol: "VTI", Currency: "USD", Candles: []yahoo.Candle{{Date: "2024-01-05", Close: 238.5}}},
	}}
	syncer := NewSyncer(repo, chart, &fakeTickers{symbols: []string{"VTI"}}, nil, nil, logger.Disabled())

	_, err := syncer.Sync()
	require.NoError(t, err)
	assert.Equal(t, "3mo", chart.ranges["VTI"])
}

func TestSync_FailingSymbolDoesNotStopOthers(t *testing.T) {
	repo := NewRepository(setupPricesDB(t), logger.Disabled())
	chart := &fakeChart{histories: map[string]*yahoo.History{
		"XEQT.TO": {Symbol: "XEQT.TO", Currency: "CAD", Candles: []yahoo.Candle{{Date: "2024-01-05", Close: 31.2}}},
	}}
	syncer := NewSyncer(repo, chart, &fakeTickers{symbols: []string{"BROKEN", "XEQT.TO"}}, nil, nil, logger.Disabled())

	stored, err := syncer.Sync()
	require.NoError(t, err)
	assert.Equal(t, 1, stored)
}
