package balances

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/networth/internal/domain"
)

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := domain.ParseDay(s)
	require.NoError(t, err)
	return d
}

func TestReconstruct_LinearInterpolation(t *testing.T) {
	obs := []Observation{
		{Date: day(t, "2024-01-01"), Value: 1000},
		{Date: day(t, "2024-01-11"), Value: 1200},
	}

	series := Reconstruct(obs, day(t, "2024-01-01"), day(t, "2024-01-11"), false)

	assert.Equal(t, 1000.0, series["2024-01-01"])
	assert.InDelta(t, 1100.0, series["2024-01-06"], 1e-9)
	assert.Equal(t, 1200.0, series["2024-01-11"])
	// 1 day of 10 between anchors
	assert.InDelta(t, 1020.0, series["2024-01-02"], 1e-9)
}

func TestReconstruct_StepHoldForTickerSeries(t *testing.T) {
	obs := []Observation{
		{Date: day(t, "2024-01-01"), Value: 10},
		{Date: day(t, "2024-01-11"), Value: 20},
	}

	series := Reconstruct(obs, day(t, "2024-01-01"), day(t, "2024-01-11"), true)

	// Unit counts never glide; they jump on the observation date.
	assert.Equal(t, 10.0, series["2024-01-06"])
	assert.Equal(t, 10.0, series["2024-01-10"])
	assert.Equal(t, 20.0, series["2024-01-11"])
}

func TestReconstruct_ExactObservationsVerbatim(t *testing.T) {
	obs := []Observation{
		{Date: day(t, "2024-01-01"), Value: 100},
		{Date: day(t, "2024-01-03"), Value: 300},
		{Date: day(t, "2024-01-05"), Value: 200},
	}

	series := Reconstruct(obs, day(t, "2024-01-01"), day(t, "2024-01-05"), false)

	assert.Equal(t, 100.0, series["2024-01-01"])
	assert.Equal(t, 300.0, series["2024-01-03"])
	assert.Equal(t, 200.0, series["2024-01-05"])
}

func TestReconstruct_ForwardFillAfterLastObservation(t *testing.T) {
	obs := []Observation{
		{Date: day(t, "2024-01-01"), Value: 500},
		{Date: day(t, "2024-01-05"), Value: 700},
	}

	series := Reconstruct(obs, day(t, "2024-01-01"), day(t, "2024-01-10"), false)

	for _, d := range []string{"2024-01-06", "2024-01-08", "2024-01-10"} {
		assert.Equal(t, 700.0, series[d], d)
	}
}

func TestReconstruct_SuppressesBeforeFirstObservation(t *testing.T) {
	obs := []Observation{
		{Date: day(t, "2024-01-05"), Value: 500},
	}

	series := Reconstruct(obs, day(t, "2024-01-01"), day(t, "2024-01-07"), false)

	_, before := series["2024-01-04"]
	assert.False(t, before, "dates before the first observation must not appear")
	assert.Equal(t, 500.0, series["2024-01-05"])
	assert.Equal(t, 500.0, series["2024-01-07"])
}

func TestReconstruct_DenseOverWindow(t *testing.T) {
	obs := []Observation{
		{Date: day(t, "2024-01-01"), Value: 1},
		{Date: day(t, "2024-03-01"), Value: 61},
	}

	start, end := day(t, "2024-01-01"), day(t, "2024-03-01")
	series := Reconstruct(obs, start, end, false)

	want := domain.DaysBetween(start, end) + 1
	assert.Len(t, series, want)
	for cur := start; !cur.After(end); cur = cur.AddDate(0, 0, 1) {
		_, ok := series[domain.FormatDay(cur)]
		assert.True(t, ok, domain.FormatDay(cur))
	}
}

func TestReconstruct_EmptyObservations(t *testing.T) {
	series := Reconstruct(nil, day(t, "2024-01-01"), day(t, "2024-01-10"), false)
	assert.Empty(t, series)
}

func TestReconstruct_SingleObservation(t *testing.T) {
	obs := []Observation{{Date: day(t, "2024-01-05"), Value: 42}}

	series := Reconstruct(obs, day(t, "2024-01-01"), day(t, "2024-01-08"), false)

	assert.Len(t, series, 4)
	for _, d := range []string{"2024-01-05", "2024-01-06", "2024-01-07", "2024-01-08"} {
		assert.Equal(t, 42.0, series[d], d)
	}
}

func TestValueAt_BackwardFillBeforeFirst(t *testing.T) {
	obs := []Observation{
		{Date: day(t, "2024-02-01"), Value: 900},
		{Date: day(t, "2024-02-11"), Value: 1000},
	}

	v, ok := ValueAt(obs, day(t, "2024-01-15"), false)
	require.True(t, ok)
	assert.Equal(t, 900.0, v)
}

func TestValueAt_InterpolatesBetween(t *testing.T) {
	obs := []Observation{
		{Date: day(t, "2024-02-01"), Value: 900},
		{Date: day(t, "2024-02-11"), Value: 1000},
	}

	v, ok := ValueAt(obs, day(t, "2024-02-06"), false)
	require.True(t, ok)
	assert.InDelta(t, 950.0, v, 1e-9)

	v, ok = ValueAt(obs, day(t, "2024-02-06"), true)
	require.True(t, ok)
	assert.Equal(t, 900.0, v)
}

func TestValueAt_NoObservations(t *testing.T) {
	_, ok := ValueAt(nil, day(t, "2024-02-06"), false)
	assert.False(t, ok)
}

func TestGroupBySeries_SumsDuplicateDates(t *testing.T) {
	records := []domain.BalanceRecord{
		{AccountName: "Broker", Date: "2024-01-01", Balance: 10, Currency: "USD", Ticker: "VTI"},
		{AccountName: "Broker", Date: "2024-01-01", Balance: 5, Currency: "USD", Ticker: "VTI"},
		{AccountName: "Broker", Date: "2024-01-02", Balance: 7, Currency: "USD", Ticker: "VTI"},
	}

	grouped, err := groupBySeries(records)
	require.NoError(t, err)

	key := domain.SeriesKey{Account: "Broker", Currency: "USD", Ticker: "VTI"}
	obs := grouped[key]
	require.Len(t, obs, 2)
	assert.Equal(t, 15.0, obs[0].Value)
	assert.Equal(t, 7.0, obs[1].Value)
}

func TestGroupBySeries_SeparatesCurrenciesAndTickers(t *testing.T) {
	records := []domain.BalanceRecord{
		{AccountName: "Broker", Date: "2024-01-01", Balance: 100, Currency: "USD"},
		{AccountName: "Broker", Date: "2024-01-01", Balance: 200, Currency: "EUR"},
		{AccountName: "Broker", Date: "2024-01-01", Balance: 3, Currency: "USD", Ticker: "VTI"},
	}

	grouped, err := groupBySeries(records)
	require.NoError(t, err)
	assert.Len(t, grouped, 3)
}
