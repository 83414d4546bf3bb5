// Package balances implements the balance reconstruction engine: it
// expands sparse dated balance records into dense daily series, values
// ticker holdings, converts everything into one target currency and
// aggregates accounts into groups.
package balances

import (
	"sort"
	"time"

	"github.com/aristath/networth/internal/domain"
)

// Observation is one known (date, raw balance) point of a series.
type Observation struct {
	Date  time.Time
	Value float64
}

// groupBySeries splits balance records into per-series observation lists.
// Duplicate records at the same (series, date) are summed, not replaced:
// multiple ingested rows can represent sub-lots of the same holding.
func groupBySeries(records []domain.BalanceRecord) (map[domain.SeriesKey][]Observation, error) {
	byDate := make(map[domain.SeriesKey]map[time.Time]float64)

	for _, rec := range records {
		day, err := domain.ParseDay(rec.Date)
		if err != nil {
			return nil, err
		}
		key := domain.SeriesKey{
			Account:  rec.AccountName,
			Currency: rec.Currency,
			Ticker:   rec.Ticker,
		}
		if byDate[key] == nil {
			byDate[key] = make(map[time.Time]float64)
		}
		byDate[key][day] += rec.Balance
	}

	series := make(map[domain.SeriesKey][]Observation, len(byDate))
	for key, dates := range byDate {
		obs := make([]Observation, 0, len(dates))
		for day, value := range dates {
			obs = append(obs, Observation{Date: day, Value: value})
		}
		sort.Slice(obs, func(i, j int) bool { return obs[i].Date.Before(obs[j].Date) })
		series[key] = obs
	}
	return series, nil
}
