package balances

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/networth/internal/domain"
)

// pipeline values and converts reconstructed series into the target
// currency. Rate and price lookups are memoized for the lifetime of a
// single request so that a 365-day window over a dozen accounts hits
// the database once per (date, pair) rather than once per cell.
type pipeline struct {
	rateMemo  map[string]memoRate
	priceMemo map[string]memoPrice
	rates     domain.RateSource
	prices    domain.PriceSource
	target    string
	log       zerolog.Logger
}

type memoRate struct {
	rate float64
	ok   bool
}

type memoPrice struct {
	price    float64
	currency string
	ok       bool
}

func newPipeline(rates domain.RateSource, prices domain.PriceSource, target string, log zerolog.Logger) *pipeline {
	return &pipeline{
		rates:     rates,
		prices:    prices,
		target:    target,
		log:       log,
		rateMemo:  make(map[string]memoRate),
		priceMemo: make(map[string]memoPrice),
	}
}

// Convert turns a reconstructed series for one key into target-currency
// values. For ticker series the unit count is multiplied by the price
// on each date and the price's native currency takes over from the
// record currency. Dates with no usable rate or price are dropped from
// the output; the rest of the series stays intact.
func (p *pipeline) Convert(key domain.SeriesKey, series domain.DailySeries) (domain.DailySeries, error) {
	out := make(domain.DailySeries, len(series))
	misses := 0

	for day, value := range series {
		currency := key.Currency

		if key.Ticker != "" {
			price, priceCurrency, ok, err := p.price(day, key.Ticker)
			if err != nil {
				return nil, err
			}
			if !ok {
				misses++
				continue
			}
			value *= price
			if priceCurrency != "" {
				currency = priceCurrency
			}
		}

		rate, ok, err := p.rate(day, currency)
		if err != nil {
			return nil, err
		}
		if !ok {
			misses++
			continue
		}
		out[day] = value * rate
	}

	if misses > 0 {
		p.log.Debug().
			Str("account", key.Account).
			Str("ticker", key.Ticker).
			Int("skipped_days", misses).
			Msg("dates skipped for missing rate or price")
	}
	return out, nil
}

func (p *pipeline) rate(day, currency string) (float64, bool, error) {
	if currency == p.target {
		return 1, true, nil
	}
	memoKey := day + "|" + currency
	if m, hit := p.rateMemo[memoKey]; hit {
		return m.rate, m.ok, nil
	}
	rate, ok, err := p.rates.Rate(day, currency, p.target)
	if err != nil {
		return 0, false, fmt.Errorf("rate %s->%s on %s: %w", currency, p.target, day, err)
	}
	p.rateMemo[memoKey] = memoRate{rate: rate, ok: ok}
	return rate, ok, nil
}

func (p *pipeline) price(day, symbol string) (float64, string, bool, error) {
	memoKey := day + "|" + symbol
	if m, hit := p.priceMemo[memoKey]; hit {
		return m.price, m.currency, m.ok, nil
	}
	price, currency, ok, err := p.prices.Price(day, symbol)
	if err != nil {
		return 0, "", false, fmt.Errorf("price %s on %s: %w", symbol, day, err)
	}
	p.priceMemo[memoKey] = memoPrice{price: price, currency: currency, ok: ok}
	return price, currency, ok, nil
}
