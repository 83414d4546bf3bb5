package rates

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/networth/internal/domain"
)

// Fetcher pulls the latest rate table for one base currency.
type Fetcher interface {
	Latest(base string) (map[string]float64, error)
}

// CurrencyLister provides the currencies that need rates.
type CurrencyLister interface {
	AllCurrencies() ([]string, error)
}

// Invalidator drops computed results after new rates land.
type Invalidator interface {
	InvalidateAll() error
}

// Syncer fetches today's pivot rates and stores them. Only currencies
// that actually appear in balance records (plus any already in the rate
// table) are stored; the API returns far more than we need.
type Syncer struct {
	repo       *Repository
	fetcher    Fetcher
	currencies CurrencyLister
	cache      Invalidator
	events     domain.EventPublisher
	pivot      string
	log        zerolog.Logger
}

// NewSyncer creates a new rate syncer
func NewSyncer(repo *Repository, fetcher Fetcher, currencies CurrencyLister, cache Invalidator, events domain.EventPublisher, pivot string, log zerolog.Logger) *Syncer {
	return &Syncer{
		repo:       repo,
		fetcher:    fetcher,
		currencies: currencies,
		cache:      cache,
		events:     events,
		pivot:      pivot,
		log:        log.With().Str("job", "sync_rates").Logger(),
	}
}

// Sync stores today's pivot rates and returns how many were written.
func (s *Syncer) Sync() (int, error) {
	needed, err := s.neededCurrencies()
	if err != nil {
		return 0, err
	}
	if len(needed) == 0 {
		s.log.Debug().Msg("No currencies in use, nothing to sync")
		return 0, nil
	}

	rates, err := s.fetcher.Latest(s.pivot)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch rates for %s: %w", s.pivot, err)
	}

	today := domain.FormatDay(time.Now().UTC())
	stored := 0
	for _, currency := range needed {
		rate, ok := rates[currency]
		if !ok || rate == 0 {
			s.log.Warn().Str("currency", currency).Msg("Currency missing from rate feed")
			continue
		}
		entry := RateEntry{Date: today, Base: s.pivot, Target: currency, Rate: rate}
		if err := s.repo.Upsert(entry); err != nil {
			return stored, err
		}
		stored++
	}

	if stored > 0 {
		if s.cache != nil {
			if err := s.cache.InvalidateAll(); err != nil {
				s.log.Warn().Err(err).Msg("Cache invalidation failed after rate sync")
			}
		}
		if s.events != nil {
			s.events.Publish("rates.synced", map[string]interface{}{
				"date":  today,
				"count": stored,
			})
		}
	}

	s.log.Info().Str("date", today).Int("stored", stored).Msg("Rate sync completed")
	return stored, nil
}

// Run implements the scheduler job interface.
func (s *Syncer) Run() error {
	_, err := s.Sync()
	return err
}

// Name returns the job name for scheduling and logging.
func (s *Syncer) Name() string {
	return "sync_rates"
}

func (s *Syncer) neededCurrencies() ([]string, error) {
	seen := map[string]bool{}
	var needed []string

	add := func(currency string) {
		if currency == "" || currency == s.pivot || seen[currency] {
			return
		}
		seen[currency] = true
		needed = append(needed, currency)
	}

	inUse, err := s.currencies.AllCurrencies()
	if err != nil {
		return nil, err
	}
	for _, c := range inUse {
		add(c)
	}

	// Keep refreshing pairs we already track even if their records are
	// gone; history requests can still reach back to them.
	known, err := s.repo.Currencies()
	if err != nil {
		return nil, err
	}
	for _, c := range known {
		add(c)
	}
	return needed, nil
}
