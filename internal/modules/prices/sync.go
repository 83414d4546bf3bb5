package prices

import (
	"github.com/rs/zerolog"

	"github.com/aristath/networth/internal/clients/yahoo"
	"github.com/aristath/networth/internal/domain"
)

// Fetcher pulls daily close history for one symbol.
type Fetcher interface {
	DailyHistory(symbol, rng string) (*yahoo.History, error)
}

// TickerLister provides the symbols that need prices.
type TickerLister interface {
	AllTickers() ([]string, error)
}

// Invalidator drops computed results after new prices land.
type Invalidator interface {
	InvalidateAll() error
}

// Syncer fetches daily closes for every ticker held in balance records.
// A symbol with no stored history gets its full history; otherwise a
// short recent window is enough to catch up.
type Syncer struct {
	repo    *Repository
	fetcher Fetcher
	tickers TickerLister
	cache   Invalidator
	events  domain.EventPublisher
	log     zerolog.Logger
}

// NewSyncer creates a new price syncer
func NewSyncer(repo *Repository, fetcher Fetcher, tickers TickerLister, cache Invalidator, events domain.EventPublisher, log zerolog.Logger) *Syncer {
	return &Syncer{
		repo:    repo,
		fetcher: fetcher,
		tickers: tickers,
		cache:   cache,
		events:  events,
		log:     log.With().Str("job", "sync_prices").Logger(),
	}
}

// Sync stores fresh closes for all held symbols and returns how many
// price rows were written. A failing symbol is logged and skipped; the
// rest still sync.
func (s *Syncer) Sync() (int, error) {
	symbols, err := s.tickers.AllTickers()
	if err != nil {
		return 0, err
	}
	if len(symbols) == 0 {
		s.log.Debug().Msg("No tickers in use, nothing to sync")
		return 0, nil
	}

	stored := 0
	for _, symbol := range symbols {
		count, err := s.syncSymbol(symbol)
		if err != nil {
			s.log.Warn().Err(err).Str("symbol", symbol).Msg("Symbol sync failed")
			continue
		}
		stored += count
	}

	if stored > 0 {
		if s.cache != nil {
			if err := s.cache.InvalidateAll(); err != nil {
				s.log.Warn().Err(err).Msg("Cache invalidation failed after price sync")
			}
		}
		if s.events != nil {
			s.events.Publish("prices.synced", map[string]interface{}{
				"symbols": len(symbols),
				"count":   stored,
			})
		}
	}

	s.log.Info().Int("symbols", len(symbols)).Int("stored", stored).Msg("Price sync completed")
	return stored, nil
}

func (s *Syncer) syncSymbol(symbol string) (int, error) {
	latest, err := s.repo.LatestDate(symbol)
	if err != nil {
		return 0, err
	}

	rng := "3mo"
	if latest == "" {
		// First sync pulls the whole history so old balance records
		// can be valued.
		rng = "max"
	}

	history, err := s.fetcher.DailyHistory(symbol, rng)
	if err != nil {
		return 0, err
	}

	stored := 0
	for _, candle := range history.Candles {
		entry := PriceEntry{
			Date:     candle.Date,
			Symbol:   symbol,
			Currency: history.Currency,
			Price:    candle.Close,
		}
		if err := s.repo.Upsert(entry); err != nil {
			return stored, err
		}
		stored++
	}
	return stored, nil
}

// Run implements the scheduler job interface.
func (s *Syncer) Run() error {
	_, err := s.Sync()
	return err
}

// Name returns the job name for scheduling and logging.
func (s *Syncer) Name() string {
	return "sync_prices"
}
