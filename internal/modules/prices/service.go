package prices

import (
	"github.com/rs/zerolog"
)

// Service resolves security prices for valuation. Only the most recent
// price at or before the requested date is ever used: a price observed
// in the future must never influence a past valuation, so there is no
// nearest-next fallback here (unlike the rate table).
type Service struct {
	repo *Repository
	log  zerolog.Logger
}

// NewService creates a new price lookup service
func NewService(repo *Repository, log zerolog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log.With().Str("service", "prices").Logger(),
	}
}

// Price implements domain.PriceSource. ok is false when the requested
// date predates all records for the symbol; callers treat that as
// "valuation unknown", not zero.
func (s *Service) Price(date, symbol string) (float64, string, bool, error) {
	price, currency, ok, err := s.repo.LatestAtOrBefore(date, symbol)
	if err != nil {
		return 0, "", false, err
	}
	if !ok {
		s.log.Debug().
			Str("date", date).
			Str("symbol", symbol).
			Msg("No price at or before date")
		return 0, "", false, nil
	}
	return price, currency, true, nil
}
