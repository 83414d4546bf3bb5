package rates

import (
	"github.com/rs/zerolog"
)

// lookupStrategy is one step in the fallback chain. Strategies are tried
// in order; the first hit wins.
type lookupStrategy func(date, base, target string) (float64, bool, error)

// Service resolves conversion multipliers with fallback and pivot
// composition. Lookup order for a pair: exact date, exact reciprocal,
// nearest prior, nearest prior reciprocal, nearest next, nearest next
// reciprocal. When neither side of the pair is the pivot currency the
// rate is composed from base->pivot and pivot->target; if either leg is
// missing the whole lookup misses.
type Service struct {
	repo       *Repository
	pivot      string
	strategies []lookupStrategy
	log        zerolog.Logger
}

// NewService creates a new rate lookup service
func NewService(repo *Repository, pivot string, log zerolog.Logger) *Service {
	s := &Service{
		repo:  repo,
		pivot: pivot,
		log:   log.With().Str("service", "rates").Logger(),
	}
	s.strategies = []lookupStrategy{
		repo.Exact,
		reciprocal(repo.Exact),
		repo.NearestPrior,
		reciprocal(repo.NearestPrior),
		repo.NearestNext,
		reciprocal(repo.NearestNext),
	}
	return s
}

// reciprocal wraps a strategy to look up the reverse pair and invert it.
func reciprocal(s lookupStrategy) lookupStrategy {
	return func(date, base, target string) (float64, bool, error) {
		rate, ok, err := s(date, target, base)
		if err != nil || !ok || rate == 0 {
			return 0, false, err
		}
		return 1.0 / rate, true, nil
	}
}

// Rate implements domain.RateSource. ok is false when no usable rate
// exists; a miss is never an error.
func (s *Service) Rate(date, base, target string) (float64, bool, error) {
	if base == target {
		return 1.0, true, nil
	}

	// Direct chain only when one side is the pivot; otherwise compose.
	if base == s.pivot || target == s.pivot {
		return s.direct(date, base, target)
	}

	toPivot, ok, err := s.direct(date, base, s.pivot)
	if err != nil || !ok {
		return 0, false, err
	}
	fromPivot, ok, err := s.direct(date, s.pivot, target)
	if err != nil || !ok {
		return 0, false, err
	}
	return toPivot * fromPivot, true, nil
}

func (s *Service) direct(date, base, target string) (float64, bool, error) {
	for _, strategy := range s.strategies {
		rate, ok, err := strategy(date, base, target)
		if err != nil {
			return 0, false, err
		}
		if ok {
			return rate, true, nil
		}
	}
	s.log.Debug().
		Str("date", date).
		Str("base", base).
		Str("target", target).
		Msg("No rate found")
	return 0, false, nil
}

// Pivot returns the configured pivot currency.
func (s *Service) Pivot() string {
	return s.pivot
}
