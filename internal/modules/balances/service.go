package balances

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/networth/internal/database"
	"github.com/aristath/networth/internal/domain"
)

// GroupSource provides the grouping configuration for an owner.
type GroupSource interface {
	Config(owner string) (domain.GroupConfig, error)
}

// SeriesRequest describes one dashboard query.
type SeriesRequest struct {
	StartDate string   `json:"start_date"`
	EndDate   string   `json:"end_date"`
	Accounts  []string `json:"accounts,omitempty"`
	Currency  string   `json:"currency"`
}

// SeriesResult is the dense, currency-normalized answer to a request.
type SeriesResult struct {
	StartDate string           `json:"start_date" msgpack:"start_date"`
	EndDate   string           `json:"end_date" msgpack:"end_date"`
	Currency  string           `json:"currency" msgpack:"currency"`
	Accounts  domain.SeriesMap `json:"accounts" msgpack:"accounts"`
	Groups    domain.SeriesMap `json:"groups" msgpack:"groups"`
	Cached    bool             `json:"cached" msgpack:"-"`
}

// Snapshot holds per-account values for a single day, for pie charts.
type Snapshot struct {
	Date     string             `json:"date"`
	Currency string             `json:"currency"`
	Group    string             `json:"group,omitempty"`
	Values   map[string]float64 `json:"values"`
	Total    float64            `json:"total"`
}

// Service reconstructs dense balance series from sparse records, values
// security positions, converts to a target currency and aggregates into
// groups. Results are cached per owner until the next ingest.
type Service struct {
	repo   *Repository
	cache  *ResultCache
	rates  domain.RateSource
	prices domain.PriceSource
	groups GroupSource
	events domain.EventPublisher
	log    zerolog.Logger
}

// NewService creates a new balances service
func NewService(repo *Repository, cache *ResultCache, rates domain.RateSource, prices domain.PriceSource, groups GroupSource, events domain.EventPublisher, log zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		cache:  cache,
		rates:  rates,
		prices: prices,
		groups: groups,
		events: events,
		log:    log.With().Str("service", "balances").Logger(),
	}
}

// Series computes (or serves from cache) the dense daily series for an
// owner over the requested window.
func (s *Service) Series(owner string, req SeriesRequest) (*SeriesResult, error) {
	req, err := s.normalize(owner, req)
	if err != nil {
		return nil, err
	}
	if req.StartDate == "" {
		// Owner has no records at all.
		return &SeriesResult{
			StartDate: req.StartDate,
			EndDate:   req.EndDate,
			Currency:  req.Currency,
			Accounts:  domain.SeriesMap{},
			Groups:    domain.SeriesMap{},
		}, nil
	}

	key := CacheKey(req.StartDate, req.EndDate, req.Accounts, req.Currency)
	var cached SeriesResult
	if hit, err := s.cache.Get(owner, key, &cached); err != nil {
		s.log.Warn().Err(err).Msg("Cache read failed, recomputing")
	} else if hit {
		cached.Cached = true
		return &cached, nil
	}

	result, err := s.compute(owner, req)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Put(owner, key, result); err != nil {
		s.log.Warn().Err(err).Msg("Failed to cache result")
	}
	return result, nil
}

func (s *Service) compute(owner string, req SeriesRequest) (*SeriesResult, error) {
	start, err := domain.ParseDay(req.StartDate)
	if err != nil {
		return nil, fmt.Errorf("invalid start date %q: %w", req.StartDate, err)
	}
	end, err := domain.ParseDay(req.EndDate)
	if err != nil {
		return nil, fmt.Errorf("invalid end date %q: %w", req.EndDate, err)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("end date %s before start date %s", req.EndDate, req.StartDate)
	}

	// Load all records for the filtered accounts, not just the window:
	// observations outside the window anchor interpolation at its edges.
	records, err := s.repo.List(owner, req.Accounts, "", "")
	if err != nil {
		return nil, err
	}

	grouped, err := groupBySeries(records)
	if err != nil {
		return nil, err
	}

	pipe := newPipeline(s.rates, s.prices, req.Currency, s.log)
	accounts := make(domain.SeriesMap)

	for key, obs := range grouped {
		raw := Reconstruct(obs, start, end, key.Ticker != "")
		converted, err := pipe.Convert(key, raw)
		if err != nil {
			return nil, err
		}
		mergeInto(accounts, key.Account, converted)
	}

	cfg, err := s.groups.Config(owner)
	if err != nil {
		return nil, err
	}
	groups := aggregateGroups(accounts, cfg)
	if cfg.HideIgnored {
		for _, name := range cfg.IgnoreForTotal {
			delete(accounts, name)
		}
	}

	s.log.Debug().
		Str("owner", owner).
		Int("accounts", len(accounts)).
		Str("start", req.StartDate).
		Str("end", req.EndDate).
		Msg("Series computed")

	return &SeriesResult{
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Currency:  req.Currency,
		Accounts:  accounts,
		Groups:    groups,
	}, nil
}

// ValueOn computes the per-account value for one day, backward-filling
// before each account's first record so every account contributes. When
// group is non-empty only that group's members are included; "total"
// means all accounts minus the ignore list, "networth" means every
// account (minus the ignore list only when HideIgnored is set).
func (s *Service) ValueOn(owner, date, currency, group string) (*Snapshot, error) {
	day, err := domain.ParseDay(date)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", date, err)
	}

	cfg, err := s.groups.Config(owner)
	if err != nil {
		return nil, err
	}
	include, exclude, err := s.memberFilter(cfg, group)
	if err != nil {
		return nil, err
	}

	records, err := s.repo.List(owner, nil, "", "")
	if err != nil {
		return nil, err
	}

	grouped, err := groupBySeries(records)
	if err != nil {
		return nil, err
	}

	pipe := newPipeline(s.rates, s.prices, currency, s.log)
	values := make(map[string]float64)

	for key, obs := range grouped {
		if include != nil && !include[key.Account] {
			continue
		}
		if exclude[key.Account] {
			continue
		}
		raw, known := ValueAt(obs, day, key.Ticker != "")
		if !known {
			continue
		}
		converted, err := pipe.Convert(key, domain.DailySeries{date: raw})
		if err != nil {
			return nil, err
		}
		if v, ok := converted[date]; ok {
			values[key.Account] += v
		}
	}

	total := 0.0
	for _, v := range values {
		total += v
	}

	return &Snapshot{
		Date:     date,
		Currency: currency,
		Group:    group,
		Values:   values,
		Total:    total,
	}, nil
}

// Ingest appends records for an owner and invalidates the owner's
// cached results. All records land in one transaction.
func (s *Service) Ingest(owner string, records []domain.BalanceRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	for i := range records {
		rec := &records[i]
		rec.Owner = owner
		if rec.AccountName == "" {
			return 0, fmt.Errorf("record %d: account name is required", i)
		}
		if rec.Currency == "" {
			return 0, fmt.Errorf("record %d: currency is required", i)
		}
		if _, err := domain.ParseDay(rec.Date); err != nil {
			return 0, fmt.Errorf("record %d: invalid date %q: %w", i, rec.Date, err)
		}
	}

	err := database.WithTransaction(s.repo.db, func(tx *sql.Tx) error {
		return s.repo.AddBatch(tx, records)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to ingest records: %w", err)
	}

	if err := s.cache.Invalidate(owner); err != nil {
		s.log.Warn().Err(err).Msg("Cache invalidation failed after ingest")
	}
	if s.events != nil {
		s.events.Publish("balances.ingested", map[string]interface{}{
			"owner": owner,
			"count": len(records),
		})
	}

	s.log.Info().Str("owner", owner).Int("records", len(records)).Msg("Balance records ingested")
	return len(records), nil
}

// Accounts lists the owner's known account names.
func (s *Service) Accounts(owner string) ([]string, error) {
	return s.repo.Accounts(owner)
}

// Tickers lists the owner's distinct security symbols.
func (s *Service) Tickers(owner string) ([]string, error) {
	return s.repo.Tickers(owner)
}

// Currencies lists the distinct record currencies for the owner.
func (s *Service) Currencies(owner string) ([]string, error) {
	return s.repo.Currencies(owner)
}

// normalize fills request defaults: full recorded range when dates are
// missing, end clamped to today.
func (s *Service) normalize(owner string, req SeriesRequest) (SeriesRequest, error) {
	if req.StartDate == "" || req.EndDate == "" {
		first, last, ok, err := s.repo.DateRange(owner)
		if err != nil {
			return req, err
		}
		if !ok {
			return SeriesRequest{Currency: req.Currency}, nil
		}
		if req.StartDate == "" {
			req.StartDate = first
		}
		if req.EndDate == "" {
			today := domain.FormatDay(time.Now().UTC())
			if last > today {
				req.EndDate = last
			} else {
				req.EndDate = today
			}
		}
	}
	return req, nil
}

// memberFilter resolves a group name into an include set (nil means
// every account) and, for the synthetic totals, the ignore-list as an
// exclude set.
func (s *Service) memberFilter(cfg domain.GroupConfig, group string) (include, exclude map[string]bool, err error) {
	switch group {
	case "":
		return nil, nil, nil
	case "networth":
		if !cfg.HideIgnored {
			return nil, nil, nil
		}
		fallthrough
	case "total":
		exclude = make(map[string]bool, len(cfg.IgnoreForTotal))
		for _, name := range cfg.IgnoreForTotal {
			exclude[name] = true
		}
		return nil, exclude, nil
	default:
		members, ok := cfg.Groups[group]
		if !ok {
			return nil, nil, fmt.Errorf("unknown group %q", group)
		}
		include = make(map[string]bool, len(members))
		for _, m := range members {
			include[m] = true
		}
		return include, nil, nil
	}
}

// mergeInto adds one converted sub-series into an account's series,
// summing where days overlap. An account may have multiple sub-lots
// with different currencies or tickers.
func mergeInto(accounts domain.SeriesMap, account string, series domain.DailySeries) {
	dst, ok := accounts[account]
	if !ok {
		dst = make(domain.DailySeries, len(series))
		accounts[account] = dst
	}
	for day, v := range series {
		dst[day] += v
	}
}

// aggregateGroups builds the named group series plus the two synthetic
// totals: "networth" sums every account, "total" leaves out the
// ignore-list (bridge accounts, double-counted holdings). Ignored
// accounts stay visible individually unless HideIgnored is set, in
// which case they vanish from "networth" as well.
func aggregateGroups(accounts domain.SeriesMap, cfg domain.GroupConfig) domain.SeriesMap {
	groups := make(domain.SeriesMap)

	for name, members := range cfg.Groups {
		series := make(domain.DailySeries)
		for _, member := range members {
			for day, v := range accounts[member] {
				series[day] += v
			}
		}
		groups[name] = series
	}

	ignored := make(map[string]bool, len(cfg.IgnoreForTotal))
	for _, name := range cfg.IgnoreForTotal {
		ignored[name] = true
	}

	everything := make(domain.DailySeries)
	principal := make(domain.DailySeries)
	for account, series := range accounts {
		for day, v := range series {
			if !ignored[account] {
				principal[day] += v
			}
			everything[day] += v
		}
	}

	groups["total"] = principal
	if cfg.HideIgnored {
		groups["networth"] = principal
	} else {
		groups["networth"] = everything
	}

	return groups
}
