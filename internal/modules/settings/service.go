package settings

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/aristath/networth/internal/domain"
)

// Service wraps the repository with typed accessors for the settings
// the engine cares about.
type Service struct {
	repo            *Repository
	defaultCurrency string
	events          domain.EventPublisher
	log             zerolog.Logger
}

// NewService creates a new settings service
func NewService(repo *Repository, defaultCurrency string, events domain.EventPublisher, log zerolog.Logger) *Service {
	return &Service{
		repo:            repo,
		defaultCurrency: defaultCurrency,
		events:          events,
		log:             log.With().Str("service", "settings").Logger(),
	}
}

// MainCurrency returns the configured display currency.
func (s *Service) MainCurrency() (string, error) {
	return s.repo.GetString(KeyMainCurrency, s.defaultCurrency)
}

// SetMainCurrency stores the display currency. Callers are expected to
// invalidate computed results afterwards; stored values do not change.
func (s *Service) SetMainCurrency(currency string) error {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if len(currency) != 3 {
		return fmt.Errorf("invalid currency code %q", currency)
	}
	if err := s.repo.Set(KeyMainCurrency, currency); err != nil {
		return err
	}
	if s.events != nil {
		s.events.Publish("settings.currency_changed", map[string]interface{}{
			"currency": currency,
		})
	}
	s.log.Info().Str("currency", currency).Msg("Main currency updated")
	return nil
}

// IgnoreForTotal returns the accounts excluded from the net worth total.
func (s *Service) IgnoreForTotal() ([]string, error) {
	return s.repo.GetStringSlice(KeyIgnoreForTotal)
}

// SetIgnoreForTotal replaces the ignore list.
func (s *Service) SetIgnoreForTotal(accounts []string) error {
	return s.repo.SetStringSlice(KeyIgnoreForTotal, accounts)
}

// HideIgnored reports whether ignored accounts are hidden entirely
// instead of just left out of the total.
func (s *Service) HideIgnored() (bool, error) {
	return s.repo.GetBool(KeyHideIgnored, false)
}

// SetHideIgnored stores the hide flag.
func (s *Service) SetHideIgnored(hide bool) error {
	if hide {
		return s.repo.Set(KeyHideIgnored, "true")
	}
	return s.repo.Set(KeyHideIgnored, "false")
}

// All returns every stored setting for the settings endpoint.
func (s *Service) All() (map[string]string, error) {
	return s.repo.All()
}
