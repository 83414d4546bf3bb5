package groups

import (
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/aristath/networth/internal/domain"
)

// SettingsSource provides the grouping-related settings.
type SettingsSource interface {
	IgnoreForTotal() ([]string, error)
	HideIgnored() (bool, error)
}

// ResultsInvalidator drops an owner's computed balance results. Group
// membership feeds into every group series, so a mutation makes any
// cached series stale immediately, not just at the next ingest.
type ResultsInvalidator interface {
	Invalidate(owner string) error
}

// Reserved group names that collide with the synthetic total series.
var reservedNames = map[string]bool{
	"total":    true,
	"networth": true,
}

// Service manages account groups and assembles the GroupConfig consumed
// by aggregation. Assembled configs are cached per owner and dropped on
// any group or settings mutation.
type Service struct {
	repo     *Repository
	settings SettingsSource
	results  ResultsInvalidator
	events   domain.EventPublisher
	log      zerolog.Logger

	mu      sync.RWMutex
	configs map[string]domain.GroupConfig
}

// NewService creates a new groups service
func NewService(repo *Repository, settings SettingsSource, results ResultsInvalidator, events domain.EventPublisher, log zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		settings: settings,
		results:  results,
		events:   events,
		log:      log.With().Str("service", "groups").Logger(),
		configs:  make(map[string]domain.GroupConfig),
	}
}

// Config assembles the grouping configuration for an owner, read-through
// cached until the next mutation.
func (s *Service) Config(owner string) (domain.GroupConfig, error) {
	s.mu.RLock()
	cfg, ok := s.configs[owner]
	s.mu.RUnlock()
	if ok {
		return cfg, nil
	}

	groups, err := s.repo.List(owner)
	if err != nil {
		return domain.GroupConfig{}, err
	}
	ignore, err := s.settings.IgnoreForTotal()
	if err != nil {
		return domain.GroupConfig{}, err
	}
	hide, err := s.settings.HideIgnored()
	if err != nil {
		return domain.GroupConfig{}, err
	}

	cfg = domain.GroupConfig{
		Groups:         make(map[string][]string, len(groups)),
		IgnoreForTotal: ignore,
		HideIgnored:    hide,
	}
	for _, g := range groups {
		cfg.Groups[g.Name] = g.Members
	}

	s.mu.Lock()
	s.configs[owner] = cfg
	s.mu.Unlock()
	return cfg, nil
}

// InvalidateConfig drops the cached config for an owner. Settings
// handlers call this when grouping settings change out of band.
func (s *Service) InvalidateConfig(owner string) {
	s.mu.Lock()
	delete(s.configs, owner)
	s.mu.Unlock()
}

// Create adds a group after validating the name is usable.
func (s *Service) Create(owner, name string, members []string) (*Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("group name is required")
	}
	if reservedNames[strings.ToLower(name)] {
		return nil, fmt.Errorf("group name %q is reserved", name)
	}

	group, err := s.repo.Create(owner, name, members)
	if err != nil {
		return nil, err
	}
	s.afterMutation(owner, "groups.created")
	return group, nil
}

// Update replaces a group's name and members.
func (s *Service) Update(owner, id, name string, members []string) (*Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("group name is required")
	}
	if reservedNames[strings.ToLower(name)] {
		return nil, fmt.Errorf("group name %q is reserved", name)
	}

	ok, err := s.repo.Update(owner, id, name, members)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	s.afterMutation(owner, "groups.updated")
	return s.repo.Get(owner, id)
}

// Delete removes a group. ok is false when the group did not exist.
func (s *Service) Delete(owner, id string) (bool, error) {
	ok, err := s.repo.Delete(owner, id)
	if err != nil {
		return false, err
	}
	if ok {
		s.afterMutation(owner, "groups.deleted")
	}
	return ok, nil
}

// Get returns one group, or nil when not found.
func (s *Service) Get(owner, id string) (*Group, error) {
	return s.repo.Get(owner, id)
}

// List returns all groups for an owner.
func (s *Service) List(owner string) ([]Group, error) {
	return s.repo.List(owner)
}

func (s *Service) afterMutation(owner, event string) {
	s.InvalidateConfig(owner)
	if s.results != nil {
		if err := s.results.Invalidate(owner); err != nil {
			s.log.Warn().Err(err).Str("owner", owner).Msg("Result cache invalidation failed after group change")
		}
	}
	if s.events != nil {
		s.events.Publish(event, map[string]interface{}{"owner": owner})
	}
}
