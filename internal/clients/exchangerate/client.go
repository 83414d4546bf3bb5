// Package exchangerate provides currency exchange rate fetching with a
// stale-tolerant persistent cache.
package exchangerate

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/networth/internal/clientdata"
)

// Client for exchangerate-api.com
type Client struct {
	baseURL   string
	client    *http.Client
	log       zerolog.Logger
	cacheRepo *clientdata.Repository
}

// NewClient creates a new exchangerate-api.com client.
// cacheRepo is optional; when nil, caching is disabled.
func NewClient(baseURL string, cacheRepo *clientdata.Repository, log zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = "https://api.exchangerate-api.com/v4/latest"
	}
	return &Client{
		baseURL:   baseURL,
		client:    &http.Client{Timeout: 10 * time.Second},
		log:       log.With().Str("client", "exchangerate-api").Logger(),
		cacheRepo: cacheRepo,
	}
}

// cachedRates is the structure stored in the cache.
type cachedRates struct {
	Rates map[string]float64 `json:"rates"`
}

// Latest fetches today's rates for one base currency: 1 unit of base =
// Rates[X] units of X. If the API fails, stale cached data is returned
// when available (stale data > no data).
func (c *Client) Latest(base string) (map[string]float64, error) {
	// Check persistent cache for fresh data
	if c.cacheRepo != nil {
		data, err := c.cacheRepo.GetIfFresh("exchangerate", base)
		if err == nil && data != nil {
			var cached cachedRates
			if err := json.Unmarshal(data, &cached); err == nil {
				c.log.Debug().Str("base", base).Int("rates", len(cached.Rates)).Msg("Cache hit")
				return cached.Rates, nil
			}
		}
	}

	url := fmt.Sprintf("%s/%s", c.baseURL, base)
	c.log.Debug().Str("url", url).Msg("Fetching rates")

	resp, err := c.client.Get(url)
	if err != nil {
		if stale, ok := c.getStaleFromCache(base); ok {
			c.log.Warn().Err(err).Str("base", base).Msg("API failed, using stale cached rates")
			return stale, nil
		}
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if stale, ok := c.getStaleFromCache(base); ok {
			c.log.Warn().Int("status", resp.StatusCode).Str("base", base).Msg("API error, using stale cached rates")
			return stale, nil
		}
		return nil, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	var result struct {
		Rates map[string]float64 `json:"rates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		if stale, ok := c.getStaleFromCache(base); ok {
			c.log.Warn().Err(err).Str("base", base).Msg("Failed to parse API response, using stale cached rates")
			return stale, nil
		}
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(result.Rates) == 0 {
		return nil, fmt.Errorf("no rates in response for %s", base)
	}

	if c.cacheRepo != nil {
		if err := c.cacheRepo.Store("exchangerate", base, cachedRates{Rates: result.Rates}, clientdata.TTLExchangeRate); err != nil {
			c.log.Warn().Err(err).Str("base", base).Msg("Failed to cache exchange rates")
		}
	}

	c.log.Info().Str("base", base).Int("rates", len(result.Rates)).Msg("Fetched rates")
	return result.Rates, nil
}

// getStaleFromCache retrieves cached rates even if expired.
func (c *Client) getStaleFromCache(base string) (map[string]float64, bool) {
	if c.cacheRepo == nil {
		return nil, false
	}
	data, err := c.cacheRepo.Get("exchangerate", base)
	if err != nil || data == nil {
		return nil, false
	}
	var cached cachedRates
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, false
	}
	return cached.Rates, true
}
