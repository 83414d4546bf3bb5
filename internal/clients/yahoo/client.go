// Package yahoo provides a Yahoo Finance chart API client for daily
// closing prices.
package yahoo

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/networth/internal/clientdata"
	"github.com/aristath/networth/internal/domain"
)

// Candle is one daily close for a symbol.
type Candle struct {
	Date  string  `json:"date"`
	Close float64 `json:"close"`
}

// History is a symbol's daily close series with its quote currency.
type History struct {
	Symbol   string   `json:"symbol"`
	Currency string   `json:"currency"`
	Candles  []Candle `json:"candles"`
}

// Client is a Yahoo Finance chart API client
type Client struct {
	baseURL   string
	client    *http.Client
	log       zerolog.Logger
	cacheRepo *clientdata.Repository
}

// NewClient creates a new Yahoo Finance client.
// cacheRepo is optional; when nil, caching is disabled.
func NewClient(baseURL string, cacheRepo *clientdata.Repository, log zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = "https://query1.finance.yahoo.com/v8/finance/chart"
	}
	return &Client{
		baseURL:   baseURL,
		client:    &http.Client{Timeout: 30 * time.Second},
		log:       log.With().Str("client", "yahoo").Logger(),
		cacheRepo: cacheRepo,
	}
}

// DailyHistory fetches daily closes for a symbol over a Yahoo range
// string such as "1mo", "1y" or "max".
func (c *Client) DailyHistory(symbol, rng string) (*History, error) {
	cacheKey := symbol + "|" + rng

	if c.cacheRepo != nil {
		data, err := c.cacheRepo.GetIfFresh("yahoo_chart", cacheKey)
		if err == nil && data != nil {
			var cached History
			if err := json.Unmarshal(data, &cached); err == nil {
				c.log.Debug().Str("symbol", symbol).Msg("Cache hit")
				return &cached, nil
			}
		}
	}

	history, err := c.fetch(symbol, rng)
	if err != nil {
		if stale, ok := c.getStaleFromCache(cacheKey); ok {
			c.log.Warn().Err(err).Str("symbol", symbol).Msg("API failed, using stale cached history")
			return stale, nil
		}
		return nil, err
	}

	if c.cacheRepo != nil {
		if err := c.cacheRepo.Store("yahoo_chart", cacheKey, history, clientdata.TTLChart); err != nil {
			c.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to cache history")
		}
	}
	return history, nil
}

func (c *Client) fetch(symbol, rng string) (*History, error) {
	params := url.Values{}
	params.Add("interval", "1d")
	params.Add("range", rng)
	reqURL := c.baseURL + "/" + url.PathEscape(symbol) + "?" + params.Encode()

	req, err := http.NewRequest(http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch history: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("Yahoo Finance API returned status %d: %s", resp.StatusCode, string(body))
	}

	var result struct {
		Chart struct {
			Result []struct {
				Meta struct {
					Currency string `json:"currency"`
				} `json:"meta"`
				Timestamp  []int64 `json:"timestamp"`
				Indicators struct {
					Quote []struct {
						Close []float64 `json:"close"`
					} `json:"quote"`
				} `json:"indicators"`
			} `json:"result"`
			Error interface{} `json:"error"`
		} `json:"chart"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(result.Chart.Result) == 0 {
		return nil, fmt.Errorf("no chart data for %s", symbol)
	}

	chart := result.Chart.Result[0]
	if len(chart.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("no quote data for %s", symbol)
	}
	closes := chart.Indicators.Quote[0].Close

	history := &History{
		Symbol:   symbol,
		Currency: chart.Meta.Currency,
		Candles:  make([]Candle, 0, len(chart.Timestamp)),
	}
	for i, ts := range chart.Timestamp {
		if i >= len(closes) {
			break
		}
		// Market holidays produce null closes.
		if closes[i] == 0 {
			continue
		}
		history.Candles = append(history.Candles, Candle{
			Date:  domain.FormatDay(time.Unix(ts, 0).UTC()),
			Close: closes[i],
		})
	}

	c.log.Info().
		Str("symbol", symbol).
		Str("currency", history.Currency).
		Int("candles", len(history.Candles)).
		Msg("Fetched price history")
	return history, nil
}

func (c *Client) getStaleFromCache(cacheKey string) (*History, bool) {
	if c.cacheRepo == nil {
		return nil, false
	}
	data, err := c.cacheRepo.Get("yahoo_chart", cacheKey)
	if err != nil || data == nil {
		return nil, false
	}
	var cached History
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, false
	}
	return &cached, true
}
