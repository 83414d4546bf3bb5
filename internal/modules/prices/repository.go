// Package prices provides security price storage and no-look-ahead lookup.
package prices

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"
)

// PriceEntry is one stored price row for a security.
type PriceEntry struct {
	Date     string  `json:"date"`
	Symbol   string  `json:"symbol"`
	Currency string  `json:"currency"`
	Price    float64 `json:"price"`
}

// Repository handles stock_prices table operations in rates.db.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new prices repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "prices").Logger(),
	}
}

// Upsert stores a price, replacing any existing row for (date, symbol).
func (r *Repository) Upsert(entry PriceEntry) error {
	_, err := r.db.Exec(`
		INSERT OR REPLACE INTO stock_prices (date, symbol, currency, price)
		VALUES (?, ?, ?, ?)
	`, entry.Date, entry.Symbol, entry.Currency, entry.Price)
	if err != nil {
		return fmt.Errorf("failed to upsert price for %s on %s: %w", entry.Symbol, entry.Date, err)
	}
	return nil
}

// LatestAtOrBefore returns the price and quote currency at the latest
// recorded date <= date. ok is false when the request predates all
// records for the symbol.
func (r *Repository) LatestAtOrBefore(date, symbol string) (float64, string, bool, error) {
	var price float64
	var currency string
	err := r.db.QueryRow(`
		SELECT price, currency FROM stock_prices
		WHERE date <= ? AND symbol = ?
		ORDER BY date DESC
		LIMIT 1
	`, date, symbol).Scan(&price, &currency)
	if err == sql.ErrNoRows {
		return 0, "", false, nil
	}
	if err != nil {
		return 0, "", false, fmt.Errorf("failed to query price for %s at %s: %w", symbol, date, err)
	}
	return price, currency, true, nil
}

// LatestDate returns the most recent recorded date for a symbol, or ""
// when the symbol has no history yet.
func (r *Repository) LatestDate(symbol string) (string, error) {
	var date string
	err := r.db.QueryRow(`
		SELECT date FROM stock_prices
		WHERE symbol = ?
		ORDER BY date DESC
		LIMIT 1
	`, symbol).Scan(&date)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query latest date for %s: %w", symbol, err)
	}
	return date, nil
}

// Symbols returns all symbols with at least one stored price.
func (r *Repository) Symbols() ([]string, error) {
	rows, err := r.db.Query(`SELECT DISTINCT symbol FROM stock_prices ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("failed to query symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		symbols = append(symbols, s)
	}
	return symbols, rows.Err()
}

// History returns all prices for a symbol in ascending date order.
func (r *Repository) History(symbol string) ([]PriceEntry, error) {
	rows, err := r.db.Query(`
		SELECT date, symbol, currency, price FROM stock_prices
		WHERE symbol = ?
		ORDER BY date ASC
	`, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to query history for %s: %w", symbol, err)
	}
	defer rows.Close()

	var entries []PriceEntry
	for rows.Next() {
		var e PriceEntry
		if err := rows.Scan(&e.Date, &e.Symbol, &e.Currency, &e.Price); err != nil {
			return nil, fmt.Errorf("failed to scan price: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
