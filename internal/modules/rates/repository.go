// Package rates provides FX rate storage and date-aware rate lookup.
package rates

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"
)

// RateEntry is one stored rate table row: 1 unit of Base = Rate units of Target.
type RateEntry struct {
	Date   string  `json:"date"`
	Base   string  `json:"base_currency"`
	Target string  `json:"target_currency"`
	Rate   float64 `json:"rate"`
}

// Repository handles exchange_rates table operations in rates.db.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new rates repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "rates").Logger(),
	}
}

// Upsert stores a rate, replacing any existing row for the same
// (date, base, target) triple.
func (r *Repository) Upsert(entry RateEntry) error {
	_, err := r.db.Exec(`
		INSERT OR REPLACE INTO exchange_rates (date, base_currency, target_currency, rate)
		VALUES (?, ?, ?, ?)
	`, entry.Date, entry.Base, entry.Target, entry.Rate)
	if err != nil {
		return fmt.Errorf("failed to upsert rate %s->%s on %s: %w", entry.Base, entry.Target, entry.Date, err)
	}
	return nil
}

// Exact returns the rate recorded for exactly this date and pair.
// ok is false when no such row exists.
func (r *Repository) Exact(date, base, target string) (float64, bool, error) {
	var rate float64
	err := r.db.QueryRow(`
		SELECT rate FROM exchange_rates
		WHERE date = ? AND base_currency = ? AND target_currency = ?
	`, date, base, target).Scan(&rate)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to query rate %s->%s on %s: %w", base, target, date, err)
	}
	return rate, true, nil
}

// NearestPrior returns the most recent rate recorded at or before date.
func (r *Repository) NearestPrior(date, base, target string) (float64, bool, error) {
	var rate float64
	err := r.db.QueryRow(`
		SELECT rate FROM exchange_rates
		WHERE date <= ? AND base_currency = ? AND target_currency = ?
		ORDER BY date DESC
		LIMIT 1
	`, date, base, target).Scan(&rate)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to query prior rate %s->%s before %s: %w", base, target, date, err)
	}
	return rate, true, nil
}

// NearestNext returns the earliest rate recorded at or after date.
func (r *Repository) NearestNext(date, base, target string) (float64, bool, error) {
	var rate float64
	err := r.db.QueryRow(`
		SELECT rate FROM exchange_rates
		WHERE date >= ? AND base_currency = ? AND target_currency = ?
		ORDER BY date ASC
		LIMIT 1
	`, date, base, target).Scan(&rate)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to query next rate %s->%s after %s: %w", base, target, date, err)
	}
	return rate, true, nil
}

// Currencies returns all currency codes present in the rate table.
func (r *Repository) Currencies() ([]string, error) {
	rows, err := r.db.Query(`
		SELECT DISTINCT base_currency FROM exchange_rates
		UNION
		SELECT DISTINCT target_currency FROM exchange_rates
		ORDER BY 1
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query currencies: %w", err)
	}
	defer rows.Close()

	var currencies []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("failed to scan currency: %w", err)
		}
		currencies = append(currencies, c)
	}
	return currencies, rows.Err()
}
