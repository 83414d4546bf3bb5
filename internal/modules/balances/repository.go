package balances

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/aristath/networth/internal/domain"
)

// Repository handles account_balances table operations in finance.db.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new balances repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "balances").Logger(),
	}
}

// Add inserts one balance record. Records are append-only; the same
// (account, date) may appear multiple times and readers sum them.
func (r *Repository) Add(rec domain.BalanceRecord) (int64, error) {
	result, err := r.db.Exec(`
		INSERT INTO account_balances (owner, account_name, date, balance, currency, ticker)
		VALUES (?, ?, ?, ?, ?, ?)
	`, rec.Owner, rec.AccountName, rec.Date, rec.Balance, rec.Currency, rec.Ticker)
	if err != nil {
		return 0, fmt.Errorf("failed to insert balance for %s: %w", rec.AccountName, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get balance insert id: %w", err)
	}
	return id, nil
}

// AddBatch inserts many records in one transaction.
func (r *Repository) AddBatch(tx *sql.Tx, recs []domain.BalanceRecord) error {
	stmt, err := tx.Prepare(`
		INSERT INTO account_balances (owner, account_name, date, balance, currency, ticker)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare balance insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range recs {
		if _, err := stmt.Exec(rec.Owner, rec.AccountName, rec.Date, rec.Balance, rec.Currency, rec.Ticker); err != nil {
			return fmt.Errorf("failed to insert balance for %s on %s: %w", rec.AccountName, rec.Date, err)
		}
	}
	return nil
}

// List returns records for an owner ordered by date ascending. accounts
// narrows to the named accounts when non-empty. The range is inclusive;
// records outside it are still needed for interpolation anchoring, so
// callers usually pass an empty range and let the reconstructor clamp.
func (r *Repository) List(owner string, accounts []string, startDate, endDate string) ([]domain.BalanceRecord, error) {
	query := `
		SELECT id, owner, account_name, date, balance, currency, ticker
		FROM account_balances
		WHERE owner = ?
	`
	args := []interface{}{owner}

	if len(accounts) > 0 {
		placeholders := strings.Repeat("?,", len(accounts))
		query += fmt.Sprintf(" AND account_name IN (%s)", placeholders[:len(placeholders)-1])
		for _, a := range accounts {
			args = append(args, a)
		}
	}
	if startDate != "" {
		query += " AND date >= ?"
		args = append(args, startDate)
	}
	if endDate != "" {
		query += " AND date <= ?"
		args = append(args, endDate)
	}
	query += " ORDER BY date ASC, id ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query balances: %w", err)
	}
	defer rows.Close()

	var records []domain.BalanceRecord
	for rows.Next() {
		var rec domain.BalanceRecord
		if err := rows.Scan(&rec.ID, &rec.Owner, &rec.AccountName, &rec.Date, &rec.Balance, &rec.Currency, &rec.Ticker); err != nil {
			return nil, fmt.Errorf("failed to scan balance: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Accounts returns the distinct account names recorded for an owner.
func (r *Repository) Accounts(owner string) ([]string, error) {
	rows, err := r.db.Query(`
		SELECT DISTINCT account_name FROM account_balances
		WHERE owner = ?
		ORDER BY account_name
	`, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan account name: %w", err)
		}
		accounts = append(accounts, name)
	}
	return accounts, rows.Err()
}

// DateRange returns the earliest and latest recorded dates for an owner.
// ok is false when the owner has no records.
func (r *Repository) DateRange(owner string) (first, last string, ok bool, err error) {
	var min, max sql.NullString
	err = r.db.QueryRow(`
		SELECT MIN(date), MAX(date) FROM account_balances WHERE owner = ?
	`, owner).Scan(&min, &max)
	if err != nil {
		return "", "", false, fmt.Errorf("failed to query date range: %w", err)
	}
	if !min.Valid {
		return "", "", false, nil
	}
	return min.String, max.String, true, nil
}

// Tickers returns the distinct non-empty tickers recorded for an owner.
func (r *Repository) Tickers(owner string) ([]string, error) {
	rows, err := r.db.Query(`
		SELECT DISTINCT ticker FROM account_balances
		WHERE owner = ? AND ticker != ''
		ORDER BY ticker
	`, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to query tickers: %w", err)
	}
	defer rows.Close()

	var tickers []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("failed to scan ticker: %w", err)
		}
		tickers = append(tickers, t)
	}
	return tickers, rows.Err()
}

// AllTickers returns the distinct non-empty tickers across all owners.
// Used by the price sync job.
func (r *Repository) AllTickers() ([]string, error) {
	rows, err := r.db.Query(`
		SELECT DISTINCT ticker FROM account_balances
		WHERE ticker != ''
		ORDER BY ticker
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query all tickers: %w", err)
	}
	defer rows.Close()

	var tickers []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("failed to scan ticker: %w", err)
		}
		tickers = append(tickers, t)
	}
	return tickers, rows.Err()
}

// AllCurrencies returns the distinct record currencies across all
// owners. Used by the rate sync job.
func (r *Repository) AllCurrencies() ([]string, error) {
	rows, err := r.db.Query(`SELECT DISTINCT currency FROM account_balances ORDER BY currency`)
	if err != nil {
		return nil, fmt.Errorf("failed to query all currencies: %w", err)
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

// Currencies returns the distinct record currencies for an owner.
func (r *Repository) Currencies(owner string) ([]string, error) {
	rows, err := r.db.Query(`
		SELECT DISTINCT currency FROM account_balances
		WHERE owner = ?
		ORDER BY currency
	`, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to query balance currencies: %w", err)
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
