// Package domain provides core domain models and types.
package domain

import "time"

// DayFormat is the calendar-day layout used across the engine.
// All dates are day-granular; no time component is ever stored.
const DayFormat = "2006-01-02"

// DefaultOwner is used when a request carries no owner identifier.
const DefaultOwner = "default"

// BalanceRecord is one observed balance data point for an account.
// When Ticker is empty the balance is a cash amount in Currency;
// otherwise it is a unit count of the security identified by Ticker.
type BalanceRecord struct {
	ID          int64   `json:"id,omitempty"`
	Owner       string  `json:"owner,omitempty"`
	AccountName string  `json:"account_name"`
	Date        string  `json:"date"` // YYYY-MM-DD
	Balance     float64 `json:"balance"`
	Currency    string  `json:"currency"`
	Ticker      string  `json:"ticker,omitempty"`
}

// SeriesKey identifies one independently-reconstructed balance history.
// A single account may have several concurrent series (cash sub-balance
// plus one per security holding); their daily values sum into the account.
type SeriesKey struct {
	Account  string
	Currency string
	Ticker   string
}

// DailySeries maps YYYY-MM-DD dates to values in the target currency.
type DailySeries map[string]float64

// SeriesMap is the engine's output shape: account or group name to its
// dense daily series, all values already in the target currency.
type SeriesMap map[string]DailySeries

// GroupConfig is the explicit group configuration passed into aggregation.
// It is assembled by the groups service from stored groups and settings;
// deep engine logic never reads ambient state.
type GroupConfig struct {
	// Groups maps group name to member account names. Members may
	// reference accounts with no balance data yet.
	Groups map[string][]string
	// IgnoreForTotal lists accounts excluded from the synthetic
	// "total" group (bridge accounts, double-counted holdings).
	IgnoreForTotal []string
	// HideIgnored also removes ignored accounts from group membership
	// display, not only from the sum.
	HideIgnored bool
}

// ParseDay parses a YYYY-MM-DD string into a UTC day.
func ParseDay(s string) (time.Time, error) {
	return time.Parse(DayFormat, s)
}

// FormatDay renders a time as YYYY-MM-DD.
func FormatDay(t time.Time) string {
	return t.Format(DayFormat)
}

// DaysBetween returns the number of calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}
