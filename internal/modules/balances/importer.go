package balances

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/aristath/networth/internal/domain"
)

// ParseCSV reads balance records from CSV input. The first row must be
// a header naming at least account, date and balance columns; currency
// and ticker are optional. Amounts are parsed as decimals so values
// like "1,234.56" from spreadsheet exports survive the trip exactly.
func ParseCSV(r io.Reader, defaultCurrency string) ([]domain.BalanceRecord, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"account", "date", "balance"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("CSV is missing required column %q", required)
		}
	}

	var records []domain.BalanceRecord
	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV line %d: %w", line, err)
		}

		rec, err := parseRow(row, cols, defaultCurrency)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// parseAmount decodes a spreadsheet-flavoured amount: thousands
// separators, a currency-symbol prefix and accounting-style
// parenthesized negatives are all accepted.
func parseAmount(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	negative := false
	if strings.HasPrefix(raw, "(") && strings.HasSuffix(raw, ")") {
		negative = true
		raw = raw[1 : len(raw)-1]
	}
	raw = strings.Map(func(r rune) rune {
		switch r {
		case ',', ' ', '$', '€', '£', '¥':
			return -1
		}
		return r
	}, raw)

	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if negative {
		amount = amount.Neg()
	}
	return amount, nil
}

func parseRow(row []string, cols map[string]int, defaultCurrency string) (domain.BalanceRecord, error) {
	field := func(name string) string {
		idx, ok := cols[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	account := field("account")
	if account == "" {
		return domain.BalanceRecord{}, fmt.Errorf("account is empty")
	}
	date := field("date")
	if _, err := domain.ParseDay(date); err != nil {
		return domain.BalanceRecord{}, fmt.Errorf("invalid date %q: %w", date, err)
	}

	amount, err := parseAmount(field("balance"))
	if err != nil {
		return domain.BalanceRecord{}, fmt.Errorf("invalid balance %q: %w", field("balance"), err)
	}

	currency := strings.ToUpper(field("currency"))
	if currency == "" {
		currency = defaultCurrency
	}

	balance, _ := amount.Float64()
	return domain.BalanceRecord{
		AccountName: account,
		Date:        date,
		Balance:     balance,
		Currency:    currency,
		Ticker:      strings.ToUpper(field("ticker")),
	}, nil
}
