package balances

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCSV_BasicRecords(t *testing.T) {
	input := `account,date,balance,currency,ticker
Chequing,2024-01-01,1234.56,CAD,
Broker,2024-01-01,10.5,usd,vti
`
	records, err := ParseCSV(strings.NewReader(input), "CAD")
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "Chequing", records[0].AccountName)
	assert.InDelta(t, 1234.56, records[0].Balance, 1e-9)
	assert.Equal(t, "CAD", records[0].Currency)
	assert.Empty(t, records[0].Ticker)

	assert.Equal(t, "USD", records[1].Currency)
	assert.Equal(t, "VTI", records[1].Ticker)
}

func TestParseCSV_DefaultCurrencyAndThousandsSeparators(t *testing.T) {
	input := "account,date,balance\nSavings,2024-01-01,\"1,234,567.89\"\n"
	records, err := ParseCSV(strings.NewReader(input), "EUR")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "EUR", records[0].Currency)
	assert.InDelta(t, 1234567.89, records[0].Balance, 1e-6)
}

func TestParseCSV_CurrencySymbolsAndAccountingNegatives(t *testing.T) {
	input := "account,date,balance\n" +
		"Chequing,2024-01-01,\"$1,234.56\"\n" +
		"Visa,2024-01-01,\"($250.00)\"\n" +
		"Euro Savings,2024-01-01,€500.00\n" +
		"Margin,2024-01-01,-$75.25\n"
	records, err := ParseCSV(strings.NewReader(input), "CAD")
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.InDelta(t, 1234.56, records[0].Balance, 1e-6)
	assert.InDelta(t, -250.0, records[1].Balance, 1e-6)
	assert.InDelta(t, 500.0, records[2].Balance, 1e-6)
	assert.InDelta(t, -75.25, records[3].Balance, 1e-6)
}

func TestParseCSV_Rejections(t *testing.T) {
	_, err := ParseCSV(strings.NewReader("account,balance\nA,1\n"), "CAD")
	assert.Error(t, err, "missing date column")

	_, err = ParseCSV(strings.NewReader("account,date,balance\nA,2024-13-01,1\n"), "CAD")
	assert.Error(t, err, "invalid date")

	_, err = ParseCSV(strings.NewReader("account,date,balance\nA,2024-01-01,abc\n"), "CAD")
	assert.Error(t, err, "non-numeric balance")

	_, err = ParseCSV(strings.NewReader("account,date,balance\n,2024-01-01,1\n"), "CAD")
	assert.Error(t, err, "empty account")
}
