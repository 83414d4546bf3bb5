package yahoo

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/networth/pkg/logger"
)

func chartResponse(currency string, points map[int64]float64) string {
	timestamps := ""
	closes := ""
	first := true
	// Deterministic order is not needed for the test assertions.
	for ts, close := range points {
		if !first {
			timestamps += ","
			closes += ","
		}
		timestamps += fmt.Sprintf("%d", ts)
		closes += fmt.Sprintf("%g", close)
		first = false
	}
	return fmt.Sprintf(`{
		"chart": {
			"result": [{
				"meta": {"currency": %q},
				"timestamp": [%s],
				"indicators": {"quote": [{"close": [%s]}]}
			}],
			"error": null
		}
	}`, currency, timestamps, closes)
}

func TestDailyHistory_ParsesChart(t *testing.T) {
	ts := time.Date(2024, 1, 5, 21, 0, 0, 0, time.UTC).Unix()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/VTI", r.URL.Path)
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))
		w.Write([]byte(chartResponse("USD", map[int64]float64{ts: 238.5})))
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, logger.Disabled())
	history, err := client.DailyHistory("VTI", "1mo")
	require.NoError(t, err)

	assert.Equal(t, "USD", history.Currency)
	require.Len(t, history.Candles, 1)
	assert.Equal(t, "2024-01-05", history.Candles[0].Date)
	assert.Equal(t, 238.5, history.Candles[0].Close)
}

func TestDailyHistory_SkipsNullCloses(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"chart": {
				"result": [{
					"meta": {"currency": "CAD"},
					"timestamp": [1704412800, 1704499200],
					"indicators": {"quote": [{"close": [null, 31.2]}]}
				}],
				"error": null
			}
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, logger.Disabled())
	history, err := client.DailyHistory("XEQT.TO", "5d")
	require.NoError(t, err)
	require.Len(t, history.Candles, 1)
	assert.Equal(t, 31.2, history.Candles[0].Close)
}

func TestDailyHistory_NoData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"chart": {"result": [], "error": null}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, logger.Disabled())
	_, err := client.DailyHistory("NOPE", "1mo")
	assert.Error(t, err)
}
