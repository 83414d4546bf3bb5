package exchangerate

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/aristath/networth/internal/clientdata"
	"github.com/aristath/networth/pkg/logger"
)

func setupCacheRepo(t *testing.T) *clientdata.Repository {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	_, err = db.Exec(`
		CREATE TABLE exchangerate (
			cache_key TEXT PRIMARY KEY,
			data TEXT NOT NULL,
			expires_at INTEGER NOT NULL
		)
	`)
	require.NoError(t, err)
	return clientdata.NewRepository(db)
}

func TestLatest_FetchesAndCaches(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		assert.Equal(t, "/CAD", r.URL.Path)
		w.Write([]byte(`{"base": "CAD", "rates": {"USD": 0.74, "EUR": 0.68}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, setupCacheRepo(t), logger.Disabled())

	rates, err := client.Latest("CAD")
	require.NoError(t, err)
	assert.Equal(t, 0.74, rates["USD"])

	// Second call is served from cache.
	rates, err = client.Latest("CAD")
	require.NoError(t, err)
	assert.Equal(t, 0.68, rates["EUR"])
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestLatest_StaleFallbackOnAPIError(t *testing.T) {
	repo := setupCacheRepo(t)
	require.NoError(t, repo.Store("exchangerate", "CAD", map[string]interface{}{
		"rates": map[string]float64{"USD": 0.73},
	}, -1)) // already expired

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, repo, logger.Disabled())

	rates, err := client.Latest("CAD")
	require.NoError(t, err)
	assert.Equal(t, 0.73, rates["USD"])
}

func TestLatest_ErrorWithoutCache(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, logger.Disabled())
	_, err := client.Latest("CAD")
	assert.Error(t, err)
}
