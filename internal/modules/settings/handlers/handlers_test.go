package handlers

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/aristath/networth/internal/modules/settings"
	"github.com/aristath/networth/pkg/logger"
)

type staticRates struct{}

func (staticRates) Currencies() ([]string, error) { return []string{"USD", "EUR"}, nil }

type recordingGroups struct {
	owners []string
}

func (r *recordingGroups) InvalidateConfig(owner string) {
	r.owners = append(r.owners, owner)
}

type recordingResults struct {
	owners []string
}

func (r *recordingResults) Invalidate(owner string) error {
	r.owners = append(r.owners, owner)
	return nil
}

func newTestHandler(t *testing.T, groups *recordingGroups, results *recordingResults) http.Handler {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)
	`)
	require.NoError(t, err)

	log := logger.Disabled()
	svc := settings.NewService(settings.NewRepository(db, log), "CAD", nil, log)
	handler := NewHandler(svc, staticRates{}, groups, results, "CAD", log)

	router := chi.NewRouter()
	router.Route("/api", func(r chi.Router) {
		handler.RegisterRoutes(r)
	})
	return router
}

func TestHandleSetIgnoreForTotal_DropsCachedState(t *testing.T) {
	groups := &recordingGroups{}
	results := &recordingResults{}
	router := newTestHandler(t, groups, results)

	body := `{"accounts":["Bridge"],"hide_ignored":false}`
	req := httptest.NewRequest(http.MethodPut, "/api/settings/ignore-for-total", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	// The ignore-list shapes the synthetic totals, so both the grouping
	// config and the owner's computed series must be flushed.
	assert.Equal(t, []string{"default"}, groups.owners)
	assert.Equal(t, []string{"default"}, results.owners)
}

func TestHandleSetCurrency_RoundTrip(t *testing.T) {
	router := newTestHandler(t, &recordingGroups{}, &recordingResults{})

	req := httptest.NewRequest(http.MethodPost, "/api/currency", strings.NewReader(`{"currency":"usd"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/currency", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"USD"`)
}
