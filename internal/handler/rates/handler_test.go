package rates

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/claritydx/feesched-api/internal/model"
	"github.com/claritydx/feesched-api/internal/service/query"
)

type fakeQueryService struct {
	observations []query.RateObservation
	stats        *query.StatsResult
	err          error
}

func (f *fakeQueryService) Query(ctx context.Context, state, procedureCode string) ([]query.RateObservation, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.observations, nil
}

func (f *fakeQueryService) Stats(ctx context.Context) (*query.StatsResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.stats, nil
}

func newTestRouter(svc query.QueryServicer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(svc).RegisterRoutes(r.Group("/api"))
	return r
}

func TestGetRates(t *testing.T) {
	provider := "Acme Health"
	svc := &fakeQueryService{observations: []query.RateObservation{
		{Provider: &provider, Rate: decimal.NewFromFloat(123.45), Date: "2024-05-01"},
		{Rate: decimal.NewFromFloat(99.99), Date: "2024-05-01"},
	}}
	r := newTestRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/rates/GA/99213", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), "response must be a bare array")
	require.Len(t, body, 2)
	assert.Equal(t, "Acme Health", body[0]["provider"])
	assert.Equal(t, "2024-05-01", body[0]["date"])
}

func TestGetRatesUnknownKeyIsEmptyArray(t *testing.T) {
	r := newTestRouter(&fakeQueryService{observations: []query.RateObservation{}})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/rates/ZZ/00000", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
}

func TestGetRatesLowercaseStateAccepted(t *testing.T) {
	r := newTestRouter(&fakeQueryService{observations: []query.RateObservation{}})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/rates/ga/99213", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetRatesRejectsBadState(t *testing.T) {
	r := newTestRouter(&fakeQueryService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/rates/GAX/99213", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetRatesStoreDown(t *testing.T) {
	r := newTestRouter(&fakeQueryService{err: errors.New("connection refused")})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/rates/GA/99213", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusInternalServerError, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.NotContains(t, body["error"], "connection refused", "internals stay server-side")
}

func TestGetStats(t *testing.T) {
	svc := &fakeQueryService{stats: &query.StatsResult{
		PopularRates: []query.PopularRate{{State: "GA", ProcedureCode: "99213", Accesses: 42}},
		CacheStats:   model.CacheStats{TotalQueries: 10, CacheHits: 7, HitRate: 70},
	}}
	r := newTestRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		PopularRates []query.PopularRate `json:"popular_rates"`
		CacheStats   model.CacheStats    `json:"cache_stats"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.PopularRates, 1)
	assert.Equal(t, int64(42), body.PopularRates[0].Accesses)
	assert.Equal(t, float64(70), body.CacheStats.HitRate)
}
