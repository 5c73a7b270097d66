package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RateHub/internal/domain/models"
	drepo "RateHub/internal/domain/repository"
	"RateHub/internal/service/health"
	"RateHub/internal/service/ratelimit"
	"RateHub/internal/usecase"
	"RateHub/pkg/cache"
	"RateHub/pkg/logger"
)

type stubAdapter struct {
	name    string
	quoteFn func(drepo.QuoteRequest) (drepo.Payload, error)
}

func (s *stubAdapter) Name() string                              { return s.name }
func (s *stubAdapter) Supports(drepo.QuoteRequest) bool          { return true }
func (s *stubAdapter) SupportsHistory(drepo.HistoryRequest) bool { return false }

func (s *stubAdapter) Quote(_ context.Context, req drepo.QuoteRequest) (drepo.Payload, error) {
	return s.quoteFn(req)
}

func (s *stubAdapter) History(context.Context, drepo.HistoryRequest) ([]models.Bar, error) {
	return nil, models.NewDataError(s.name, "history not supported")
}

type memHealthStore struct {
	records map[string]models.ProviderHealth
}

func (s *memHealthStore) Get(_ context.Context, provider string) (models.ProviderHealth, bool, error) {
	h, ok := s.records[provider]
	return h, ok, nil
}

func (s *memHealthStore) Put(_ context.Context, h models.ProviderHealth) error {
	s.records[h.Provider] = h
	return nil
}

type nopMetrics struct{}

func (nopMetrics) RecordAttempt(string)               {}
func (nopMetrics) RecordFailure(string, string)       {}
func (nopMetrics) RecordCache(string, bool)           {}
func (nopMetrics) RecordFetchLatency(string, float64) {}
func (nopMetrics) RecordLastPrice(string, float64)    {}

func newTestServer(t *testing.T, adapter drepo.Adapter) *echo.Echo {
	t.Helper()
	store := cache.NewMemoryCache()
	t.Cleanup(func() { _ = store.Close() })

	tracker := health.NewTracker(&memHealthStore{records: make(map[string]models.ProviderHealth)}, logger.Nop())
	market := usecase.NewMarket(
		[]drepo.RegisteredProvider{{ID: "stub", Priority: 1, Adapter: adapter}},
		tracker, store, ratelimit.New(), nopMetrics{}, logger.Nop())
	h := NewMarketHandler(logger.Nop(), market, usecase.NewSignals(market))

	e := echo.New()
	h.RegisterRoutes(e)
	return e
}

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func doGet(t *testing.T, e *echo.Echo, target string) envelope {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestHealthz(t *testing.T) {
	e := newTestServer(t, &stubAdapter{name: "stub", quoteFn: func(drepo.QuoteRequest) (drepo.Payload, error) {
		return drepo.Payload{Price: 1}, nil
	}})

	env := doGet(t, e, "/healthz")

	assert.Equal(t, http.StatusOK, env.Status)
}

func TestForexEndpoint(t *testing.T) {
	e := newTestServer(t, &stubAdapter{name: "Alpha Vantage", quoteFn: func(drepo.QuoteRequest) (drepo.Payload, error) {
		return drepo.Payload{Price: 1.0850}, nil
	}})

	env := doGet(t, e, "/api/forex?from=EUR&to=USD")

	require.Equal(t, http.StatusOK, env.Status)
	var asset models.Asset
	require.NoError(t, json.Unmarshal(env.Data, &asset))
	assert.Equal(t, "EURUSD", asset.ID)
	assert.InDelta(t, 1.085, asset.Price, 1e-9)
	assert.Equal(t, "Alpha Vantage", asset.Provider)
}

func TestForexEndpointValidation(t *testing.T) {
	e := newTestServer(t, &stubAdapter{name: "stub", quoteFn: func(drepo.QuoteRequest) (drepo.Payload, error) {
		return drepo.Payload{Price: 1}, nil
	}})

	env := doGet(t, e, "/api/forex?from=EUR")

	assert.Equal(t, http.StatusBadRequest, env.Status)
}

func TestForexEndpointExhausted(t *testing.T) {
	e := newTestServer(t, &stubAdapter{name: "stub", quoteFn: func(drepo.QuoteRequest) (drepo.Payload, error) {
		return drepo.Payload{}, models.NewTransportError("stub", context.DeadlineExceeded)
	}})

	env := doGet(t, e, "/api/forex?from=EUR&to=USD")

	assert.Equal(t, http.StatusBadGateway, env.Status)
}

func TestMarketEndpointListsCatalog(t *testing.T) {
	e := newTestServer(t, &stubAdapter{name: "stub", quoteFn: func(drepo.QuoteRequest) (drepo.Payload, error) {
		return drepo.Payload{Price: 42}, nil
	}})

	env := doGet(t, e, "/api/market")

	require.Equal(t, http.StatusOK, env.Status)
	var list struct {
		Rows  []models.Asset `json:"rows"`
		Total int64          `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Equal(t, int64(12), list.Total)
	assert.Equal(t, "EURUSD", list.Rows[0].ID)
}

func TestProvidersEndpoint(t *testing.T) {
	e := newTestServer(t, &stubAdapter{name: "stub", quoteFn: func(drepo.QuoteRequest) (drepo.Payload, error) {
		return drepo.Payload{Price: 1}, nil
	}})

	env := doGet(t, e, "/api/providers")

	require.Equal(t, http.StatusOK, env.Status)
	var list struct {
		Rows []models.ProviderHealth `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list.Rows, 1)
	assert.Equal(t, "stub", list.Rows[0].Provider)
	assert.True(t, list.Rows[0].IsHealthy)
}
