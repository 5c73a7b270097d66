package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RateHub/internal/domain/models"
	drepo "RateHub/internal/domain/repository"
	"RateHub/internal/service/health"
	"RateHub/internal/service/ratelimit"
	"RateHub/pkg/cache"
	"RateHub/pkg/logger"
)

type stubAdapter struct {
	name      string
	supports  func(drepo.QuoteRequest) bool
	quoteFn   func(drepo.QuoteRequest) (drepo.Payload, error)
	historyFn func(drepo.HistoryRequest) ([]models.Bar, error)

	mu         sync.Mutex
	quoteCalls int
	histCalls  int
}

func (s *stubAdapter) Name() string { return s.name }

func (s *stubAdapter) Supports(req drepo.QuoteRequest) bool {
	if s.supports == nil {
		return true
	}
	return s.supports(req)
}

func (s *stubAdapter) Quote(_ context.Context, req drepo.QuoteRequest) (drepo.Payload, error) {
	s.mu.Lock()
	s.quoteCalls++
	s.mu.Unlock()
	return s.quoteFn(req)
}

func (s *stubAdapter) SupportsHistory(drepo.HistoryRequest) bool { return s.historyFn != nil }

func (s *stubAdapter) History(_ context.Context, req drepo.HistoryRequest) ([]models.Bar, error) {
	s.mu.Lock()
	s.histCalls++
	s.mu.Unlock()
	return s.historyFn(req)
}

type stubMetrics struct {
	mu       sync.Mutex
	attempts map[string]int
	failures map[string]int
}

func newStubMetrics() *stubMetrics {
	return &stubMetrics{attempts: make(map[string]int), failures: make(map[string]int)}
}

func (m *stubMetrics) RecordAttempt(provider string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts[provider]++
}

func (m *stubMetrics) RecordFailure(provider, _ string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[provider]++
}

func (m *stubMetrics) RecordCache(string, bool)           {}
func (m *stubMetrics) RecordFetchLatency(string, float64) {}
func (m *stubMetrics) RecordLastPrice(string, float64)    {}

type memHealthStore struct {
	mu      sync.Mutex
	records map[string]models.ProviderHealth
}

func newMemHealthStore() *memHealthStore {
	return &memHealthStore{records: make(map[string]models.ProviderHealth)}
}

func (s *memHealthStore) Get(_ context.Context, provider string) (models.ProviderHealth, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.records[provider]
	return h, ok, nil
}

func (s *memHealthStore) Put(_ context.Context, h models.ProviderHealth) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[h.Provider] = h
	return nil
}

type fixture struct {
	market  *Market
	tracker *health.Tracker
	store   cache.Service
	metrics *stubMetrics
}

func newFixture(t *testing.T, registry []drepo.RegisteredProvider, opts ...MarketOption) *fixture {
	t.Helper()
	store := cache.NewMemoryCache()
	t.Cleanup(func() { _ = store.Close() })

	tracker := health.NewTracker(newMemHealthStore(), logger.Nop())
	metrics := newStubMetrics()
	m := NewMarket(registry, tracker, store, ratelimit.New(), metrics, logger.Nop(), opts...)
	return &fixture{market: m, tracker: tracker, store: store, metrics: metrics}
}

func okQuote(price float64) func(drepo.QuoteRequest) (drepo.Payload, error) {
	return func(drepo.QuoteRequest) (drepo.Payload, error) {
		return drepo.Payload{Price: price}, nil
	}
}

func failQuote(name string) func(drepo.QuoteRequest) (drepo.Payload, error) {
	return func(drepo.QuoteRequest) (drepo.Payload, error) {
		return drepo.Payload{}, models.NewTransportError(name, context.DeadlineExceeded)
	}
}

func TestCacheHitSkipsProviders(t *testing.T) {
	ctx := context.Background()
	adapter := &stubAdapter{name: "Alpha Vantage", quoteFn: okQuote(1.1)}
	f := newFixture(t, []drepo.RegisteredProvider{{ID: "alphavantage", Priority: 1, Adapter: adapter}})

	seeded := models.Asset{ID: "EURUSD", Symbol: "EUR/USD", Type: models.AssetForex, Price: 1.0850, Provider: "Alpha Vantage"}
	require.NoError(t, f.store.Set(ctx, cache.Key("forex", "EUR", "USD"), seeded, time.Minute))

	got, err := f.market.ForexRate(ctx, "eur", "usd")

	require.NoError(t, err)
	assert.Equal(t, seeded.Price, got.Price)
	assert.Equal(t, 0, adapter.quoteCalls)
	assert.Equal(t, 0, f.metrics.attempts["alphavantage"])
}

func TestSecondCallWithinTTLServedFromCache(t *testing.T) {
	ctx := context.Background()
	adapter := &stubAdapter{name: "Alpha Vantage", quoteFn: okQuote(1.1)}
	f := newFixture(t, []drepo.RegisteredProvider{{ID: "alphavantage", Priority: 1, Adapter: adapter}})

	first, err := f.market.ForexRate(ctx, "EUR", "USD")
	require.NoError(t, err)
	second, err := f.market.ForexRate(ctx, "EUR", "USD")
	require.NoError(t, err)

	assert.Equal(t, 1, adapter.quoteCalls)
	assert.Equal(t, first.Price, second.Price)
	assert.Equal(t, first.LastUpdated, second.LastUpdated)
}

func TestFallbackToNextProviderOnFailure(t *testing.T) {
	ctx := context.Background()
	primary := &stubAdapter{name: "Alpha Vantage", quoteFn: failQuote("Alpha Vantage")}
	backup := &stubAdapter{name: "Twelve Data", quoteFn: okQuote(1.0901)}
	f := newFixture(t, []drepo.RegisteredProvider{
		{ID: "alphavantage", Priority: 1, Adapter: primary},
		{ID: "twelvedata", Priority: 2, Adapter: backup},
	})

	got, err := f.market.ForexRate(ctx, "EUR", "USD")

	require.NoError(t, err)
	assert.Equal(t, "Twelve Data", got.Provider)
	assert.Equal(t, 1.0901, got.Price)
	assert.Equal(t, 1, primary.quoteCalls)
	assert.Equal(t, 1, backup.quoteCalls)
	assert.Equal(t, 1, f.metrics.failures["alphavantage"])

	assert.Equal(t, 1, f.tracker.Health(ctx, "alphavantage").FailureCount)
	assert.Equal(t, 1, f.tracker.Health(ctx, "twelvedata").SuccessCount)
}

func TestUnsupportedProviderSkippedWithoutPenalty(t *testing.T) {
	ctx := context.Background()
	forexOnly := &stubAdapter{
		name:     "ExchangeRate",
		supports: func(r drepo.QuoteRequest) bool { return r.Class == models.AssetForex },
		quoteFn:  okQuote(1),
	}
	cryptoOnly := &stubAdapter{
		name:     "CoinGecko",
		supports: func(r drepo.QuoteRequest) bool { return r.Class == models.AssetCrypto },
		quoteFn:  okQuote(67000),
	}
	f := newFixture(t, []drepo.RegisteredProvider{
		{ID: "exchangerate", Priority: 1, Adapter: forexOnly},
		{ID: "coingecko", Priority: 2, Adapter: cryptoOnly},
	})

	got, err := f.market.CryptoPrice(ctx, "bitcoin")

	require.NoError(t, err)
	assert.Equal(t, "CoinGecko", got.Provider)
	assert.Equal(t, 0, forexOnly.quoteCalls)
	assert.Equal(t, 0, f.metrics.attempts["exchangerate"])

	h := f.tracker.Health(ctx, "exchangerate")
	assert.Equal(t, 0, h.FailureCount)
	assert.Equal(t, 0, h.SuccessCount)
}

func TestQuotaExhaustedProviderSkippedWithoutPenalty(t *testing.T) {
	ctx := context.Background()
	limited := &stubAdapter{name: "Alpha Vantage", quoteFn: okQuote(1.10)}
	fallback := &stubAdapter{name: "Twelve Data", quoteFn: okQuote(2.20)}
	f := newFixture(t, []drepo.RegisteredProvider{
		{ID: "alphavantage", Priority: 1, DailyLimit: 1, Adapter: limited},
		{ID: "twelvedata", Priority: 2, Adapter: fallback},
	})

	first, err := f.market.ForexRate(ctx, "EUR", "USD")
	require.NoError(t, err)
	assert.Equal(t, "Alpha Vantage", first.Provider)

	second, err := f.market.ForexRate(ctx, "GBP", "USD")
	require.NoError(t, err)
	assert.Equal(t, "Twelve Data", second.Provider)
	assert.Equal(t, 1, limited.quoteCalls)

	assert.Equal(t, 0, f.tracker.Health(ctx, "alphavantage").FailureCount)
}

func TestUnhealthyProviderNotAttempted(t *testing.T) {
	ctx := context.Background()
	flaky := &stubAdapter{name: "Alpha Vantage", quoteFn: okQuote(1)}
	backup := &stubAdapter{name: "Twelve Data", quoteFn: okQuote(2)}
	f := newFixture(t, []drepo.RegisteredProvider{
		{ID: "alphavantage", Priority: 1, Adapter: flaky},
		{ID: "twelvedata", Priority: 2, Adapter: backup},
	})

	for i := 0; i < 3; i++ {
		f.tracker.RecordResult(ctx, "alphavantage", false)
	}

	got, err := f.market.ForexRate(ctx, "EUR", "USD")

	require.NoError(t, err)
	assert.Equal(t, "Twelve Data", got.Provider)
	assert.Equal(t, 0, flaky.quoteCalls)
}

func TestAllProvidersFailingReturnsExhausted(t *testing.T) {
	ctx := context.Background()
	a := &stubAdapter{name: "Alpha Vantage", quoteFn: failQuote("Alpha Vantage")}
	b := &stubAdapter{name: "Twelve Data", quoteFn: failQuote("Twelve Data")}
	f := newFixture(t, []drepo.RegisteredProvider{
		{ID: "alphavantage", Priority: 1, Adapter: a},
		{ID: "twelvedata", Priority: 2, Adapter: b},
	})

	_, err := f.market.ForexRate(ctx, "EUR", "USD")

	require.Error(t, err)
	assert.True(t, models.IsExhausted(err))
	assert.Equal(t, 1, a.quoteCalls)
	assert.Equal(t, 1, b.quoteCalls)
}

func TestForexNormalizationIdentity(t *testing.T) {
	ctx := context.Background()
	adapter := &stubAdapter{name: "Alpha Vantage", quoteFn: okQuote(1.0850)}
	f := newFixture(t, []drepo.RegisteredProvider{{ID: "alphavantage", Priority: 1, Adapter: adapter}})

	got, err := f.market.ForexRate(ctx, "eur", "usd")

	require.NoError(t, err)
	assert.Equal(t, "EURUSD", got.ID)
	assert.Equal(t, "EUR/USD", got.Symbol)
	assert.Equal(t, models.AssetForex, got.Type)
	assert.NotZero(t, got.LastUpdated)
}

func TestChangeComputedFromPreviousClose(t *testing.T) {
	ctx := context.Background()
	adapter := &stubAdapter{name: "Twelve Data", quoteFn: func(drepo.QuoteRequest) (drepo.Payload, error) {
		return drepo.Payload{Price: 105, PrevClose: 100, HasPrevClose: true}, nil
	}}
	f := newFixture(t, []drepo.RegisteredProvider{{ID: "twelvedata", Priority: 1, Adapter: adapter}})

	got, err := f.market.ForexRate(ctx, "EUR", "USD")

	require.NoError(t, err)
	assert.InDelta(t, 5.0, got.Change24h, 1e-9)
	assert.InDelta(t, 5.0, got.Change24hPercent, 1e-9)
}

func TestChangeZeroWhenProviderReportsSpotOnly(t *testing.T) {
	ctx := context.Background()
	adapter := &stubAdapter{name: "ExchangeRate", quoteFn: okQuote(1.0850)}
	f := newFixture(t, []drepo.RegisteredProvider{{ID: "exchangerate", Priority: 1, Adapter: adapter}})

	got, err := f.market.ForexRate(ctx, "EUR", "USD")

	require.NoError(t, err)
	assert.Zero(t, got.Change24h)
	assert.Zero(t, got.Change24hPercent)
}

func TestCryptoIdentityFilledFromCatalog(t *testing.T) {
	ctx := context.Background()
	adapter := &stubAdapter{name: "CoinGecko", quoteFn: func(drepo.QuoteRequest) (drepo.Payload, error) {
		return drepo.Payload{Price: 67000, Change: 1200, ChangePct: 1.8, HasChange: true}, nil
	}}
	f := newFixture(t, []drepo.RegisteredProvider{{ID: "coingecko", Priority: 1, Adapter: adapter}})

	got, err := f.market.CryptoPrice(ctx, "bitcoin")

	require.NoError(t, err)
	assert.Equal(t, "bitcoin", got.ID)
	assert.Equal(t, "BTC", got.Symbol)
	assert.Equal(t, "Bitcoin", got.Name)
	assert.Equal(t, 1200.0, got.Change24h)
	assert.Equal(t, 1.8, got.Change24hPercent)
}

func TestAssetHistoryEmptyResultCountsAsFailure(t *testing.T) {
	ctx := context.Background()
	empty := &stubAdapter{name: "Alpha Vantage", quoteFn: okQuote(1),
		historyFn: func(drepo.HistoryRequest) ([]models.Bar, error) { return nil, nil }}
	full := &stubAdapter{name: "Twelve Data", quoteFn: okQuote(1),
		historyFn: func(drepo.HistoryRequest) ([]models.Bar, error) {
			return []models.Bar{{Timestamp: 1, Close: 1.1}}, nil
		}}
	f := newFixture(t, []drepo.RegisteredProvider{
		{ID: "alphavantage", Priority: 1, Adapter: empty},
		{ID: "twelvedata", Priority: 2, Adapter: full},
	})

	asset := models.Asset{ID: "EURUSD", Symbol: "EUR/USD", Type: models.AssetForex}
	bars, err := f.market.AssetHistory(ctx, asset, "1m")

	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, 1, f.tracker.Health(ctx, "alphavantage").FailureCount)
}

func TestAssetHistoryCached(t *testing.T) {
	ctx := context.Background()
	adapter := &stubAdapter{name: "CoinGecko", quoteFn: okQuote(1),
		historyFn: func(drepo.HistoryRequest) ([]models.Bar, error) {
			return []models.Bar{{Timestamp: 1, Close: 100}, {Timestamp: 2, Close: 101}}, nil
		}}
	f := newFixture(t, []drepo.RegisteredProvider{{ID: "coingecko", Priority: 1, Adapter: adapter}})

	asset := models.Asset{ID: "bitcoin", Symbol: "BTC", Type: models.AssetCrypto}
	_, err := f.market.AssetHistory(ctx, asset, "1w")
	require.NoError(t, err)
	bars, err := f.market.AssetHistory(ctx, asset, "1w")
	require.NoError(t, err)

	assert.Equal(t, 1, adapter.histCalls)
	assert.Len(t, bars, 2)
}

type capturingPublisher struct {
	mu        sync.Mutex
	snapshots [][]models.Asset
}

func (p *capturingPublisher) PublishSnapshot(_ context.Context, assets []models.Asset) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snapshots = append(p.snapshots, assets)
	return nil
}

func (p *capturingPublisher) Close() error { return nil }

func TestAllMarketDataKeepsCatalogOrderAndDropsFailures(t *testing.T) {
	ctx := context.Background()
	adapter := &stubAdapter{name: "Twelve Data", quoteFn: func(r drepo.QuoteRequest) (drepo.Payload, error) {
		if r.CoinID == "solana" || r.Symbol == "XAG" {
			return drepo.Payload{}, models.NewDataError("Twelve Data", "no data")
		}
		return drepo.Payload{Price: 42}, nil
	}}
	pub := &capturingPublisher{}
	f := newFixture(t,
		[]drepo.RegisteredProvider{{ID: "twelvedata", Priority: 1, Adapter: adapter}},
		WithPublisher(pub))

	assets := f.market.AllMarketData(ctx)

	require.Len(t, assets, f.market.Catalog().Size()-2)

	assert.Equal(t, "EURUSD", assets[0].ID)
	assert.Equal(t, "XAU", assets[6].ID)
	assert.Equal(t, "bitcoin", assets[7].ID)

	for _, a := range assets {
		assert.NotEqual(t, "XAG", a.ID)
		assert.NotEqual(t, "solana", a.ID)
	}

	require.Len(t, pub.snapshots, 1)
	assert.Len(t, pub.snapshots[0], len(assets))
}

func TestAllMarketDataThreeEntriesFailingYieldsNine(t *testing.T) {
	ctx := context.Background()
	adapter := &stubAdapter{name: "Twelve Data", quoteFn: func(r drepo.QuoteRequest) (drepo.Payload, error) {
		if r.CoinID == "solana" || r.Symbol == "XAG" || (r.Base == "USD" && r.Quote == "CHF") {
			return drepo.Payload{}, models.NewDataError("Twelve Data", "no data")
		}
		return drepo.Payload{Price: 42}, nil
	}}
	f := newFixture(t, []drepo.RegisteredProvider{{ID: "twelvedata", Priority: 1, Adapter: adapter}})

	assets := f.market.AllMarketData(ctx)

	require.Len(t, assets, 9)
	want := []string{"EURUSD", "GBPUSD", "USDJPY", "AUDUSD", "USDCAD", "XAU", "bitcoin", "ethereum", "cardano"}
	for i, id := range want {
		assert.Equal(t, id, assets[i].ID)
	}
}

func TestProvidersStatusFollowsRegistryOrder(t *testing.T) {
	ctx := context.Background()
	a := &stubAdapter{name: "Alpha Vantage", quoteFn: okQuote(1)}
	b := &stubAdapter{name: "CoinGecko", quoteFn: okQuote(1)}
	f := newFixture(t, []drepo.RegisteredProvider{
		{ID: "alphavantage", Priority: 1, Adapter: a},
		{ID: "coingecko", Priority: 2, Adapter: b},
	})

	f.tracker.RecordResult(ctx, "coingecko", false)

	status := f.market.ProvidersStatus(ctx)

	require.Len(t, status, 2)
	assert.Equal(t, "alphavantage", status[0].Provider)
	assert.Equal(t, "coingecko", status[1].Provider)
	assert.Equal(t, 1, status[1].FailureCount)
}
