package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"RateHub/internal/domain/models"
	drepo "RateHub/internal/domain/repository"
	"RateHub/internal/service/health"
	"RateHub/internal/service/ratelimit"
	"RateHub/pkg/cache"
	"RateHub/pkg/logger"
)

// batchConcurrency bounds fan-out during a full catalog refresh. Each
// individual fetch still walks its fallback chain strictly in order.
const batchConcurrency = 4

// Market is the unified fetch engine: cache lookup, health-ranked provider
// iteration, normalization, cache write, health update.
type Market struct {
	registry  []drepo.RegisteredProvider
	health    *health.Tracker
	cache     cache.Service
	limiter   *ratelimit.DailyLimiter
	metrics   drepo.Metrics
	publisher drepo.Publisher
	catalog   Catalog
	log       *logger.Logger

	cacheTTL    time.Duration
	callTimeout time.Duration
}

// MarketOption configures Market.
type MarketOption func(*Market)

// WithCacheTTL overrides the quote cache expiry.
func WithCacheTTL(ttl time.Duration) MarketOption {
	return func(m *Market) { m.cacheTTL = ttl }
}

// WithCallTimeout overrides the per-adapter call timeout.
func WithCallTimeout(d time.Duration) MarketOption {
	return func(m *Market) { m.callTimeout = d }
}

// WithCatalog overrides the default asset catalog.
func WithCatalog(c Catalog) MarketOption {
	return func(m *Market) { m.catalog = c }
}

// WithPublisher attaches a snapshot publisher for batch results.
func WithPublisher(p drepo.Publisher) MarketOption {
	return func(m *Market) { m.publisher = p }
}

// NewMarket creates the market service.
func NewMarket(
	registry []drepo.RegisteredProvider,
	tracker *health.Tracker,
	kv cache.Service,
	limiter *ratelimit.DailyLimiter,
	metrics drepo.Metrics,
	log *logger.Logger,
	opts ...MarketOption,
) *Market {
	m := &Market{
		registry:    registry,
		health:      tracker,
		cache:       kv,
		limiter:     limiter,
		metrics:     metrics,
		catalog:     DefaultCatalog(),
		log:         log,
		cacheTTL:    60 * time.Second,
		callTimeout: 8 * time.Second,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Catalog returns the configured asset catalog.
func (m *Market) Catalog() Catalog { return m.catalog }

// ForexRate fetches a normalized quote for one currency pair.
func (m *Market) ForexRate(ctx context.Context, from, to string) (models.Asset, error) {
	req := drepo.QuoteRequest{
		Class: models.AssetForex,
		Base:  strings.ToUpper(from),
		Quote: strings.ToUpper(to),
	}
	key := cache.Key("forex", req.Base, req.Quote)
	return m.resolveQuote(ctx, key, req)
}

// CommodityPrice fetches a normalized quote for one commodity.
func (m *Market) CommodityPrice(ctx context.Context, symbol, name string) (models.Asset, error) {
	req := drepo.QuoteRequest{
		Class:  models.AssetCommodity,
		Symbol: strings.ToUpper(symbol),
		Name:   name,
	}
	key := cache.Key("commodity", req.Symbol)
	return m.resolveQuote(ctx, key, req)
}

// CryptoPrice fetches a normalized quote for one cryptocurrency by its slug.
func (m *Market) CryptoPrice(ctx context.Context, coinID string) (models.Asset, error) {
	req := drepo.QuoteRequest{Class: models.AssetCrypto, CoinID: coinID}
	for _, c := range m.catalog.Cryptos {
		if c.CoinID == coinID {
			req.Symbol = c.Symbol
			req.Name = c.Name
			break
		}
	}
	key := cache.Key("crypto", coinID)
	return m.resolveQuote(ctx, key, req)
}

// resolveQuote is the shared fallback-resolution loop. A fresh cache entry
// short-circuits everything: no provider call, no health update.
func (m *Market) resolveQuote(ctx context.Context, key string, req drepo.QuoteRequest) (models.Asset, error) {
	start := time.Now()
	defer func() {
		m.metrics.RecordFetchLatency(string(req.Class), time.Since(start).Seconds())
	}()

	var cached models.Asset
	if hit := m.cacheLookup(ctx, key, &cached); hit {
		m.metrics.RecordCache(string(req.Class), true)
		return cached, nil
	}
	m.metrics.RecordCache(string(req.Class), false)

	for _, p := range m.health.RankHealthy(ctx, m.registry) {
		if !p.Adapter.Supports(req) {
			continue
		}
		if !m.limiter.Allow(p.ID, p.DailyLimit) {
			m.log.Debug("daily quota exhausted, skipping provider",
				logger.String("provider", p.ID))
			continue
		}

		m.metrics.RecordAttempt(p.ID)
		callCtx, cancel := context.WithTimeout(ctx, m.callTimeout)
		payload, err := p.Adapter.Quote(callCtx, req)
		cancel()
		if err != nil {
			m.recordFailure(ctx, p.ID, err)
			continue
		}

		asset := normalizeQuote(req, p.Adapter.Name(), payload)
		m.health.RecordResult(ctx, p.ID, true)
		m.metrics.RecordLastPrice(asset.ID, asset.Price)
		m.cacheWrite(ctx, key, asset)
		return asset, nil
	}

	return models.Asset{}, &models.ExhaustedError{Class: req.Class, Request: describeRequest(req)}
}

// AssetHistory fetches OHLCV history for an asset over a period.
func (m *Market) AssetHistory(ctx context.Context, asset models.Asset, period string) ([]models.Bar, error) {
	start := time.Now()
	defer func() {
		m.metrics.RecordFetchLatency("history", time.Since(start).Seconds())
	}()

	key := cache.Key("history", asset.ID, period)

	var cached []models.Bar
	if hit := m.cacheLookup(ctx, key, &cached); hit {
		m.metrics.RecordCache("history", true)
		return cached, nil
	}
	m.metrics.RecordCache("history", false)

	req := drepo.HistoryRequest{Asset: asset, Period: period}

	for _, p := range m.health.RankHealthy(ctx, m.registry) {
		if !p.Adapter.SupportsHistory(req) {
			continue
		}
		if !m.limiter.Allow(p.ID, p.DailyLimit) {
			m.log.Debug("daily quota exhausted, skipping provider",
				logger.String("provider", p.ID))
			continue
		}

		m.metrics.RecordAttempt(p.ID)
		callCtx, cancel := context.WithTimeout(ctx, m.callTimeout)
		bars, err := p.Adapter.History(callCtx, req)
		cancel()
		if err != nil {
			m.recordFailure(ctx, p.ID, err)
			continue
		}
		if len(bars) == 0 {
			m.recordFailure(ctx, p.ID, models.NewDataError(p.Adapter.Name(), "empty history"))
			continue
		}

		m.health.RecordResult(ctx, p.ID, true)
		m.cacheWrite(ctx, key, bars)
		return bars, nil
	}

	return nil, &models.ExhaustedError{Class: asset.Type, Request: "history " + asset.ID + " " + period}
}

// AllMarketData refreshes the whole catalog. Individual failures are logged
// and dropped; output follows catalog order regardless of completion order.
func (m *Market) AllMarketData(ctx context.Context) []models.Asset {
	type slot struct {
		asset models.Asset
		ok    bool
	}
	results := make([]slot, m.catalog.Size())

	var g errgroup.Group
	g.SetLimit(batchConcurrency)

	idx := 0
	collect := func(i int, fetch func() (models.Asset, error)) {
		g.Go(func() error {
			a, err := fetch()
			if err != nil {
				m.log.Warn("batch entry skipped", logger.Error(err))
				return nil
			}
			results[i] = slot{asset: a, ok: true}
			return nil
		})
	}

	for _, fp := range m.catalog.ForexPairs {
		fp := fp
		collect(idx, func() (models.Asset, error) { return m.ForexRate(ctx, fp.From, fp.To) })
		idx++
	}
	for _, c := range m.catalog.Commodities {
		c := c
		collect(idx, func() (models.Asset, error) { return m.CommodityPrice(ctx, c.Symbol, c.Name) })
		idx++
	}
	for _, c := range m.catalog.Cryptos {
		c := c
		collect(idx, func() (models.Asset, error) { return m.CryptoPrice(ctx, c.CoinID) })
		idx++
	}

	_ = g.Wait()

	out := make([]models.Asset, 0, len(results))
	for _, s := range results {
		if s.ok {
			out = append(out, s.asset)
		}
	}

	if m.publisher != nil && len(out) > 0 {
		if err := m.publisher.PublishSnapshot(ctx, out); err != nil {
			m.log.Warn("snapshot publish failed", logger.Error(err))
		}
	}

	return out
}

// ProvidersStatus returns the current health record of every registered
// provider, in registry order.
func (m *Market) ProvidersStatus(ctx context.Context) []models.ProviderHealth {
	out := make([]models.ProviderHealth, 0, len(m.registry))
	for _, p := range m.registry {
		out = append(out, m.health.Health(ctx, p.ID))
	}
	return out
}

// cacheLookup reads dest from the cache. Storage errors degrade to a miss.
func (m *Market) cacheLookup(ctx context.Context, key string, dest interface{}) bool {
	err := m.cache.Get(ctx, key, dest)
	if err == nil {
		return true
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		m.log.Warn("cache read failed, treating as miss",
			logger.String("key", key), logger.Error(err))
	}
	return false
}

// cacheWrite overwrites the cache entry. Failure is logged, never raised.
func (m *Market) cacheWrite(ctx context.Context, key string, value interface{}) {
	if err := m.cache.Set(ctx, key, value, m.cacheTTL); err != nil {
		m.log.Warn("cache write failed",
			logger.String("key", key), logger.Error(err))
	}
}

func (m *Market) recordFailure(ctx context.Context, providerID string, err error) {
	m.health.RecordResult(ctx, providerID, false)
	m.metrics.RecordFailure(providerID, failureKind(err))
	m.log.Warn("provider call failed",
		logger.String("provider", providerID), logger.Error(err))
}

// normalizeQuote folds a provider payload into the uniform Asset shape.
// Identity fields come from the request, never from the provider.
func normalizeQuote(req drepo.QuoteRequest, providerName string, p drepo.Payload) models.Asset {
	asset := models.Asset{
		Type:        req.Class,
		Price:       p.Price,
		LastUpdated: time.Now().UnixMilli(),
		Provider:    providerName,
	}

	switch req.Class {
	case models.AssetForex:
		asset.ID = req.Base + req.Quote
		asset.Symbol = req.Base + "/" + req.Quote
		asset.Name = asset.Symbol
	case models.AssetCommodity:
		asset.ID = req.Symbol
		asset.Symbol = req.Symbol
		asset.Name = req.Name
		if asset.Name == "" {
			asset.Name = req.Symbol
		}
	case models.AssetCrypto:
		asset.ID = req.CoinID
		asset.Symbol = req.Symbol
		asset.Name = req.Name
		if asset.Symbol == "" {
			asset.Symbol = strings.ToUpper(req.CoinID)
		}
		if asset.Name == "" {
			asset.Name = req.CoinID
		}
	}

	switch {
	case p.HasChange:
		asset.Change24h = p.Change
		asset.Change24hPercent = p.ChangePct
	case p.HasPrevClose && p.PrevClose > 0:
		asset.Change24h = p.Price - p.PrevClose
		asset.Change24hPercent = (p.Price - p.PrevClose) / p.PrevClose * 100
	}

	return asset
}

func describeRequest(req drepo.QuoteRequest) string {
	switch req.Class {
	case models.AssetForex:
		return req.Base + "/" + req.Quote
	case models.AssetCommodity:
		return req.Symbol
	default:
		return req.CoinID
	}
}

func failureKind(err error) string {
	var pe *models.ProviderError
	if errors.As(err, &pe) {
		return string(pe.Kind)
	}
	return "internal"
}
