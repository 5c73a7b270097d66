package repository

import (
	"context"

	"RateHub/internal/domain/models"
)

// QuoteRequest describes one spot quote lookup. Which fields are set
// depends on the asset class: Base/Quote for forex, Symbol/Name for
// commodities, CoinID (plus catalog Symbol/Name) for crypto.
type QuoteRequest struct {
	Class  models.AssetType
	Base   string
	Quote  string
	Symbol string
	Name   string
	CoinID string
}

// HistoryRequest describes one historical series lookup.
type HistoryRequest struct {
	Asset  models.Asset
	Period string // 1d, 1w, 1m, 3m, 1y
}

// Payload is the intermediate a provider adapter hands back. Arithmetic
// normalization (percent change, symbol/name construction, timestamps)
// happens in the unified fetcher, not here.
type Payload struct {
	Price        float64
	PrevClose    float64
	HasPrevClose bool
	Change       float64
	ChangePct    float64
	HasChange    bool
}

// Adapter wraps exactly one external data source. Implementations decide
// applicability via Supports/SupportsHistory so the fallback loop never
// dispatches on provider names.
type Adapter interface {
	Name() string
	Supports(req QuoteRequest) bool
	Quote(ctx context.Context, req QuoteRequest) (Payload, error)
	SupportsHistory(req HistoryRequest) bool
	History(ctx context.Context, req HistoryRequest) ([]models.Bar, error)
}

// RegisteredProvider binds an adapter to its identity and static fallback
// position. Lower priority is tried first; zero means unconfigured and
// sorts last.
type RegisteredProvider struct {
	ID         string
	Priority   int
	DailyLimit int
	Adapter    Adapter
}

// HealthStore persists per-provider health records.
type HealthStore interface {
	Get(ctx context.Context, provider string) (models.ProviderHealth, bool, error)
	Put(ctx context.Context, h models.ProviderHealth) error
}

// Metrics records operational counters for the fetch pipeline.
type Metrics interface {
	RecordAttempt(provider string)
	RecordFailure(provider, kind string)
	RecordCache(class string, hit bool)
	RecordFetchLatency(class string, seconds float64)
	RecordLastPrice(assetID string, price float64)
}

// Publisher pushes a market snapshot to downstream consumers.
type Publisher interface {
	PublishSnapshot(ctx context.Context, assets []models.Asset) error
	Close() error
}
