package models

// AssetType classifies what kind of instrument an Asset is.
type AssetType string

const (
	AssetForex     AssetType = "forex"
	AssetCommodity AssetType = "commodity"
	AssetCrypto    AssetType = "crypto"
)

// Asset is the normalized quote record every provider response is folded
// into. Absence of change data is represented as 0, never a missing field.
type Asset struct {
	ID               string    `json:"id"`
	Symbol           string    `json:"symbol"`
	Name             string    `json:"name"`
	Type             AssetType `json:"type"`
	Price            float64   `json:"price"`
	Change24h        float64   `json:"change24h"`
	Change24hPercent float64   `json:"change24hPercent"`
	LastUpdated      int64     `json:"lastUpdated"` // ms since epoch
	Provider         string    `json:"provider"`
}

// Bar is one OHLCV point of historical data. Volume may be 0 when the
// provider does not report it.
type Bar struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// ProviderHealth is the rolling per-provider health record that drives
// fallback eligibility.
type ProviderHealth struct {
	Provider     string `json:"provider"`
	IsHealthy    bool   `json:"isHealthy"`
	LastChecked  int64  `json:"lastChecked"`
	FailureCount int    `json:"failureCount"`
	SuccessCount int    `json:"successCount"`
}

// DefaultHealth returns the record assumed for a provider that has never
// been attempted.
func DefaultHealth(provider string) ProviderHealth {
	return ProviderHealth{Provider: provider, IsHealthy: true}
}

// Signal direction for an indicator reading.
type Signal string

const (
	SignalBuy     Signal = "buy"
	SignalSell    Signal = "sell"
	SignalNeutral Signal = "neutral"
)

// IndicatorSignal is a derived technical reading for one asset.
type IndicatorSignal struct {
	AssetID       string    `json:"assetId"`
	AssetSymbol   string    `json:"assetSymbol"`
	AssetType     AssetType `json:"assetType"`
	AssetName     string    `json:"assetName"`
	IndicatorName string    `json:"indicatorName"`
	Signal        Signal    `json:"signal"`
	Strength      float64   `json:"strength"` // 0-100
	Value         float64   `json:"value"`
	Timestamp     int64     `json:"timestamp"`
	Provider      string    `json:"provider"`
}
