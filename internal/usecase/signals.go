package usecase

import (
	"context"
	"math"
	"time"

	"RateHub/internal/domain/models"
)

const (
	rsiPeriod = 14
	smaFast   = 10
	smaSlow   = 30
)

// Signals derives technical indicator readings from historical data.
type Signals struct {
	market *Market
}

// NewSignals creates the signal engine.
func NewSignals(market *Market) *Signals {
	return &Signals{market: market}
}

// ForAsset computes indicator signals for one asset over a period.
// It fails only when history resolution itself fails.
func (s *Signals) ForAsset(ctx context.Context, asset models.Asset, period string) ([]models.IndicatorSignal, error) {
	bars, err := s.market.AssetHistory(ctx, asset, period)
	if err != nil {
		return nil, err
	}

	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}

	now := time.Now().UnixMilli()
	out := make([]models.IndicatorSignal, 0, 2)
	if sig, ok := rsiSignal(asset, closes, now); ok {
		out = append(out, sig)
	}
	if sig, ok := smaCrossSignal(asset, closes, now); ok {
		out = append(out, sig)
	}
	return out, nil
}

func rsiSignal(asset models.Asset, closes []float64, now int64) (models.IndicatorSignal, bool) {
	value, ok := RSI(closes, rsiPeriod)
	if !ok {
		return models.IndicatorSignal{}, false
	}

	sig := baseSignal(asset, "RSI", value, now)
	switch {
	case value < 30:
		sig.Signal = models.SignalBuy
		sig.Strength = clampStrength((30 - value) * 100 / 30)
	case value > 70:
		sig.Signal = models.SignalSell
		sig.Strength = clampStrength((value - 70) * 100 / 30)
	default:
		sig.Signal = models.SignalNeutral
		sig.Strength = clampStrength(100 - math.Abs(value-50)*2)
	}
	return sig, true
}

func smaCrossSignal(asset models.Asset, closes []float64, now int64) (models.IndicatorSignal, bool) {
	if len(closes) < smaSlow {
		return models.IndicatorSignal{}, false
	}
	fast := SMA(closes, smaFast)
	slow := SMA(closes, smaSlow)
	if slow == 0 {
		return models.IndicatorSignal{}, false
	}

	gapPct := (fast - slow) / slow * 100
	sig := baseSignal(asset, "SMA Cross", fast, now)
	switch {
	case gapPct > 0:
		sig.Signal = models.SignalBuy
	case gapPct < 0:
		sig.Signal = models.SignalSell
	default:
		sig.Signal = models.SignalNeutral
	}
	sig.Strength = clampStrength(math.Abs(gapPct) * 20)
	return sig, true
}

func baseSignal(asset models.Asset, indicator string, value float64, now int64) models.IndicatorSignal {
	return models.IndicatorSignal{
		AssetID:       asset.ID,
		AssetSymbol:   asset.Symbol,
		AssetType:     asset.Type,
		AssetName:     asset.Name,
		IndicatorName: indicator,
		Value:         value,
		Timestamp:     now,
		Provider:      asset.Provider,
	}
}

// SMA returns the simple moving average of the last n values.
func SMA(values []float64, n int) float64 {
	if n <= 0 || len(values) < n {
		return 0
	}
	var sum float64
	for _, v := range values[len(values)-n:] {
		sum += v
	}
	return sum / float64(n)
}

// RSI returns the relative strength index over the last n deltas.
// ok is false when there is not enough data.
func RSI(values []float64, n int) (float64, bool) {
	if n <= 0 || len(values) < n+1 {
		return 0, false
	}

	var gains, losses float64
	recent := values[len(values)-n-1:]
	for i := 1; i < len(recent); i++ {
		delta := recent[i] - recent[i-1]
		if delta > 0 {
			gains += delta
		} else {
			losses -= delta
		}
	}

	if losses == 0 {
		return 100, true
	}
	rs := gains / losses
	return 100 - 100/(1+rs), true
}

func clampStrength(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}
