package providers

import (
	"context"
	"fmt"
	"strconv"

	"RateHub/internal/domain/models"
	drepo "RateHub/internal/domain/repository"
	xhttp "RateHub/pkg/http"
)

const coinGeckoName = "CoinGecko"

// CoinGecko is the crypto-only source. It needs no API key and reports
// 24h change figures directly.
type CoinGecko struct {
	baseURL string
	client  *xhttp.Client
}

func NewCoinGecko(baseURL string, client *xhttp.Client) *CoinGecko {
	return &CoinGecko{baseURL: baseURL, client: client}
}

func (c *CoinGecko) Name() string { return coinGeckoName }

func (c *CoinGecko) Supports(req drepo.QuoteRequest) bool {
	return req.Class == models.AssetCrypto && req.CoinID != ""
}

type cgMarket struct {
	ID             string  `json:"id"`
	CurrentPrice   float64 `json:"current_price"`
	PriceChange24h float64 `json:"price_change_24h"`
	PriceChangePct float64 `json:"price_change_percentage_24h"`
}

func (c *CoinGecko) Quote(ctx context.Context, req drepo.QuoteRequest) (drepo.Payload, error) {
	var body []cgMarket
	err := c.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    c.baseURL + "/api/v3/coins/markets",
		QueryParams: map[string][]string{
			"vs_currency": {"usd"},
			"ids":         {req.CoinID},
		},
	}, &body)
	if err != nil {
		return drepo.Payload{}, models.NewTransportError(coinGeckoName, err)
	}

	if len(body) == 0 {
		return drepo.Payload{}, models.NewDataError(coinGeckoName, fmt.Sprintf("unknown coin %q", req.CoinID))
	}
	m := body[0]
	if m.CurrentPrice <= 0 {
		return drepo.Payload{}, models.NewDataError(coinGeckoName, "missing or invalid price")
	}

	return drepo.Payload{
		Price:     m.CurrentPrice,
		Change:    m.PriceChange24h,
		ChangePct: m.PriceChangePct,
		HasChange: true,
	}, nil
}

func (c *CoinGecko) SupportsHistory(req drepo.HistoryRequest) bool {
	return req.Asset.Type == models.AssetCrypto
}

type cgMarketChart struct {
	Prices       [][2]float64 `json:"prices"`
	TotalVolumes [][2]float64 `json:"total_volumes"`
}

func (c *CoinGecko) History(ctx context.Context, req drepo.HistoryRequest) ([]models.Bar, error) {
	var body cgMarketChart
	err := c.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    fmt.Sprintf("%s/api/v3/coins/%s/market_chart", c.baseURL, req.Asset.ID),
		QueryParams: map[string][]string{
			"vs_currency": {"usd"},
			"days":        {strconv.Itoa(periodDays(req.Period))},
		},
	}, &body)
	if err != nil {
		return nil, models.NewTransportError(coinGeckoName, err)
	}

	if len(body.Prices) == 0 {
		return nil, models.NewDataError(coinGeckoName, "empty market chart")
	}

	// The chart endpoint serves price points, not candles; open/high/low
	// collapse onto the close.
	bars := make([]models.Bar, 0, len(body.Prices))
	for i, p := range body.Prices {
		bar := models.Bar{
			Timestamp: int64(p[0]),
			Open:      p[1],
			High:      p[1],
			Low:       p[1],
			Close:     p[1],
		}
		if i < len(body.TotalVolumes) {
			bar.Volume = body.TotalVolumes[i][1]
		}
		bars = append(bars, bar)
	}
	return bars, nil
}
