package providers

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"RateHub/internal/domain/models"
	drepo "RateHub/internal/domain/repository"
	xhttp "RateHub/pkg/http"
)

const alphaVantageName = "Alpha Vantage"

// AlphaVantage is the primary forex and commodity source. Precious metals
// are quoted through the same currency-exchange endpoint (XAU, XAG are
// ISO currency codes there).
type AlphaVantage struct {
	baseURL string
	apiKey  string
	client  *xhttp.Client
}

func NewAlphaVantage(baseURL, apiKey string, client *xhttp.Client) *AlphaVantage {
	return &AlphaVantage{baseURL: baseURL, apiKey: apiKey, client: client}
}

func (a *AlphaVantage) Name() string { return alphaVantageName }

func (a *AlphaVantage) Supports(req drepo.QuoteRequest) bool {
	switch req.Class {
	case models.AssetForex:
		return true
	case models.AssetCommodity:
		return req.Symbol == "XAU" || req.Symbol == "XAG"
	default:
		return false
	}
}

type avExchangeRateResponse struct {
	Rate struct {
		ExchangeRate string `json:"5. Exchange Rate"`
	} `json:"Realtime Currency Exchange Rate"`
	ErrorMessage string `json:"Error Message"`
	Note         string `json:"Note"`
	Information  string `json:"Information"`
}

func (a *AlphaVantage) Quote(ctx context.Context, req drepo.QuoteRequest) (drepo.Payload, error) {
	if a.apiKey == "" {
		return drepo.Payload{}, models.NewDataError(alphaVantageName, "api key not configured")
	}

	from, to := req.Base, req.Quote
	if req.Class == models.AssetCommodity {
		from, to = req.Symbol, "USD"
	}

	var body avExchangeRateResponse
	err := a.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    a.baseURL + "/query",
		QueryParams: map[string][]string{
			"function":      {"CURRENCY_EXCHANGE_RATE"},
			"from_currency": {from},
			"to_currency":   {to},
			"apikey":        {a.apiKey},
		},
	}, &body)
	if err != nil {
		return drepo.Payload{}, models.NewTransportError(alphaVantageName, err)
	}

	if err := avEmbeddedError(body.ErrorMessage, body.Note, body.Information); err != nil {
		return drepo.Payload{}, err
	}

	price, err := strconv.ParseFloat(body.Rate.ExchangeRate, 64)
	if err != nil || price <= 0 {
		return drepo.Payload{}, models.NewDataError(alphaVantageName, "missing or invalid exchange rate")
	}

	// Spot rate only; the fetcher reports zero change.
	return drepo.Payload{Price: price}, nil
}

func (a *AlphaVantage) SupportsHistory(req drepo.HistoryRequest) bool {
	return req.Asset.Type == models.AssetForex && strings.Contains(req.Asset.Symbol, "/")
}

type avFxDailyResponse struct {
	Series map[string]struct {
		Open  string `json:"1. open"`
		High  string `json:"2. high"`
		Low   string `json:"3. low"`
		Close string `json:"4. close"`
	} `json:"Time Series FX (Daily)"`
	ErrorMessage string `json:"Error Message"`
	Note         string `json:"Note"`
	Information  string `json:"Information"`
}

func (a *AlphaVantage) History(ctx context.Context, req drepo.HistoryRequest) ([]models.Bar, error) {
	if a.apiKey == "" {
		return nil, models.NewDataError(alphaVantageName, "api key not configured")
	}

	parts := strings.SplitN(req.Asset.Symbol, "/", 2)
	if len(parts) != 2 {
		return nil, models.NewDataError(alphaVantageName, fmt.Sprintf("unsupported symbol %q", req.Asset.Symbol))
	}

	outputsize := "compact"
	if periodDays(req.Period) > 100 {
		outputsize = "full"
	}

	var body avFxDailyResponse
	err := a.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    a.baseURL + "/query",
		QueryParams: map[string][]string{
			"function":    {"FX_DAILY"},
			"from_symbol": {parts[0]},
			"to_symbol":   {parts[1]},
			"outputsize":  {outputsize},
			"apikey":      {a.apiKey},
		},
	}, &body)
	if err != nil {
		return nil, models.NewTransportError(alphaVantageName, err)
	}

	if err := avEmbeddedError(body.ErrorMessage, body.Note, body.Information); err != nil {
		return nil, err
	}
	if len(body.Series) == 0 {
		return nil, models.NewDataError(alphaVantageName, "empty time series")
	}

	bars := make([]models.Bar, 0, len(body.Series))
	for date, v := range body.Series {
		t, err := time.Parse("2006-01-02", date)
		if err != nil {
			continue
		}
		o, errO := strconv.ParseFloat(v.Open, 64)
		h, errH := strconv.ParseFloat(v.High, 64)
		l, errL := strconv.ParseFloat(v.Low, 64)
		c, errC := strconv.ParseFloat(v.Close, 64)
		if errO != nil || errH != nil || errL != nil || errC != nil {
			continue
		}
		bars = append(bars, models.Bar{
			Timestamp: t.UnixMilli(),
			Open:      o,
			High:      h,
			Low:       l,
			Close:     c,
		})
	}
	if len(bars) == 0 {
		return nil, models.NewDataError(alphaVantageName, "no parsable bars")
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Timestamp < bars[j].Timestamp })

	if n := periodDays(req.Period); len(bars) > n {
		bars = bars[len(bars)-n:]
	}
	return bars, nil
}

// avEmbeddedError maps Alpha Vantage's in-band error markers onto typed
// failures. "Note" and "Information" are how it signals throttling.
func avEmbeddedError(errMsg, note, info string) error {
	if errMsg != "" {
		return models.NewDataError(alphaVantageName, errMsg)
	}
	if note != "" {
		return models.NewRateLimitError(alphaVantageName, note)
	}
	if info != "" {
		return models.NewRateLimitError(alphaVantageName, info)
	}
	return nil
}
