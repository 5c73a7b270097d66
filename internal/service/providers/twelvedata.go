package providers

import (
	"context"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"RateHub/internal/domain/models"
	drepo "RateHub/internal/domain/repository"
	xhttp "RateHub/pkg/http"
)

const twelveDataName = "Twelve Data"

// TwelveData is the secondary forex and crypto source. Its quote endpoint
// includes the previous close, so normalized change figures are available.
type TwelveData struct {
	baseURL string
	apiKey  string
	client  *xhttp.Client
}

func NewTwelveData(baseURL, apiKey string, client *xhttp.Client) *TwelveData {
	return &TwelveData{baseURL: baseURL, apiKey: apiKey, client: client}
}

func (t *TwelveData) Name() string { return twelveDataName }

func (t *TwelveData) Supports(req drepo.QuoteRequest) bool {
	switch req.Class {
	case models.AssetForex:
		return true
	case models.AssetCrypto:
		return req.Symbol != ""
	default:
		return false
	}
}

func (t *TwelveData) symbolFor(req drepo.QuoteRequest) string {
	if req.Class == models.AssetForex {
		return req.Base + "/" + req.Quote
	}
	return strings.ToUpper(req.Symbol) + "/USD"
}

type tdQuoteResponse struct {
	Close         string `json:"close"`
	PreviousClose string `json:"previous_close"`
	Status        string `json:"status"`
	Code          int    `json:"code"`
	Message       string `json:"message"`
}

func (t *TwelveData) Quote(ctx context.Context, req drepo.QuoteRequest) (drepo.Payload, error) {
	if t.apiKey == "" {
		return drepo.Payload{}, models.NewDataError(twelveDataName, "api key not configured")
	}

	var body tdQuoteResponse
	err := t.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    t.baseURL + "/quote",
		QueryParams: map[string][]string{
			"symbol": {t.symbolFor(req)},
			"apikey": {t.apiKey},
		},
	}, &body)
	if err != nil {
		return drepo.Payload{}, models.NewTransportError(twelveDataName, err)
	}

	if err := tdEmbeddedError(body.Status, body.Code, body.Message); err != nil {
		return drepo.Payload{}, err
	}

	price, err := strconv.ParseFloat(body.Close, 64)
	if err != nil || price <= 0 {
		return drepo.Payload{}, models.NewDataError(twelveDataName, "missing or invalid close price")
	}

	payload := drepo.Payload{Price: price}
	if prev, err := strconv.ParseFloat(body.PreviousClose, 64); err == nil && prev > 0 {
		payload.PrevClose = prev
		payload.HasPrevClose = true
	}
	return payload, nil
}

func (t *TwelveData) SupportsHistory(req drepo.HistoryRequest) bool {
	return req.Asset.Type == models.AssetForex || req.Asset.Type == models.AssetCrypto
}

type tdTimeSeriesResponse struct {
	Values []struct {
		Datetime string `json:"datetime"`
		Open     string `json:"open"`
		High     string `json:"high"`
		Low      string `json:"low"`
		Close    string `json:"close"`
		Volume   string `json:"volume"`
	} `json:"values"`
	Status  string `json:"status"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (t *TwelveData) History(ctx context.Context, req drepo.HistoryRequest) ([]models.Bar, error) {
	if t.apiKey == "" {
		return nil, models.NewDataError(twelveDataName, "api key not configured")
	}

	symbol := req.Asset.Symbol
	if req.Asset.Type == models.AssetCrypto && !strings.Contains(symbol, "/") {
		symbol = strings.ToUpper(symbol) + "/USD"
	}

	var body tdTimeSeriesResponse
	err := t.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    t.baseURL + "/time_series",
		QueryParams: map[string][]string{
			"symbol":     {symbol},
			"interval":   {"1day"},
			"outputsize": {strconv.Itoa(periodDays(req.Period))},
			"apikey":     {t.apiKey},
		},
	}, &body)
	if err != nil {
		return nil, models.NewTransportError(twelveDataName, err)
	}

	if err := tdEmbeddedError(body.Status, body.Code, body.Message); err != nil {
		return nil, err
	}
	if len(body.Values) == 0 {
		return nil, models.NewDataError(twelveDataName, "empty time series")
	}

	bars := make([]models.Bar, 0, len(body.Values))
	for _, v := range body.Values {
		ts, err := time.Parse("2006-01-02", v.Datetime)
		if err != nil {
			// intraday values carry a full timestamp
			ts, err = time.Parse("2006-01-02 15:04:05", v.Datetime)
			if err != nil {
				continue
			}
		}
		o, errO := strconv.ParseFloat(v.Open, 64)
		h, errH := strconv.ParseFloat(v.High, 64)
		l, errL := strconv.ParseFloat(v.Low, 64)
		c, errC := strconv.ParseFloat(v.Close, 64)
		if errO != nil || errH != nil || errL != nil || errC != nil {
			continue
		}
		vol, _ := strconv.ParseFloat(v.Volume, 64)
		bars = append(bars, models.Bar{
			Timestamp: ts.UnixMilli(),
			Open:      o,
			High:      h,
			Low:       l,
			Close:     c,
			Volume:    vol,
		})
	}
	if len(bars) == 0 {
		return nil, models.NewDataError(twelveDataName, "no parsable bars")
	}

	// Twelve Data returns newest first.
	sort.Slice(bars, func(i, j int) bool { return bars[i].Timestamp < bars[j].Timestamp })
	return bars, nil
}

func tdEmbeddedError(status string, code int, message string) error {
	if status != "error" {
		return nil
	}
	if code == http.StatusTooManyRequests {
		return models.NewRateLimitError(twelveDataName, message)
	}
	return models.NewDataError(twelveDataName, message)
}
