package providers

import (
	"context"
	"fmt"

	"RateHub/internal/domain/models"
	drepo "RateHub/internal/domain/repository"
	xhttp "RateHub/pkg/http"
)

const exchangeRateName = "ExchangeRate-API"

// ExchangeRate is the tertiary forex-only source. It serves spot rates with
// no previous close, so normalized change figures are zero.
type ExchangeRate struct {
	baseURL string
	client  *xhttp.Client
}

func NewExchangeRate(baseURL string, client *xhttp.Client) *ExchangeRate {
	return &ExchangeRate{baseURL: baseURL, client: client}
}

func (e *ExchangeRate) Name() string { return exchangeRateName }

func (e *ExchangeRate) Supports(req drepo.QuoteRequest) bool {
	return req.Class == models.AssetForex
}

type erLatestResponse struct {
	Result    string             `json:"result"`
	ErrorType string             `json:"error-type"`
	Rates     map[string]float64 `json:"rates"`
}

func (e *ExchangeRate) Quote(ctx context.Context, req drepo.QuoteRequest) (drepo.Payload, error) {
	var body erLatestResponse
	err := e.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    fmt.Sprintf("%s/v6/latest/%s", e.baseURL, req.Base),
	}, &body)
	if err != nil {
		return drepo.Payload{}, models.NewTransportError(exchangeRateName, err)
	}

	if body.Result != "success" {
		if body.ErrorType == "quota-reached" {
			return drepo.Payload{}, models.NewRateLimitError(exchangeRateName, body.ErrorType)
		}
		return drepo.Payload{}, models.NewDataError(exchangeRateName, body.ErrorType)
	}

	rate, ok := body.Rates[req.Quote]
	if !ok || rate <= 0 {
		return drepo.Payload{}, models.NewDataError(exchangeRateName, fmt.Sprintf("no rate for %s", req.Quote))
	}

	return drepo.Payload{Price: rate}, nil
}

func (e *ExchangeRate) SupportsHistory(drepo.HistoryRequest) bool { return false }

func (e *ExchangeRate) History(context.Context, drepo.HistoryRequest) ([]models.Bar, error) {
	return nil, models.NewDataError(exchangeRateName, "history not supported")
}
