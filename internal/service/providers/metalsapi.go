package providers

import (
	"context"
	"fmt"

	"RateHub/internal/domain/models"
	drepo "RateHub/internal/domain/repository"
	xhttp "RateHub/pkg/http"
)

const metalsAPIName = "Metals-API"

// metalSymbols is the pair of instruments the specialized source recognizes.
var metalSymbols = map[string]bool{
	"XAU": true,
	"XAG": true,
}

// MetalsAPI is the specialized commodity-only source. Rates come back as
// troy ounces per USD, so the quoted price is the inverse.
type MetalsAPI struct {
	baseURL string
	apiKey  string
	client  *xhttp.Client
}

func NewMetalsAPI(baseURL, apiKey string, client *xhttp.Client) *MetalsAPI {
	return &MetalsAPI{baseURL: baseURL, apiKey: apiKey, client: client}
}

func (m *MetalsAPI) Name() string { return metalsAPIName }

func (m *MetalsAPI) Supports(req drepo.QuoteRequest) bool {
	return req.Class == models.AssetCommodity && metalSymbols[req.Symbol]
}

type maLatestResponse struct {
	Success bool               `json:"success"`
	Rates   map[string]float64 `json:"rates"`
	Error   struct {
		Code int    `json:"code"`
		Info string `json:"info"`
	} `json:"error"`
}

func (m *MetalsAPI) Quote(ctx context.Context, req drepo.QuoteRequest) (drepo.Payload, error) {
	if m.apiKey == "" {
		return drepo.Payload{}, models.NewDataError(metalsAPIName, "api key not configured")
	}

	var body maLatestResponse
	err := m.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    m.baseURL + "/api/latest",
		QueryParams: map[string][]string{
			"access_key": {m.apiKey},
			"base":       {"USD"},
			"symbols":    {req.Symbol},
		},
	}, &body)
	if err != nil {
		return drepo.Payload{}, models.NewTransportError(metalsAPIName, err)
	}

	if !body.Success {
		// 104 is the monthly usage-limit code
		if body.Error.Code == 104 {
			return drepo.Payload{}, models.NewRateLimitError(metalsAPIName, body.Error.Info)
		}
		return drepo.Payload{}, models.NewDataError(metalsAPIName, body.Error.Info)
	}

	rate, ok := body.Rates[req.Symbol]
	if !ok || rate <= 0 {
		return drepo.Payload{}, models.NewDataError(metalsAPIName, fmt.Sprintf("no rate for %s", req.Symbol))
	}

	return drepo.Payload{Price: 1 / rate}, nil
}

func (m *MetalsAPI) SupportsHistory(drepo.HistoryRequest) bool { return false }

func (m *MetalsAPI) History(context.Context, drepo.HistoryRequest) ([]models.Bar, error) {
	return nil, models.NewDataError(metalsAPIName, "history not supported")
}
