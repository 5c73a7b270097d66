package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RateHub/internal/domain/models"
	drepo "RateHub/internal/domain/repository"
	xhttp "RateHub/pkg/http"
)

func avServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *AlphaVantage) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv, NewAlphaVantage(srv.URL, "demo", xhttp.NewClient())
}

func TestAlphaVantageSupports(t *testing.T) {
	a := NewAlphaVantage("http://unused", "demo", xhttp.NewClient())

	assert.True(t, a.Supports(drepo.QuoteRequest{Class: models.AssetForex, Base: "EUR", Quote: "USD"}))
	assert.True(t, a.Supports(drepo.QuoteRequest{Class: models.AssetCommodity, Symbol: "XAU"}))
	assert.True(t, a.Supports(drepo.QuoteRequest{Class: models.AssetCommodity, Symbol: "XAG"}))
	assert.False(t, a.Supports(drepo.QuoteRequest{Class: models.AssetCommodity, Symbol: "WTI"}))
	assert.False(t, a.Supports(drepo.QuoteRequest{Class: models.AssetCrypto, CoinID: "bitcoin"}))
}

func TestAlphaVantageQuoteParsesExchangeRate(t *testing.T) {
	_, a := avServer(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "CURRENCY_EXCHANGE_RATE", q.Get("function"))
		assert.Equal(t, "EUR", q.Get("from_currency"))
		assert.Equal(t, "USD", q.Get("to_currency"))
		fmt.Fprint(w, `{"Realtime Currency Exchange Rate":{"5. Exchange Rate":"1.08500000"}}`)
	})

	p, err := a.Quote(context.Background(), drepo.QuoteRequest{Class: models.AssetForex, Base: "EUR", Quote: "USD"})

	require.NoError(t, err)
	assert.InDelta(t, 1.085, p.Price, 1e-9)
	assert.False(t, p.HasChange)
	assert.False(t, p.HasPrevClose)
}

func TestAlphaVantageCommodityQuotesAgainstUSD(t *testing.T) {
	_, a := avServer(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "XAU", q.Get("from_currency"))
		assert.Equal(t, "USD", q.Get("to_currency"))
		fmt.Fprint(w, `{"Realtime Currency Exchange Rate":{"5. Exchange Rate":"2388.10"}}`)
	})

	p, err := a.Quote(context.Background(), drepo.QuoteRequest{Class: models.AssetCommodity, Symbol: "XAU"})

	require.NoError(t, err)
	assert.InDelta(t, 2388.10, p.Price, 1e-9)
}

func TestAlphaVantageEmbeddedErrorMessage(t *testing.T) {
	_, a := avServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"Error Message":"Invalid API call"}`)
	})

	_, err := a.Quote(context.Background(), drepo.QuoteRequest{Class: models.AssetForex, Base: "EUR", Quote: "USD"})

	var pe *models.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, models.FailureData, pe.Kind)
}

func TestAlphaVantageNoteMeansThrottled(t *testing.T) {
	_, a := avServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"Note":"Thank you for using Alpha Vantage! Our standard API rate limit is 25 requests per day."}`)
	})

	_, err := a.Quote(context.Background(), drepo.QuoteRequest{Class: models.AssetForex, Base: "EUR", Quote: "USD"})

	var pe *models.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, models.FailureRateLimit, pe.Kind)
}

func TestAlphaVantageTransportError(t *testing.T) {
	srv, a := avServer(t, func(w http.ResponseWriter, r *http.Request) {})
	srv.Close()

	_, err := a.Quote(context.Background(), drepo.QuoteRequest{Class: models.AssetForex, Base: "EUR", Quote: "USD"})

	var pe *models.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, models.FailureTransport, pe.Kind)
}

func TestAlphaVantageMissingAPIKey(t *testing.T) {
	a := NewAlphaVantage("http://unused", "", xhttp.NewClient())

	_, err := a.Quote(context.Background(), drepo.QuoteRequest{Class: models.AssetForex, Base: "EUR", Quote: "USD"})

	require.Error(t, err)
	var pe *models.ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, models.FailureData, pe.Kind)
}

func TestAlphaVantageHistorySortedAndTrimmed(t *testing.T) {
	_, a := avServer(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "FX_DAILY", q.Get("function"))
		assert.Equal(t, "EUR", q.Get("from_symbol"))
		assert.Equal(t, "USD", q.Get("to_symbol"))
		fmt.Fprint(w, `{"Time Series FX (Daily)":{
			"2026-08-28":{"1. open":"1.08","2. high":"1.09","3. low":"1.07","4. close":"1.085"},
			"2026-08-26":{"1. open":"1.06","2. high":"1.07","3. low":"1.05","4. close":"1.065"},
			"2026-08-27":{"1. open":"1.07","2. high":"1.08","3. low":"1.06","4. close":"1.075"}
		}}`)
	})

	bars, err := a.History(context.Background(), drepo.HistoryRequest{
		Asset:  models.Asset{ID: "EURUSD", Symbol: "EUR/USD", Type: models.AssetForex},
		Period: "1d",
	})

	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.InDelta(t, 1.085, bars[0].Close, 1e-9)
}

func TestAlphaVantageHistoryAscendingOrder(t *testing.T) {
	_, a := avServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"Time Series FX (Daily)":{
			"2026-08-28":{"1. open":"1.08","2. high":"1.09","3. low":"1.07","4. close":"1.085"},
			"2026-08-26":{"1. open":"1.06","2. high":"1.07","3. low":"1.05","4. close":"1.065"},
			"2026-08-27":{"1. open":"1.07","2. high":"1.08","3. low":"1.06","4. close":"1.075"}
		}}`)
	})

	bars, err := a.History(context.Background(), drepo.HistoryRequest{
		Asset:  models.Asset{ID: "EURUSD", Symbol: "EUR/USD", Type: models.AssetForex},
		Period: "1w",
	})

	require.NoError(t, err)
	require.Len(t, bars, 3)
	assert.Less(t, bars[0].Timestamp, bars[1].Timestamp)
	assert.Less(t, bars[1].Timestamp, bars[2].Timestamp)
}

func TestAlphaVantageSupportsHistoryOnlyForexPairs(t *testing.T) {
	a := NewAlphaVantage("http://unused", "demo", xhttp.NewClient())

	assert.True(t, a.SupportsHistory(drepo.HistoryRequest{
		Asset: models.Asset{Symbol: "EUR/USD", Type: models.AssetForex}}))
	assert.False(t, a.SupportsHistory(drepo.HistoryRequest{
		Asset: models.Asset{Symbol: "XAU", Type: models.AssetCommodity}}))
	assert.False(t, a.SupportsHistory(drepo.HistoryRequest{
		Asset: models.Asset{ID: "bitcoin", Symbol: "BTC", Type: models.AssetCrypto}}))
}
