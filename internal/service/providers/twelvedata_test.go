package providers

import (
	"context"
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

func tdServer(t *testing.T, handler http.HandlerFunc) *TwelveData {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewTwelveData(srv.URL, "demo", xhttp.NewClient())
}

func TestTwelveDataQuoteCarriesPreviousClose(t *testing.T) {
	td := tdServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/quote", r.URL.Path)
		assert.Equal(t, "EUR/USD", r.URL.Query().Get("symbol"))
		fmt.Fprint(w, `{"close":"1.0850","previous_close":"1.0800"}`)
	})

	p, err := td.Quote(context.Background(), drepo.QuoteRequest{Class: models.AssetForex, Base: "EUR", Quote: "USD"})

	require.NoError(t, err)
	assert.InDelta(t, 1.085, p.Price, 1e-9)
	require.True(t, p.HasPrevClose)
	assert.InDelta(t, 1.08, p.PrevClose, 1e-9)
}

func TestTwelveDataCryptoSymbolMapping(t *testing.T) {
	td := tdServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "BTC/USD", r.URL.Query().Get("symbol"))
		fmt.Fprint(w, `{"close":"67000"}`)
	})

	p, err := td.Quote(context.Background(), drepo.QuoteRequest{Class: models.AssetCrypto, CoinID: "bitcoin", Symbol: "btc"})

	require.NoError(t, err)
	assert.Equal(t, 67000.0, p.Price)
	assert.False(t, p.HasPrevClose)
}

func TestTwelveDataEmbeddedRateLimit(t *testing.T) {
	td := tdServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"error","code":429,"message":"You have run out of API credits"}`)
	})

	_, err := td.Quote(context.Background(), drepo.QuoteRequest{Class: models.AssetForex, Base: "EUR", Quote: "USD"})

	var pe *models.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, models.FailureRateLimit, pe.Kind)
}

func TestTwelveDataEmbeddedDataError(t *testing.T) {
	td := tdServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"error","code":400,"message":"symbol not found"}`)
	})

	_, err := td.Quote(context.Background(), drepo.QuoteRequest{Class: models.AssetForex, Base: "EUR", Quote: "USD"})

	var pe *models.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, models.FailureData, pe.Kind)
}

func TestTwelveDataHistoryAscending(t *testing.T) {
	td := tdServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/time_series", r.URL.Path)
		assert.Equal(t, "1day", r.URL.Query().Get("interval"))
		fmt.Fprint(w, `{"values":[
			{"datetime":"2026-08-28","open":"1.08","high":"1.09","low":"1.07","close":"1.085","volume":"0"},
			{"datetime":"2026-08-27","open":"1.07","high":"1.08","low":"1.06","close":"1.075","volume":"0"}
		],"status":"ok"}`)
	})

	bars, err := td.History(context.Background(), drepo.HistoryRequest{
		Asset:  models.Asset{ID: "EURUSD", Symbol: "EUR/USD", Type: models.AssetForex},
		Period: "1w",
	})

	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Less(t, bars[0].Timestamp, bars[1].Timestamp)
	assert.InDelta(t, 1.075, bars[0].Close, 1e-9)
}
