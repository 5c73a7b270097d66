package api

import (
	"strings"

	"RateHub/internal/domain/models"
	"RateHub/internal/usecase"
	xhttp "RateHub/pkg/http"
	xlogger "RateHub/pkg/logger"

	"github.com/labstack/echo/v4"
)

// MarketHandler exposes the market data surface over HTTP. It is a thin
// layer: all decision logic lives in the usecase package.
type MarketHandler struct {
	logger  *xlogger.Logger
	market  *usecase.Market
	signals *usecase.Signals
}

func NewMarketHandler(logger *xlogger.Logger, market *usecase.Market, signals *usecase.Signals) *MarketHandler {
	return &MarketHandler{logger: logger, market: market, signals: signals}
}

func (h *MarketHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Healthz)

	g := e.Group("/api")
	g.GET("/market", h.Market)
	g.GET("/forex", h.Forex)
	g.GET("/commodity", h.Commodity)
	g.GET("/crypto", h.Crypto)
	g.GET("/history", h.History)
	g.GET("/signals", h.Signals)
	g.GET("/providers", h.Providers)
}

func (h *MarketHandler) Healthz(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

// Market returns the full catalog snapshot. Partial results are normal
// during provider outages; this endpoint never fails.
func (h *MarketHandler) Market(c echo.Context) error {
	assets := h.market.AllMarketData(c.Request().Context())
	return xhttp.ListResponse(c, assets, int64(len(assets)))
}

func (h *MarketHandler) Forex(c echo.Context) error {
	req := &models.ForexRateRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	asset, err := h.market.ForexRate(c.Request().Context(), req.From, req.To)
	if err != nil {
		return h.fetchError(c, err)
	}
	return xhttp.SuccessResponse(c, asset)
}

func (h *MarketHandler) Commodity(c echo.Context) error {
	req := &models.CommodityPriceRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	asset, err := h.market.CommodityPrice(c.Request().Context(), req.Symbol, req.Name)
	if err != nil {
		return h.fetchError(c, err)
	}
	return xhttp.SuccessResponse(c, asset)
}

func (h *MarketHandler) Crypto(c echo.Context) error {
	req := &models.CryptoPriceRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	asset, err := h.market.CryptoPrice(c.Request().Context(), req.ID)
	if err != nil {
		return h.fetchError(c, err)
	}
	return xhttp.SuccessResponse(c, asset)
}

func (h *MarketHandler) History(c echo.Context) error {
	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	asset := assetRef(req.ID, req.Type, req.Symbol)
	bars, err := h.market.AssetHistory(c.Request().Context(), asset, req.Period)
	if err != nil {
		return h.fetchError(c, err)
	}

	if limit := xhttp.ParseIntDefault(c.QueryParam("limit"), 0); limit > 0 && len(bars) > limit {
		bars = bars[len(bars)-limit:]
	}
	return xhttp.ListResponse(c, bars, int64(len(bars)))
}

func (h *MarketHandler) Signals(c echo.Context) error {
	req := &models.SignalsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	asset := assetRef(req.ID, req.Type, req.Symbol)
	sigs, err := h.signals.ForAsset(c.Request().Context(), asset, req.Period)
	if err != nil {
		return h.fetchError(c, err)
	}
	return xhttp.ListResponse(c, sigs, int64(len(sigs)))
}

func (h *MarketHandler) Providers(c echo.Context) error {
	status := h.market.ProvidersStatus(c.Request().Context())
	return xhttp.ListResponse(c, status, int64(len(status)))
}

func (h *MarketHandler) fetchError(c echo.Context, err error) error {
	h.logger.Error("fetch failed", xlogger.Error(err))
	if models.IsExhausted(err) {
		return xhttp.AppErrorResponse(c, xhttp.BadGatewayError(err.Error()))
	}
	return xhttp.AppErrorResponse(c, err)
}

// assetRef builds the minimal asset identity history resolution needs.
func assetRef(id, assetType, symbol string) models.Asset {
	t := models.AssetType(assetType)
	if symbol == "" {
		switch {
		case t == models.AssetForex && len(id) == 6:
			symbol = id[:3] + "/" + id[3:]
		case t == models.AssetCrypto:
			symbol = strings.ToUpper(id)
		default:
			symbol = id
		}
	}
	return models.Asset{ID: id, Type: t, Symbol: symbol}
}
