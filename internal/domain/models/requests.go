package models

// Query-bound request shapes for the HTTP surface.

type ForexRateRequest struct {
	From string `query:"from" validate:"required,len=3,alpha"`
	To   string `query:"to" validate:"required,len=3,alpha"`
}

type CommodityPriceRequest struct {
	Symbol string `query:"symbol" validate:"required,min=2,max=6"`
	Name   string `query:"name"`
}

type CryptoPriceRequest struct {
	ID string `query:"id" validate:"required,min=2,max=64"`
}

type HistoryRequest struct {
	ID     string `query:"id" validate:"required"`
	Type   string `query:"type" validate:"required,oneof=forex commodity crypto"`
	Symbol string `query:"symbol"`
	Period string `query:"period" default:"1m" validate:"oneof=1d 1w 1m 3m 1y"`
}

type SignalsRequest struct {
	ID     string `query:"id" validate:"required"`
	Type   string `query:"type" validate:"required,oneof=forex commodity crypto"`
	Symbol string `query:"symbol"`
	Period string `query:"period" default:"3m" validate:"oneof=1d 1w 1m 3m 1y"`
}
