package usecase

// ForexPair is one catalog entry for a currency pair.
type ForexPair struct {
	From string
	To   string
}

// Commodity is one catalog entry for a commodity.
type Commodity struct {
	Symbol string
	Name   string
}

// Crypto is one catalog entry for a cryptocurrency.
type Crypto struct {
	CoinID string
	Symbol string
	Name   string
}

// Catalog is the static list of assets the batch orchestrator refreshes.
// Output order of AllMarketData follows this order.
type Catalog struct {
	ForexPairs  []ForexPair
	Commodities []Commodity
	Cryptos     []Crypto
}

// DefaultCatalog returns the assets shown on the market overview.
func DefaultCatalog() Catalog {
	return Catalog{
		ForexPairs: []ForexPair{
			{From: "EUR", To: "USD"},
			{From: "GBP", To: "USD"},
			{From: "USD", To: "JPY"},
			{From: "USD", To: "CHF"},
			{From: "AUD", To: "USD"},
			{From: "USD", To: "CAD"},
		},
		Commodities: []Commodity{
			{Symbol: "XAU", Name: "Gold"},
			{Symbol: "XAG", Name: "Silver"},
		},
		Cryptos: []Crypto{
			{CoinID: "bitcoin", Symbol: "BTC", Name: "Bitcoin"},
			{CoinID: "ethereum", Symbol: "ETH", Name: "Ethereum"},
			{CoinID: "solana", Symbol: "SOL", Name: "Solana"},
			{CoinID: "cardano", Symbol: "ADA", Name: "Cardano"},
		},
	}
}

// Size returns the number of catalog entries.
func (c Catalog) Size() int {
	return len(c.ForexPairs) + len(c.Commodities) + len(c.Cryptos)
}
